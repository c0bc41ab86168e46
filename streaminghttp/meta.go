package streaminghttp

import (
	"encoding/json"
	"net/http"
)

// handleHealth serves GET /health. The payload shape is fixed and the
// handler touches nothing but the response writer, so it reports liveness
// even when the Stripe credential is wrong.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleIndex serves GET / with static service metadata.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	info := h.srv.Info()
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":      info.Name,
		"version":   info.Version,
		"transport": "streamable-http",
		"endpoints": map[string]string{
			"mcp":      "/mcp",
			"sse":      "/sse",
			"messages": "/messages",
			"health":   "/health",
		},
		"tools": h.srv.ToolNames(),
	})
}
