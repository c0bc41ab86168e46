package streaminghttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/acuteworks/stripe-mcp/internal/jsonrpc"
	"github.com/acuteworks/stripe-mcp/internal/logctx"
	"github.com/acuteworks/stripe-mcp/mcp"
)

// legacyOutboundBuffer bounds the per-session queue between POST /messages
// dispatch and the /sse writer goroutine.
const legacyOutboundBuffer = 16

// legacySession is one legacy SSE connection. Outbound messages are queued
// on out and drained by the goroutine owning the stream writer.
type legacySession struct {
	id  string
	out chan []byte
}

// legacyRegistry holds the legacy transport's sessions. It is deliberately
// separate from the modern session host; the two id spaces never mix.
type legacyRegistry struct {
	mu       sync.Mutex
	sessions map[string]*legacySession
}

func newLegacyRegistry() *legacyRegistry {
	return &legacyRegistry{sessions: make(map[string]*legacySession)}
}

func (r *legacyRegistry) add() *legacySession {
	s := &legacySession{id: uuid.NewString(), out: make(chan []byte, legacyOutboundBuffer)}
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

func (r *legacyRegistry) get(id string) *legacySession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

func (r *legacyRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// handleLegacySSE serves GET /sse: it creates a legacy session, announces
// the message endpoint via the `endpoint` event, and streams outbound
// messages until the client disconnects. The registry entry is removed on
// every exit path.
func (h *Handler) handleLegacySSE(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	f, ok := w.(http.Flusher)
	if !ok {
		h.log.ErrorContext(ctx, "sse.flusher.missing")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	wf := &lockedWriteFlusher{Writer: w, Flusher: f, ctx: ctx}

	sess := h.legacy.add()
	defer h.legacy.remove(sess.id)
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sess.id})

	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	wf.Flush()

	if err := writeSSEEvent(wf, "endpoint", "", []byte("/messages?sessionId="+sess.id)); err != nil {
		h.log.ErrorContext(ctx, "legacy.endpoint.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "legacy.stream.start")

	for {
		select {
		case <-ctx.Done():
			h.log.InfoContext(ctx, "legacy.stream.end", slog.Duration("dur", time.Since(start)))
			return
		case msg := <-sess.out:
			if err := writeSSEEvent(wf, "message", "", msg); err != nil {
				h.log.ErrorContext(ctx, "sse.write.fail", slog.String("err", err.Error()))
				return
			}
		}
	}
}

// handleLegacyMessage serves POST /messages: it resolves the session from
// the sessionId query parameter, dispatches the message, and delivers any
// response on the session's SSE stream. The HTTP answer is always 202 once
// the message is accepted.
func (h *Handler) handleLegacyMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		h.log.WarnContext(ctx, "content_type.unsupported")
		writeRPCError(w, http.StatusUnsupportedMediaType, nil, jsonrpc.ErrorCodeInvalidRequest, "content-type must be application/json")
		return
	}

	sessID := r.URL.Query().Get("sessionId")
	sess := h.legacy.get(sessID)
	if sess == nil {
		h.log.InfoContext(ctx, "legacy.session.miss")
		writeRPCError(w, http.StatusBadRequest, nil, jsonrpc.ErrorCodeNoSession, noValidSessionMessage)
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sess.id})

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.log.WarnContext(ctx, "json.decode.fail", slog.String("err", err.Error()))
		writeRPCError(w, http.StatusBadRequest, nil, jsonrpc.ErrorCodeParseError, "parse error")
		return
	}
	if len(raw) > 0 && raw[0] == '[' {
		h.log.WarnContext(ctx, "jsonrpc.batch.forbidden")
		writeRPCError(w, http.StatusBadRequest, nil, jsonrpc.ErrorCodeInvalidRequest, "batch requests are not supported")
		return
	}
	var msg jsonrpc.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.log.WarnContext(ctx, "jsonrpc.message.invalid", slog.String("err", err.Error()))
		writeRPCError(w, http.StatusBadRequest, nil, jsonrpc.ErrorCodeInvalidRequest, "invalid JSON-RPC message: "+err.Error())
		return
	}

	req := msg.AsRequest()
	switch {
	case req == nil:
		// Client response; nothing awaits it.

	case req.IsNotification():
		if err := h.srv.HandleNotification(ctx, req); err != nil {
			h.log.ErrorContext(ctx, "notification.inbound.fail", slog.String("err", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case req.Method == string(mcp.InitializeMethod):
		// The legacy transport has no header handshake; initialize is just
		// another request answered on the stream.
		var initReq mcp.InitializeRequest
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &initReq); err != nil {
				sess.deliver(h.log, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid initialize params"))
				break
			}
		}
		res, err := jsonrpc.NewResultResponse(req.ID, h.srv.Initialize(ctx, &initReq))
		if err != nil {
			sess.deliver(h.log, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "failed to encode initialize response"))
			break
		}
		sess.deliver(h.log, res)

	default:
		sess.deliver(h.log, h.srv.HandleRequest(ctx, req))
	}

	w.WriteHeader(http.StatusAccepted)
	h.log.InfoContext(ctx, "legacy.message.ok", slog.Duration("dur", time.Since(start)))
}

// deliver queues a response for the SSE writer. A full queue means the
// client stopped reading; the message is dropped rather than blocking the
// POST handler.
func (s *legacySession) deliver(log *slog.Logger, res *jsonrpc.Response) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	select {
	case s.out <- b:
	default:
		log.Warn("legacy.outbound.drop", slog.String("session_id", s.id))
	}
}
