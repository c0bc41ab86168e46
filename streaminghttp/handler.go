// Package streaminghttp implements the HTTP surface of the server: the
// streamable transport on /mcp (POST/GET/DELETE with Mcp-Session-Id
// sessions), the legacy SSE pair on /sse and /messages, and the static
// /health and / endpoints. The route table is built once at construction on
// an http.ServeMux; unrecognized paths fall through to its 404.
package streaminghttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/acuteworks/stripe-mcp/auth"
	"github.com/acuteworks/stripe-mcp/internal/jsonrpc"
	"github.com/acuteworks/stripe-mcp/internal/logctx"
	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/mcpserver"
	"github.com/acuteworks/stripe-mcp/sessions"
)

var _ http.Handler = (*Handler)(nil)

var (
	jsonMediaType         = contenttype.NewMediaType("application/json")
	eventStreamMediaType  = contenttype.NewMediaType("text/event-stream")
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
)

const (
	lastEventIDHeader        = "Last-Event-ID"
	mcpSessionIDHeader       = "Mcp-Session-Id"
	mcpProtocolVersionHeader = "Mcp-Protocol-Version"
	authorizationHeader      = "Authorization"
	wwwAuthenticateHeader    = "WWW-Authenticate"
)

// noValidSessionMessage is the transport error surfaced whenever a request
// cannot be tied to a live session, regardless of the body content.
const noValidSessionMessage = "no valid session ID"

// Handler is the HTTP transport. It demultiplexes requests onto sessions
// held by the Manager and forwards JSON-RPC traffic to the dispatcher.
type Handler struct {
	mux   *http.ServeMux
	log   *slog.Logger
	srv   *mcpserver.Server
	mgr   *sessions.Manager
	auth  auth.Authenticator
	realm string

	legacy *legacyRegistry
}

// Option configures New.
type Option func(*Handler)

// WithLogger sets the transport logger. Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = slog.New(logctx.Handler{Handler: l.Handler()})
		}
	}
}

// WithAuthenticator requires a valid bearer token on the /mcp endpoint.
// Without it the transport runs unauthenticated.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(h *Handler) { h.auth = a }
}

// WithRealm sets the realm attribute of WWW-Authenticate challenges. Empty
// omits the attribute.
func WithRealm(realm string) Option {
	return func(h *Handler) { h.realm = strings.TrimSpace(realm) }
}

// New builds the Handler and its route table.
func New(srv *mcpserver.Server, mgr *sessions.Manager, opts ...Option) *Handler {
	h := &Handler{
		log:    slog.New(slog.DiscardHandler),
		srv:    srv,
		mgr:    mgr,
		legacy: newLegacyRegistry(),
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", h.handlePostMCP)
	mux.HandleFunc("GET /mcp", h.handleGetMCP)
	mux.HandleFunc("DELETE /mcp", h.handleDeleteMCP)
	mux.HandleFunc("GET /sse", h.handleLegacySSE)
	mux.HandleFunc("POST /messages", h.handleLegacyMessage)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /{$}", h.handleIndex)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
	})))
}

// lockedWriteFlusher serializes writes and flushes on an SSE response and
// refuses both once the request context is done.
type lockedWriteFlusher struct {
	io.Writer
	http.Flusher
	mu  sync.Mutex
	ctx context.Context
}

func (l *lockedWriteFlusher) Write(p []byte) (int, error) {
	if l.ctx != nil && l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx != nil && l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	return l.Writer.Write(p)
}

func (l *lockedWriteFlusher) Flush() {
	if l.ctx != nil && l.ctx.Err() != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx != nil && l.ctx.Err() != nil {
		return
	}
	l.Flusher.Flush()
}

// writeRPCError answers an HTTP-layer rejection with a JSON-RPC error
// envelope. id may be nil, yielding the JSON-RPC null id.
func writeRPCError(w http.ResponseWriter, status int, id *jsonrpc.RequestID, code jsonrpc.ErrorCode, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonrpc.NewErrorResponse(id, code, msg))
}

// writeSSEEvent writes one SSE frame and flushes it. event and id are
// omitted when empty.
func writeSSEEvent(wf *lockedWriteFlusher, event, id string, payload []byte) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: " + event + "\n")
	}
	if id != "" {
		b.WriteString("id: " + id + "\n")
	}
	b.WriteString("data: ")
	b.Write(payload)
	b.WriteString("\n\n")
	if _, err := wf.Write([]byte(b.String())); err != nil {
		return err
	}
	wf.Flush()
	return nil
}

// checkAuthentication enforces bearer auth when an authenticator is
// configured. It writes the challenge response itself and reports whether
// the request may proceed.
func (h *Handler) checkAuthentication(ctx context.Context, r *http.Request, w http.ResponseWriter) bool {
	if h.auth == nil {
		return true
	}

	challenge := func(params string) string {
		v := "Bearer"
		if h.realm != "" {
			v += ` realm="` + h.realm + `"`
			if params != "" {
				v += ", " + params
			}
		} else if params != "" {
			v += " " + params
		}
		return v
	}

	header := r.Header.Get(authorizationHeader)
	if header == "" {
		h.log.InfoContext(ctx, "auth.check.missing")
		w.Header().Set(wwwAuthenticateHeader, challenge(""))
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) || strings.TrimSpace(header[len(bearerPrefix):]) == "" {
		h.log.InfoContext(ctx, "auth.check.invalid")
		w.Header().Set(wwwAuthenticateHeader, challenge(`error="invalid_request"`))
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])

	if _, err := h.auth.CheckAuthentication(ctx, tok); err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			h.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			w.Header().Set(wwwAuthenticateHeader, challenge(`error="invalid_token"`))
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		h.log.ErrorContext(ctx, "auth.check.err", slog.String("err", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return false
	}
	return true
}

// handlePostMCP serves POST /mcp: session creation on initialize, message
// dispatch for established sessions.
func (h *Handler) handlePostMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		h.log.WarnContext(ctx, "content_type.unsupported")
		writeRPCError(w, http.StatusUnsupportedMediaType, nil, jsonrpc.ErrorCodeInvalidRequest, "content-type must be application/json")
		return
	}

	if !h.checkAuthentication(ctx, r, w) {
		h.log.InfoContext(ctx, "auth.fail")
		return
	}

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

	sessID := r.Header.Get(mcpSessionIDHeader)
	if sessID == "" {
		h.handleInitialize(ctx, w, &msg, start)
		return
	}

	sess, err := h.mgr.Load(ctx, sessID)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			h.log.InfoContext(ctx, "session.load.miss")
			writeRPCError(w, http.StatusNotFound, nil, jsonrpc.ErrorCodeNoSession, noValidSessionMessage)
			return
		}
		h.log.ErrorContext(ctx, "session.load.fail", slog.String("err", err.Error()))
		writeRPCError(w, http.StatusInternalServerError, nil, jsonrpc.ErrorCodeInternalError, "failed to load session")
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sess.ID, ProtocolVersion: sess.ProtocolVersion})

	if pv := r.Header.Get(mcpProtocolVersionHeader); pv != "" && pv != sess.ProtocolVersion {
		h.log.WarnContext(ctx, "protocol.version.mismatch", slog.String("client_version", pv))
		writeRPCError(w, http.StatusBadRequest, nil, jsonrpc.ErrorCodeInvalidRequest, "protocol version mismatch")
		return
	}

	if req := msg.AsRequest(); req != nil {
		if req.IsNotification() {
			if err := h.srv.HandleNotification(ctx, req); err != nil {
				h.log.ErrorContext(ctx, "notification.inbound.fail", slog.String("err", err.Error()))
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion)
			w.WriteHeader(http.StatusAccepted)
			h.log.InfoContext(ctx, "notification.inbound.ok", slog.Duration("dur", time.Since(start)))
			return
		}
		h.answerRequestOverSSE(ctx, w, r, sess, req, start)
		return
	}

	// A client response to a server-issued request; this server issues none,
	// so the message is accepted and dropped.
	w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion)
	w.WriteHeader(http.StatusAccepted)
	h.log.InfoContext(ctx, "response.inbound.ok", slog.Duration("dur", time.Since(start)))
}

// handleInitialize creates a session for a header-less POST carrying an
// initialize request. Anything else without a header is a transport error
// and creates nothing.
func (h *Handler) handleInitialize(ctx context.Context, w http.ResponseWriter, msg *jsonrpc.Message, start time.Time) {
	req := msg.AsRequest()
	if req == nil || req.Method != string(mcp.InitializeMethod) || req.IsNotification() {
		h.log.InfoContext(ctx, "session.initialize.invalid")
		writeRPCError(w, http.StatusBadRequest, nil, jsonrpc.ErrorCodeNoSession, noValidSessionMessage)
		return
	}
	var initReq mcp.InitializeRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &initReq); err != nil {
			h.log.InfoContext(ctx, "session.initialize.params.fail", slog.String("err", err.Error()))
			writeRPCError(w, http.StatusBadRequest, req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid initialize params")
			return
		}
	}

	initRes := h.srv.Initialize(ctx, &initReq)
	sess, err := h.mgr.Create(ctx, initRes.ProtocolVersion, initReq.ClientInfo.Name, initReq.ClientInfo.Version)
	if err != nil {
		h.log.ErrorContext(ctx, "session.initialize.fail", slog.String("err", err.Error()))
		writeRPCError(w, http.StatusInternalServerError, req.ID, jsonrpc.ErrorCodeInternalError, "failed to initialize session")
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sess.ID, ProtocolVersion: sess.ProtocolVersion})

	resp, err := jsonrpc.NewResultResponse(req.ID, initRes)
	if err != nil {
		h.log.ErrorContext(ctx, "session.initialize.encode.fail", slog.String("err", err.Error()))
		writeRPCError(w, http.StatusInternalServerError, req.ID, jsonrpc.ErrorCodeInternalError, "failed to encode initialize response")
		return
	}
	w.Header().Set(mcpSessionIDHeader, sess.ID)
	w.Header().Set(mcpProtocolVersionHeader, initRes.ProtocolVersion)
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.ErrorContext(ctx, "session.initialize.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "session.initialize.ok", slog.Duration("dur", time.Since(start)))
}

// answerRequestOverSSE dispatches one request and answers it on a one-shot
// SSE stream, per the streamable transport rules.
func (h *Handler) answerRequestOverSSE(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *sessions.Session, req *jsonrpc.Request, start time.Time) {
	if acc := r.Header.Get("Accept"); acc != "" {
		if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
			h.log.WarnContext(ctx, "accept.unsupported", slog.String("accept", acc))
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
	}
	f, ok := w.(http.Flusher)
	if !ok {
		h.log.ErrorContext(ctx, "sse.flusher.missing")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	wf := &lockedWriteFlusher{Writer: w, Flusher: f, ctx: ctx}

	w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion)
	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	wf.Flush()

	res := h.srv.HandleRequest(ctx, req)
	b, err := json.Marshal(res)
	if err != nil {
		h.log.ErrorContext(ctx, "rpc.response.marshal.fail", slog.String("err", err.Error()))
		return
	}
	if err := writeSSEEvent(wf, "message", "", b); err != nil {
		h.log.ErrorContext(ctx, "sse.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "rpc.inbound.ok", slog.Duration("dur", time.Since(start)))
}

// handleGetMCP serves GET /mcp: a server-push stream over the session's
// message stream, resumable via Last-Event-ID.
func (h *Handler) handleGetMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
		h.log.WarnContext(ctx, "http.get.unsupported_media_type")
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}
	f, ok := w.(http.Flusher)
	if !ok {
		h.log.ErrorContext(ctx, "sse.flusher.missing")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	wf := &lockedWriteFlusher{Writer: w, Flusher: f, ctx: ctx}

	if !h.checkAuthentication(ctx, r, w) {
		h.log.InfoContext(ctx, "auth.fail")
		return
	}

	sessID := r.Header.Get(mcpSessionIDHeader)
	if sessID == "" {
		h.log.WarnContext(ctx, "session.id.missing")
		writeRPCError(w, http.StatusBadRequest, nil, jsonrpc.ErrorCodeNoSession, noValidSessionMessage)
		return
	}
	sess, err := h.mgr.Load(ctx, sessID)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			h.log.InfoContext(ctx, "session.load.miss")
			writeRPCError(w, http.StatusNotFound, nil, jsonrpc.ErrorCodeNoSession, noValidSessionMessage)
			return
		}
		h.log.ErrorContext(ctx, "session.load.fail", slog.String("err", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sess.ID, ProtocolVersion: sess.ProtocolVersion})

	if pv := r.Header.Get(mcpProtocolVersionHeader); pv != "" && pv != sess.ProtocolVersion {
		h.log.WarnContext(ctx, "protocol.version.mismatch", slog.String("client_version", pv))
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}

	w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion)
	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	wf.Flush()
	h.log.InfoContext(ctx, "sse.stream.start")

	err = h.mgr.Subscribe(ctx, sess.ID, r.Header.Get(lastEventIDHeader), func(cbCtx context.Context, eventID string, data []byte) error {
		if err := writeSSEEvent(wf, "message", eventID, data); err != nil {
			h.log.ErrorContext(cbCtx, "sse.write.fail", slog.String("err", err.Error()))
			return err
		}
		h.log.DebugContext(cbCtx, "sse.message.deliver")
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.log.ErrorContext(ctx, "subscribe.session.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "sse.stream.end", slog.Duration("dur", time.Since(start)))
}

// handleDeleteMCP serves DELETE /mcp: explicit session teardown.
func (h *Handler) handleDeleteMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.delete.start")

	if !h.checkAuthentication(ctx, r, w) {
		h.log.InfoContext(ctx, "auth.fail")
		return
	}

	sessID := r.Header.Get(mcpSessionIDHeader)
	if sessID == "" {
		h.log.WarnContext(ctx, "delete.missing_session_id")
		writeRPCError(w, http.StatusBadRequest, nil, jsonrpc.ErrorCodeNoSession, noValidSessionMessage)
		return
	}
	sess, err := h.mgr.Load(ctx, sessID)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			h.log.InfoContext(ctx, "session.delete.miss")
			writeRPCError(w, http.StatusNotFound, nil, jsonrpc.ErrorCodeNoSession, noValidSessionMessage)
			return
		}
		h.log.ErrorContext(ctx, "session.load.fail", slog.String("err", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sess.ID, ProtocolVersion: sess.ProtocolVersion})

	if err := h.mgr.Delete(ctx, sess.ID); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			h.log.InfoContext(ctx, "session.delete.miss")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.log.ErrorContext(ctx, "session.delete.fail", slog.String("err", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion)
	w.WriteHeader(http.StatusNoContent)
	h.log.InfoContext(ctx, "http.delete.ok", slog.Duration("dur", time.Since(start)))
}
