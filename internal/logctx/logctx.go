// Package logctx carries structured logging attributes through a
// context.Context so that every slog record emitted under a request or
// session automatically includes its correlation data.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler and appends any request, session, or
// tool attributes found on the record's context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("path", rd.Path),
			slog.String("remote_addr", rd.RemoteAddr),
		))
	}
	if sd, ok := ctx.Value(sessionKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("sess",
			slog.String("id", sd.SessionID),
			slog.String("protocol_version", sd.ProtocolVersion),
		))
	}
	if td, ok := ctx.Value(toolKey{}).(*ToolData); ok {
		r.AddAttrs(slog.Group("tool", slog.String("name", td.Name)))
	}
	return h.Handler.Handle(ctx, r)
}

type requestKey struct{}

// RequestData identifies one inbound HTTP request.
type RequestData struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestKey{}, data)
}

type sessionKey struct{}

// SessionData identifies the MCP session a record belongs to.
type SessionData struct {
	SessionID       string
	ProtocolVersion string
}

func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionKey{}, data)
}

type toolKey struct{}

// ToolData identifies the tool being invoked.
type ToolData struct {
	Name string
}

func WithToolData(ctx context.Context, data *ToolData) context.Context {
	return context.WithValue(ctx, toolKey{}, data)
}
