// Package mcpserver implements the transport-independent MCP dispatcher: the
// initialize handshake plus routing of JSON-RPC requests and notifications
// to the tools capability. Transports (streaminghttp, stdio) own framing and
// sessions; this package owns protocol semantics.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/acuteworks/stripe-mcp/internal/jsonrpc"
	"github.com/acuteworks/stripe-mcp/internal/logctx"
	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/toolset"
)

// supportedVersions are the protocol revisions the server can negotiate,
// newest first.
var supportedVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// Server dispatches MCP requests against a tool container.
type Server struct {
	info         mcp.ImplementationInfo
	instructions string
	tools        *toolset.Container
	log          *slog.Logger
}

// Option configures New.
type Option func(*Server)

// WithLogger sets the dispatch logger. Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInstructions sets the instructions string returned from initialize.
func WithInstructions(text string) Option {
	return func(s *Server) { s.instructions = text }
}

// New constructs a Server advertising info and dispatching into tools.
func New(info mcp.ImplementationInfo, tools *toolset.Container, opts ...Option) *Server {
	s := &Server{info: info, tools: tools, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Info returns the advertised implementation info.
func (s *Server) Info() mcp.ImplementationInfo { return s.info }

// ToolNames returns the registered tool names, for service metadata.
func (s *Server) ToolNames() []string { return s.tools.Names() }

// Initialize performs protocol version negotiation. A requested version the
// server knows is echoed back; anything else answers with the newest
// supported revision, per the MCP version negotiation rules.
func (s *Server) Initialize(ctx context.Context, req *mcp.InitializeRequest) *mcp.InitializeResult {
	version := supportedVersions[0]
	for _, v := range supportedVersions {
		if req.ProtocolVersion == v {
			version = v
			break
		}
	}
	return &mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities: mcp.ServerCapabilities{
			Tools: &struct {
				ListChanged bool `json:"listChanged"`
			}{ListChanged: false},
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	}
}

// HandleRequest routes one JSON-RPC request and always returns a response
// for the request's id. Handler panics are not recovered here; handlers
// convert their own failures into results or errors.
func (s *Server) HandleRequest(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	switch mcp.Method(req.Method) {
	case mcp.PingMethod:
		res, _ := jsonrpc.NewResultResponse(req.ID, struct{}{})
		return res

	case mcp.ToolsListMethod:
		var params mcp.ListToolsRequest
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid tools/list params")
			}
		}
		page, err := s.tools.ListTools(ctx, params.Cursor)
		if err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, err.Error())
		}
		res, err := jsonrpc.NewResultResponse(req.ID, page)
		if err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "failed to encode tools/list result")
		}
		return res

	case mcp.ToolsCallMethod:
		var call mcp.CallToolRequest
		if err := json.Unmarshal(req.Params, &call); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid tools/call params")
		}
		ctx := logctx.WithToolData(ctx, &logctx.ToolData{Name: call.Name})
		result, err := s.tools.CallTool(ctx, &call)
		if err != nil {
			// Unknown tool or malformed request shape: a protocol error, not
			// a tool-level failure.
			s.log.WarnContext(ctx, "tool.call.reject", slog.String("err", err.Error()))
			code := jsonrpc.ErrorCodeInvalidParams
			if !strings.HasPrefix(err.Error(), "tool not found") && !strings.HasPrefix(err.Error(), "invalid tool request") {
				code = jsonrpc.ErrorCodeInternalError
			}
			return jsonrpc.NewErrorResponse(req.ID, code, err.Error())
		}
		if result.IsError {
			s.log.InfoContext(ctx, "tool.call.err", slog.Duration("dur", time.Since(start)))
		} else {
			s.log.InfoContext(ctx, "tool.call.ok", slog.Duration("dur", time.Since(start)))
		}
		res, err := jsonrpc.NewResultResponse(req.ID, result)
		if err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "failed to encode tool result")
		}
		return res

	case mcp.InitializeMethod:
		// The transports complete initialization before routing here.
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session already initialized")

	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found: "+req.Method)
	}
}

// HandleNotification accepts a client notification. The server reacts to
// none of them today; they are logged and dropped.
func (s *Server) HandleNotification(ctx context.Context, req *jsonrpc.Request) error {
	s.log.DebugContext(ctx, "notification.inbound", slog.String("method", req.Method))
	return nil
}
