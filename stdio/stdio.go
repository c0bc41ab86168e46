// Package stdio implements a single-connection MCP transport over
// stdin/stdout: newline-delimited JSON-RPC, one ephemeral session, no host
// abstraction. It suits subprocess embedding and local development; network
// deployments use the streaming HTTP transport instead.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/acuteworks/stripe-mcp/internal/jsonrpc"
	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/mcpserver"
)

// maxLineBytes bounds one inbound JSON-RPC line.
const maxLineBytes = 4 * 1024 * 1024

// Handler is the stdio transport. It owns framing and the initialize
// lifecycle and delegates MCP semantics to the dispatcher.
type Handler struct {
	srv *mcpserver.Server
	in  io.Reader
	out io.Writer
	log *slog.Logger

	mu          sync.Mutex
	initialized bool
}

// Option configures NewHandler.
type Option func(*Handler)

// WithIO replaces stdin/stdout, mainly for tests.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(h *Handler) {
		h.in = in
		h.out = out
	}
}

// WithLogger sets the transport logger. Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandler constructs a stdio Handler for the dispatcher.
func NewHandler(srv *mcpserver.Server, opts ...Option) *Handler {
	h := &Handler{
		srv: srv,
		in:  os.Stdin,
		out: os.Stdout,
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve runs the read loop until EOF or context cancellation. Parse errors
// are answered in-band and never terminate the loop.
func (h *Handler) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(h.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return err
					}
				default:
				}
				return nil
			}
			if len(line) == 0 {
				continue
			}
			h.handleLine(ctx, line)
		}
	}
}

func (h *Handler) handleLine(ctx context.Context, line []byte) {
	start := time.Now()

	if line[0] == '[' {
		h.log.WarnContext(ctx, "jsonrpc.batch.forbidden")
		h.write(ctx, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest, "batch requests are not supported"))
		return
	}

	var msg jsonrpc.Message
	if err := json.Unmarshal(line, &msg); err != nil {
		h.log.WarnContext(ctx, "jsonrpc.message.invalid", slog.String("err", err.Error()))
		h.write(ctx, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "parse error"))
		return
	}

	req := msg.AsRequest()
	if req == nil {
		// Client response; this server issues no requests.
		h.log.DebugContext(ctx, "response.inbound.drop")
		return
	}

	if req.IsNotification() {
		if err := h.srv.HandleNotification(ctx, req); err != nil {
			h.log.ErrorContext(ctx, "notification.inbound.fail", slog.String("err", err.Error()))
		}
		return
	}

	if req.Method == string(mcp.InitializeMethod) {
		h.handleInitialize(ctx, req)
		h.log.InfoContext(ctx, "rpc.inbound.ok", slog.String("method", req.Method), slog.Duration("dur", time.Since(start)))
		return
	}

	h.mu.Lock()
	ready := h.initialized
	h.mu.Unlock()
	if !ready {
		h.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "server not initialized"))
		return
	}

	h.write(ctx, h.srv.HandleRequest(ctx, req))
	h.log.InfoContext(ctx, "rpc.inbound.ok", slog.String("method", req.Method), slog.Duration("dur", time.Since(start)))
}

func (h *Handler) handleInitialize(ctx context.Context, req *jsonrpc.Request) {
	h.mu.Lock()
	already := h.initialized
	h.mu.Unlock()
	if already {
		h.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session already initialized"))
		return
	}

	var initReq mcp.InitializeRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &initReq); err != nil {
			h.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid initialize params"))
			return
		}
	}
	res, err := jsonrpc.NewResultResponse(req.ID, h.srv.Initialize(ctx, &initReq))
	if err != nil {
		h.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "failed to encode initialize response"))
		return
	}

	h.mu.Lock()
	h.initialized = true
	h.mu.Unlock()
	h.write(ctx, res)
}

// write emits one newline-terminated JSON-RPC message.
func (h *Handler) write(ctx context.Context, res *jsonrpc.Response) {
	b, err := json.Marshal(res)
	if err != nil {
		h.log.ErrorContext(ctx, "rpc.response.marshal.fail", slog.String("err", err.Error()))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.out.Write(append(b, '\n')); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		h.log.ErrorContext(ctx, "stdio.write.fail", slog.String("err", err.Error()))
	}
}
