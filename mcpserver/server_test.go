package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/acuteworks/stripe-mcp/internal/jsonrpc"
	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type pingArgs struct{}

func newTestDispatcher() *Server {
	tools := toolset.NewContainer(
		toolset.New("hello", func(ctx context.Context, args pingArgs) (*mcp.CallToolResult, error) {
			return toolset.TextResult("hi"), nil
		}),
	)
	return New(mcp.ImplementationInfo{Name: "t", Version: "1"}, tools)
}

func TestInitializeVersionNegotiation(t *testing.T) {
	srv := newTestDispatcher()
	ctx := context.Background()

	for _, tc := range []struct {
		requested string
		want      string
	}{
		{"2025-06-18", "2025-06-18"},
		{"2024-11-05", "2024-11-05"},
		{"1999-01-01", "2025-06-18"},
		{"", "2025-06-18"},
	} {
		res := srv.Initialize(ctx, &mcp.InitializeRequest{ProtocolVersion: tc.requested})
		if res.ProtocolVersion != tc.want {
			t.Fatalf("requested %q: negotiated %q, want %q", tc.requested, res.ProtocolVersion, tc.want)
		}
		if res.Capabilities.Tools == nil {
			t.Fatalf("tools capability not advertised")
		}
	}
}

func request(method, params string, id any) *jsonrpc.Request {
	req := &jsonrpc.Request{Version: jsonrpc.Version, Method: method, ID: jsonrpc.NewRequestID(id)}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return req
}

func TestPing(t *testing.T) {
	srv := newTestDispatcher()
	res := srv.HandleRequest(context.Background(), request("ping", "", 1))
	if res.Error != nil {
		t.Fatalf("ping error: %+v", res.Error)
	}
	if string(res.Result) != "{}" {
		t.Fatalf("ping result = %s", res.Result)
	}
}

func TestToolsListAndCall(t *testing.T) {
	srv := newTestDispatcher()
	ctx := context.Background()

	res := srv.HandleRequest(ctx, request("tools/list", "{}", 1))
	if res.Error != nil {
		t.Fatalf("tools/list error: %+v", res.Error)
	}
	var page mcp.ListToolsResult
	if err := json.Unmarshal(res.Result, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Tools) != 1 || page.Tools[0].Name != "hello" {
		t.Fatalf("tools = %+v", page.Tools)
	}

	res = srv.HandleRequest(ctx, request("tools/call", `{"name":"hello"}`, 2))
	if res.Error != nil {
		t.Fatalf("tools/call error: %+v", res.Error)
	}
	var result mcp.CallToolResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hi" {
		t.Fatalf("result = %+v", result)
	}
}

func TestUnknownToolIsInvalidParams(t *testing.T) {
	srv := newTestDispatcher()
	res := srv.HandleRequest(context.Background(), request("tools/call", `{"name":"nope"}`, 3))
	if res.Error == nil || res.Error.Code != jsonrpc.ErrorCodeInvalidParams {
		t.Fatalf("error = %+v, want invalid params", res.Error)
	}
}

func TestUnknownMethodNotFound(t *testing.T) {
	srv := newTestDispatcher()
	res := srv.HandleRequest(context.Background(), request("resources/list", "", 4))
	if res.Error == nil || res.Error.Code != jsonrpc.ErrorCodeMethodNotFound {
		t.Fatalf("error = %+v, want method not found", res.Error)
	}
}

func TestInitializeViaHandleRequestRejected(t *testing.T) {
	srv := newTestDispatcher()
	res := srv.HandleRequest(context.Background(), request("initialize", "{}", 5))
	if res.Error == nil || res.Error.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("error = %+v, want invalid request", res.Error)
	}
}
