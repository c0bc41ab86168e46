package toolset

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/acuteworks/stripe-mcp/mcp"
)

type demoArgs struct {
	Action string `json:"action" jsonschema:"enum=create,enum=list,description=Operation to perform"`
	Name   string `json:"name,omitempty"`
	Count  int    `json:"count,omitempty"`
}

func demoTool() Tool {
	return New("demo", func(ctx context.Context, args demoArgs) (*mcp.CallToolResult, error) {
		return TextResult(args.Action + ":" + args.Name), nil
	}, WithDescription("A demo tool."))
}

func TestReflectedSchema(t *testing.T) {
	tool := demoTool()
	schema := tool.Descriptor.InputSchema

	if schema.Type != "object" {
		t.Fatalf("schema type = %q", schema.Type)
	}
	if schema.AdditionalProperties {
		t.Fatalf("additionalProperties should default to false")
	}
	action, ok := schema.Properties["action"]
	if !ok {
		t.Fatalf("missing action property")
	}
	if len(action.Enum) != 2 {
		t.Fatalf("action enum = %v", action.Enum)
	}
	if action.Description != "Operation to perform" {
		t.Fatalf("action description = %q", action.Description)
	}
	foundRequired := false
	for _, r := range schema.Required {
		if r == "action" {
			foundRequired = true
		}
		if r == "name" || r == "count" {
			t.Fatalf("optional field %q marked required", r)
		}
	}
	if !foundRequired {
		t.Fatalf("action not required: %v", schema.Required)
	}
}

func TestStrictDecodeRejectsUnknownFields(t *testing.T) {
	tool := demoTool()
	res, err := tool.Handler(context.Background(), &mcp.CallToolRequest{
		Name:      "demo",
		Arguments: json.RawMessage(`{"action":"create","bogus":true}`),
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Content[0].Text, "invalid arguments") {
		t.Fatalf("unknown field accepted: %+v", res)
	}
}

func TestHandlerReceivesDecodedArgs(t *testing.T) {
	tool := demoTool()
	res, err := tool.Handler(context.Background(), &mcp.CallToolRequest{
		Name:      "demo",
		Arguments: json.RawMessage(`{"action":"create","name":"x"}`),
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.Content[0].Text != "create:x" {
		t.Fatalf("result = %q", res.Content[0].Text)
	}
}

func TestContainerDispatch(t *testing.T) {
	c := NewContainer(demoTool())
	ctx := context.Background()

	if _, err := c.CallTool(ctx, &mcp.CallToolRequest{Name: "missing"}); err == nil || !strings.HasPrefix(err.Error(), "tool not found") {
		t.Fatalf("err = %v", err)
	}
	if _, err := c.CallTool(ctx, &mcp.CallToolRequest{}); err == nil || !strings.HasPrefix(err.Error(), "invalid tool request") {
		t.Fatalf("err = %v", err)
	}
	res, err := c.CallTool(ctx, &mcp.CallToolRequest{Name: "demo", Arguments: json.RawMessage(`{"action":"list"}`)})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Content[0].Text != "list:" {
		t.Fatalf("result = %q", res.Content[0].Text)
	}
}

func TestContainerPagination(t *testing.T) {
	mk := func(name string) Tool {
		return New(name, func(ctx context.Context, args demoArgs) (*mcp.CallToolResult, error) {
			return TextResult(name), nil
		})
	}
	c := NewContainer(mk("a"), mk("b"), mk("c"))
	c.SetPageSize(2)
	ctx := context.Background()

	first, err := c.ListTools(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Tools) != 2 || first.NextCursor != "2" {
		t.Fatalf("first page = %+v", first)
	}
	second, err := c.ListTools(ctx, first.NextCursor)
	if err != nil {
		t.Fatalf("list second: %v", err)
	}
	if len(second.Tools) != 1 || second.NextCursor != "" {
		t.Fatalf("second page = %+v", second)
	}
	if _, err := c.ListTools(ctx, "banana"); err == nil {
		t.Fatalf("invalid cursor accepted")
	}
}
