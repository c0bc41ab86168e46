// Package toolset provides typed tool registration and dispatch for the MCP
// tools capability. Tools declare their input as a Go struct; the schema
// exposed to clients is reflected from that struct and arguments are decoded
// strictly (unknown fields rejected) before the handler runs.
package toolset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/acuteworks/stripe-mcp/mcp"
)

// Handler is the raw dispatch signature for a tool invocation.
type Handler func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Tool pairs an MCP tool descriptor with its handler.
type Tool struct {
	Descriptor mcp.Tool
	Handler    Handler
}

// Option configures New.
type Option func(*toolConfig)

type toolConfig struct {
	description     string
	allowAdditional bool
}

// WithDescription sets the tool description used in listings.
func WithDescription(desc string) Option {
	return func(c *toolConfig) { c.description = desc }
}

// WithAllowAdditionalProperties permits unknown argument fields. Default is
// strict: the schema sets additionalProperties=false and decoding rejects
// unknown fields.
func WithAllowAdditionalProperties(allow bool) Option {
	return func(c *toolConfig) { c.allowAdditional = allow }
}

// New constructs a Tool from a typed args struct A. The input schema is
// reflected from A via invopop/jsonschema and down-converted to the
// simplified MCP shape. Argument decode failures become IsError results, not
// protocol errors, so the client sees what was wrong with its call.
func New[A any](name string, fn func(ctx context.Context, args A) (*mcp.CallToolResult, error), opts ...Option) Tool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	desc := mcp.Tool{
		Name:        name,
		Description: cfg.description,
		InputSchema: reflectInputSchema[A](cfg.allowAdditional),
	}
	handler := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var a A
		if len(req.Arguments) > 0 {
			if cfg.allowAdditional {
				if err := json.Unmarshal(req.Arguments, &a); err != nil {
					return Errorf("invalid arguments: %v", err), nil
				}
			} else {
				dec := json.NewDecoder(bytes.NewReader(req.Arguments))
				dec.DisallowUnknownFields()
				if err := dec.Decode(&a); err != nil {
					return Errorf("invalid arguments: %v", err), nil
				}
			}
		}
		return fn(ctx, a)
	}
	return Tool{Descriptor: desc, Handler: handler}
}

// reflectInputSchema reflects A into the simplified mcp.ToolInputSchema.
func reflectInputSchema[A any](allowAdditional bool) mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: allowAdditional,
	}
	s := r.Reflect(new(A))
	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{
			Type:                 "object",
			Properties:           map[string]mcp.SchemaProperty{},
			AdditionalProperties: allowAdditional,
		}
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toProperty(el.Value)
		}
	}
	var required []string
	required = append(required, s.Required...)

	return mcp.ToolInputSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: allowAdditional,
	}
}

// toProperty recursively maps a jsonschema node to the simplified MCP shape.
func toProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{Type: s.Type, Description: s.Description}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}

// TextResult builds a success CallToolResult with one text block.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: s}}}
}

// Errorf builds an error CallToolResult with a single text block.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: fmt.Sprintf(format, a...)}},
		IsError: true,
	}
}
