// Package stripetools defines the tool catalog exposed over MCP. Every tool
// translates a validated argument bag into at most one call through the
// stripeapi adapter and wraps the outcome in the compatibility envelope:
// {success:true, <resource>:..., message:"..."} on success and
// {success:false, error:"..."} on any failure. Failures are results, never
// protocol errors, so clients always get the envelope shape they expect.
package stripetools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

// Config carries the non-secret deployment values some tools surface.
type Config struct {
	PublishableKey string
	WebhookSecret  string
}

// Toolset binds the tool handlers to a Stripe client and logger.
type Toolset struct {
	client *stripeapi.Client
	cfg    Config
	log    *slog.Logger
}

// Option configures New.
type Option func(*Toolset)

// WithLogger sets the logger used for upstream failures. Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(t *Toolset) {
		if l != nil {
			t.log = l
		}
	}
}

// New builds the full tool container backed by client.
func New(client *stripeapi.Client, cfg Config, opts ...Option) *toolset.Container {
	t := &Toolset{client: client, cfg: cfg, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(t)
	}
	return toolset.NewContainer(
		t.connectionGuideTool(),
		t.productsTool(),
		t.pricesTool(),
		t.couponsTool(),
		t.webhookEndpointsTool(),
		t.billingMetersTool(),
		t.portalConfigurationsTool(),
		t.listResourcesTool(),
	)
}

// envelope serializes env as the single text block and mirrors it as
// structured content.
func envelope(env map[string]any, isErr bool) *mcp.CallToolResult {
	b, err := json.Marshal(env)
	if err != nil {
		// Only reachable with a non-serializable payload, which the adapter
		// never produces.
		return toolset.Errorf(`{"success":false,"error":"failed to encode response"}`)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.ContentBlock{{Type: "text", Text: string(b)}},
		StructuredContent: env,
		IsError:           isErr,
	}
}

func ok(noun string, payload json.RawMessage, message string) *mcp.CallToolResult {
	return envelope(map[string]any{
		"success": true,
		noun:      payload,
		"message": message,
	}, false)
}

func okList(plural string, items []json.RawMessage, message string) *mcp.CallToolResult {
	return envelope(map[string]any{
		"success": true,
		plural:    items,
		"message": message,
	}, false)
}

func fail(message string) *mcp.CallToolResult {
	return envelope(map[string]any{
		"success": false,
		"error":   message,
	}, true)
}

// failUpstream logs an adapter failure and surfaces its message in the
// envelope.
func (t *Toolset) failUpstream(ctx context.Context, op string, err error) *mcp.CallToolResult {
	t.log.WarnContext(ctx, "stripe.call.fail",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return fail(err.Error())
}

func required(field, action string) *mcp.CallToolResult {
	return fail(fmt.Sprintf("%s is required for %s action", field, action))
}

func unknownAction(action string) *mcp.CallToolResult {
	return fail(fmt.Sprintf("unknown action: %s", action))
}

// applyMetadata parses a metadata JSON object string and flattens it into
// Stripe form notation. A nil result means the form was updated.
func applyMetadata(form map[string][]string, raw string) *mcp.CallToolResult {
	if raw == "" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return fail("Invalid metadata JSON format")
	}
	for k, v := range meta {
		form["metadata["+k+"]"] = []string{v}
	}
	return nil
}

// label extracts a display label from a raw Stripe object: name when
// present, id otherwise.
func label(payload json.RawMessage) string {
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return ""
	}
	if obj.Name != "" {
		return obj.Name
	}
	return obj.ID
}

// objectID extracts the id field from a raw Stripe object.
func objectID(payload json.RawMessage) string {
	var obj struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(payload, &obj)
	return obj.ID
}

// listData unwraps a Stripe list response into its data items.
func listData(payload json.RawMessage) ([]json.RawMessage, error) {
	var list struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("unexpected list payload: %w", err)
	}
	if list.Data == nil {
		list.Data = []json.RawMessage{}
	}
	return list.Data, nil
}

func found(n int, plural string) string {
	return fmt.Sprintf("Found %d %s", n, plural)
}
