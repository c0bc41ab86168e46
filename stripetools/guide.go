package stripetools

import (
	"context"
	"strings"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type connectionGuideArgs struct{}

// connectionGuideTool returns static integration guidance. It never touches
// the network, so it works even with an invalid secret key.
func (t *Toolset) connectionGuideTool() toolset.Tool {
	return toolset.New("get_connection_guide",
		func(ctx context.Context, args connectionGuideArgs) (*mcp.CallToolResult, error) {
			var b strings.Builder
			b.WriteString("Stripe connection guide\n\n")
			b.WriteString("1. Server-side calls are already configured through this MCP server; use the manage_* tools to create and modify resources.\n")
			b.WriteString("2. Client-side code (Stripe.js, mobile SDKs) needs the publishable key, never the secret key.\n")
			if t.cfg.PublishableKey != "" {
				b.WriteString("   Publishable key: " + t.cfg.PublishableKey + "\n")
			} else {
				b.WriteString("   No publishable key is configured; set STRIPE_PUBLISHABLE_KEY to surface it here.\n")
			}
			b.WriteString("3. Webhook deliveries should be verified with the webhook signing secret.\n")
			if t.cfg.WebhookSecret != "" {
				b.WriteString("   A webhook signing secret is configured for this deployment.\n")
			} else {
				b.WriteString("   No webhook signing secret is configured; set STRIPE_WEBHOOK_SECRET after creating an endpoint.\n")
			}
			b.WriteString("4. Use manage_webhook_endpoints to register HTTPS endpoints and list_resources to inspect existing data.\n")
			return toolset.TextResult(b.String()), nil
		},
		toolset.WithDescription("Get guidance on connecting an application to Stripe, including which keys to use where."),
	)
}
