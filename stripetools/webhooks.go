package stripetools

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type webhookEndpointArgs struct {
	Action            string   `json:"action" jsonschema:"enum=create,enum=retrieve,enum=update,enum=list,enum=delete,description=Operation to perform"`
	WebhookEndpointID string   `json:"webhook_endpoint_id,omitempty" jsonschema:"description=Webhook endpoint id (required for retrieve/update/delete)"`
	URL               string   `json:"url,omitempty" jsonschema:"description=HTTPS delivery URL (required for create)"`
	EnabledEvents     []string `json:"enabled_events,omitempty" jsonschema:"description=Event types to deliver, e.g. payment_intent.succeeded (required for create)"`
	Description       string   `json:"description,omitempty"`
	Disabled          *bool    `json:"disabled,omitempty" jsonschema:"description=Set true on update to pause deliveries"`
	Metadata          string   `json:"metadata,omitempty" jsonschema:"description=Metadata as a JSON object string"`
	Limit             int      `json:"limit,omitempty"`
	StartingAfter     string   `json:"starting_after,omitempty"`
	EndingBefore      string   `json:"ending_before,omitempty"`
}

func (t *Toolset) webhookEndpointsTool() toolset.Tool {
	return toolset.New("manage_webhook_endpoints",
		func(ctx context.Context, args webhookEndpointArgs) (*mcp.CallToolResult, error) {
			return t.manageWebhookEndpoints(ctx, args), nil
		},
		toolset.WithDescription("Create, retrieve, update, list, or delete Stripe webhook endpoints. Endpoint URLs must use HTTPS."),
	)
}

func (t *Toolset) manageWebhookEndpoints(ctx context.Context, args webhookEndpointArgs) *mcp.CallToolResult {
	switch args.Action {
	case "create":
		if args.URL == "" {
			return required("url", "create")
		}
		if !strings.HasPrefix(args.URL, "https://") {
			return fail("Webhook endpoint URL must start with https://")
		}
		if len(args.EnabledEvents) == 0 {
			return required("enabled_events", "create")
		}
		form := url.Values{}
		form.Set("url", args.URL)
		for _, ev := range args.EnabledEvents {
			form.Add("enabled_events[]", ev)
		}
		if args.Description != "" {
			form.Set("description", args.Description)
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Create(ctx, stripeapi.KindWebhookEndpoint, form)
		if err != nil {
			return t.failUpstream(ctx, "webhook_endpoints.create", err)
		}
		return ok("webhook_endpoint", payload, "Created webhook endpoint: "+objectID(payload))

	case "retrieve":
		if args.WebhookEndpointID == "" {
			return required("webhook_endpoint_id", "retrieve")
		}
		payload, err := t.client.Retrieve(ctx, stripeapi.KindWebhookEndpoint, args.WebhookEndpointID)
		if err != nil {
			return t.failUpstream(ctx, "webhook_endpoints.retrieve", err)
		}
		return ok("webhook_endpoint", payload, "Retrieved webhook endpoint: "+objectID(payload))

	case "update":
		if args.WebhookEndpointID == "" {
			return required("webhook_endpoint_id", "update")
		}
		if args.URL != "" && !strings.HasPrefix(args.URL, "https://") {
			return fail("Webhook endpoint URL must start with https://")
		}
		form := url.Values{}
		if args.URL != "" {
			form.Set("url", args.URL)
		}
		for _, ev := range args.EnabledEvents {
			form.Add("enabled_events[]", ev)
		}
		if args.Description != "" {
			form.Set("description", args.Description)
		}
		if args.Disabled != nil {
			form.Set("disabled", strconv.FormatBool(*args.Disabled))
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Update(ctx, stripeapi.KindWebhookEndpoint, args.WebhookEndpointID, form)
		if err != nil {
			return t.failUpstream(ctx, "webhook_endpoints.update", err)
		}
		return ok("webhook_endpoint", payload, "Updated webhook endpoint: "+objectID(payload))

	case "list":
		filters := map[string]string{
			"starting_after": args.StartingAfter,
			"ending_before":  args.EndingBefore,
		}
		if args.Limit > 0 {
			filters["limit"] = strconv.Itoa(args.Limit)
		}
		payload, err := t.client.List(ctx, stripeapi.KindWebhookEndpoint, filters)
		if err != nil {
			return t.failUpstream(ctx, "webhook_endpoints.list", err)
		}
		items, err := listData(payload)
		if err != nil {
			return t.failUpstream(ctx, "webhook_endpoints.list", err)
		}
		return okList("webhook_endpoints", items, found(len(items), "webhook endpoints"))

	case "delete":
		if args.WebhookEndpointID == "" {
			return required("webhook_endpoint_id", "delete")
		}
		payload, err := t.client.Delete(ctx, stripeapi.KindWebhookEndpoint, args.WebhookEndpointID)
		if err != nil {
			return t.failUpstream(ctx, "webhook_endpoints.delete", err)
		}
		return ok("webhook_endpoint", payload, "Deleted webhook endpoint: "+objectID(payload))

	default:
		return unknownAction(args.Action)
	}
}
