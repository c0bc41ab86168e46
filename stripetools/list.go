package stripetools

import (
	"context"
	"strconv"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type listResourcesArgs struct {
	Resource      string `json:"resource" jsonschema:"enum=products,enum=prices,enum=coupons,enum=customers,enum=subscriptions,enum=payment_intents,enum=webhook_endpoints,enum=billing_meters,description=Resource kind to list"`
	Limit         int    `json:"limit,omitempty" jsonschema:"description=Page size (1-100)"`
	StartingAfter string `json:"starting_after,omitempty" jsonschema:"description=Object id to page forward from"`
	EndingBefore  string `json:"ending_before,omitempty" jsonschema:"description=Object id to page backward from"`
	Active        *bool  `json:"active,omitempty" jsonschema:"description=Filter by active flag (products, prices)"`
	Product       string `json:"product,omitempty" jsonschema:"description=Filter prices by product id"`
	Currency      string `json:"currency,omitempty" jsonschema:"description=Filter prices by currency"`
	Customer      string `json:"customer,omitempty" jsonschema:"description=Filter subscriptions or payment intents by customer id"`
	Status        string `json:"status,omitempty" jsonschema:"description=Filter subscriptions or billing meters by status"`
	Email         string `json:"email,omitempty" jsonschema:"description=Filter customers by email"`
}

// listResourcesTool is the generic read across resource kinds. Filters that
// do not apply to the chosen kind are rejected before any network call.
func (t *Toolset) listResourcesTool() toolset.Tool {
	return toolset.New("list_resources",
		func(ctx context.Context, args listResourcesArgs) (*mcp.CallToolResult, error) {
			return t.listResources(ctx, args), nil
		},
		toolset.WithDescription("List Stripe resources of a given kind with optional filters and pagination."),
	)
}

func (t *Toolset) listResources(ctx context.Context, args listResourcesArgs) *mcp.CallToolResult {
	if args.Resource == "" {
		return required("resource", "list")
	}
	kind := stripeapi.Kind(args.Resource)
	_, plural, err := stripeapi.Nouns(kind)
	if err != nil {
		return fail(err.Error())
	}

	filters := map[string]string{
		"starting_after": args.StartingAfter,
		"ending_before":  args.EndingBefore,
		"product":        args.Product,
		"currency":       args.Currency,
		"customer":       args.Customer,
		"status":         args.Status,
		"email":          args.Email,
	}
	if args.Limit > 0 {
		filters["limit"] = strconv.Itoa(args.Limit)
	}
	if args.Active != nil {
		filters["active"] = strconv.FormatBool(*args.Active)
	}

	payload, err := t.client.List(ctx, kind, filters)
	if err != nil {
		return t.failUpstream(ctx, "list_resources."+args.Resource, err)
	}
	items, err := listData(payload)
	if err != nil {
		return t.failUpstream(ctx, "list_resources."+args.Resource, err)
	}
	return okList(plural, items, found(len(items), plural))
}
