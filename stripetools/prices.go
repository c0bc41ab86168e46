package stripetools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type priceArgs struct {
	Action            string `json:"action" jsonschema:"enum=create,enum=retrieve,enum=update,enum=list,description=Operation to perform"`
	PriceID           string `json:"price_id,omitempty" jsonschema:"description=Price id (required for retrieve/update)"`
	Product           string `json:"product,omitempty" jsonschema:"description=Product id the price belongs to (required for create)"`
	UnitAmount        *int64 `json:"unit_amount,omitempty" jsonschema:"description=Amount in the smallest currency unit (required for create)"`
	Currency          string `json:"currency,omitempty" jsonschema:"description=Three-letter ISO currency code (required for create)"`
	RecurringInterval string `json:"recurring_interval,omitempty" jsonschema:"enum=day,enum=week,enum=month,enum=year,description=Billing interval for recurring prices; omit for one-time"`
	Nickname          string `json:"nickname,omitempty"`
	Active            *bool  `json:"active,omitempty" jsonschema:"description=Set false on update to deactivate a price"`
	Metadata          string `json:"metadata,omitempty" jsonschema:"description=Metadata as a JSON object string"`
	Limit             int    `json:"limit,omitempty"`
	StartingAfter     string `json:"starting_after,omitempty"`
	EndingBefore      string `json:"ending_before,omitempty"`
}

// pricesTool has no delete action: Stripe prices are deactivated by updating
// active=false.
func (t *Toolset) pricesTool() toolset.Tool {
	return toolset.New("manage_prices",
		func(ctx context.Context, args priceArgs) (*mcp.CallToolResult, error) {
			return t.managePrices(ctx, args), nil
		},
		toolset.WithDescription("Create, retrieve, update, or list Stripe prices. Deactivate a price by updating it with active=false."),
	)
}

func (t *Toolset) managePrices(ctx context.Context, args priceArgs) *mcp.CallToolResult {
	switch args.Action {
	case "create":
		if args.Product == "" {
			return required("product", "create")
		}
		if args.UnitAmount == nil {
			return required("unit_amount", "create")
		}
		if args.Currency == "" {
			return required("currency", "create")
		}
		form := url.Values{}
		form.Set("product", args.Product)
		form.Set("unit_amount", strconv.FormatInt(*args.UnitAmount, 10))
		form.Set("currency", args.Currency)
		if args.RecurringInterval != "" {
			form.Set("recurring[interval]", args.RecurringInterval)
		}
		if args.Nickname != "" {
			form.Set("nickname", args.Nickname)
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Create(ctx, stripeapi.KindPrice, form)
		if err != nil {
			return t.failUpstream(ctx, "prices.create", err)
		}
		return ok("price", payload, "Created price: "+objectID(payload))

	case "retrieve":
		if args.PriceID == "" {
			return required("price_id", "retrieve")
		}
		payload, err := t.client.Retrieve(ctx, stripeapi.KindPrice, args.PriceID)
		if err != nil {
			return t.failUpstream(ctx, "prices.retrieve", err)
		}
		return ok("price", payload, "Retrieved price: "+objectID(payload))

	case "update":
		if args.PriceID == "" {
			return required("price_id", "update")
		}
		form := url.Values{}
		if args.Nickname != "" {
			form.Set("nickname", args.Nickname)
		}
		if args.Active != nil {
			form.Set("active", strconv.FormatBool(*args.Active))
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Update(ctx, stripeapi.KindPrice, args.PriceID, form)
		if err != nil {
			return t.failUpstream(ctx, "prices.update", err)
		}
		return ok("price", payload, "Updated price: "+objectID(payload))

	case "list":
		filters := map[string]string{
			"product":        args.Product,
			"currency":       args.Currency,
			"starting_after": args.StartingAfter,
			"ending_before":  args.EndingBefore,
		}
		if args.Limit > 0 {
			filters["limit"] = strconv.Itoa(args.Limit)
		}
		if args.Active != nil {
			filters["active"] = strconv.FormatBool(*args.Active)
		}
		payload, err := t.client.List(ctx, stripeapi.KindPrice, filters)
		if err != nil {
			return t.failUpstream(ctx, "prices.list", err)
		}
		items, err := listData(payload)
		if err != nil {
			return t.failUpstream(ctx, "prices.list", err)
		}
		return okList("prices", items, found(len(items), "prices"))

	default:
		return unknownAction(args.Action)
	}
}
