package stripetools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type couponArgs struct {
	Action           string   `json:"action" jsonschema:"enum=create,enum=retrieve,enum=update,enum=list,enum=delete,description=Operation to perform"`
	CouponID         string   `json:"coupon_id,omitempty" jsonschema:"description=Coupon id (required for retrieve/update/delete)"`
	Name             string   `json:"name,omitempty"`
	PercentOff       *float64 `json:"percent_off,omitempty" jsonschema:"description=Percentage discount; exactly one of percent_off or amount_off for create"`
	AmountOff        *int64   `json:"amount_off,omitempty" jsonschema:"description=Fixed discount in the smallest currency unit; requires currency"`
	Currency         string   `json:"currency,omitempty"`
	Duration         string   `json:"duration,omitempty" jsonschema:"enum=once,enum=repeating,enum=forever,description=How long the discount applies; defaults to once"`
	DurationInMonths *int64   `json:"duration_in_months,omitempty" jsonschema:"description=Months the discount repeats; only with duration=repeating"`
	Metadata         string   `json:"metadata,omitempty" jsonschema:"description=Metadata as a JSON object string"`
	Limit            int      `json:"limit,omitempty"`
	StartingAfter    string   `json:"starting_after,omitempty"`
	EndingBefore     string   `json:"ending_before,omitempty"`
}

func (t *Toolset) couponsTool() toolset.Tool {
	return toolset.New("manage_coupons",
		func(ctx context.Context, args couponArgs) (*mcp.CallToolResult, error) {
			return t.manageCoupons(ctx, args), nil
		},
		toolset.WithDescription("Create, retrieve, update, list, or delete Stripe coupons."),
	)
}

func (t *Toolset) manageCoupons(ctx context.Context, args couponArgs) *mcp.CallToolResult {
	switch args.Action {
	case "create":
		if args.PercentOff == nil && args.AmountOff == nil {
			return required("percent_off or amount_off", "create")
		}
		if args.AmountOff != nil && args.Currency == "" {
			return required("currency", "create")
		}
		form := url.Values{}
		if args.PercentOff != nil {
			form.Set("percent_off", strconv.FormatFloat(*args.PercentOff, 'f', -1, 64))
		}
		if args.AmountOff != nil {
			form.Set("amount_off", strconv.FormatInt(*args.AmountOff, 10))
			form.Set("currency", args.Currency)
		}
		if args.Name != "" {
			form.Set("name", args.Name)
		}
		if args.Duration != "" {
			form.Set("duration", args.Duration)
		}
		if args.DurationInMonths != nil {
			form.Set("duration_in_months", strconv.FormatInt(*args.DurationInMonths, 10))
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Create(ctx, stripeapi.KindCoupon, form)
		if err != nil {
			return t.failUpstream(ctx, "coupons.create", err)
		}
		return ok("coupon", payload, "Created coupon: "+label(payload))

	case "retrieve":
		if args.CouponID == "" {
			return required("coupon_id", "retrieve")
		}
		payload, err := t.client.Retrieve(ctx, stripeapi.KindCoupon, args.CouponID)
		if err != nil {
			return t.failUpstream(ctx, "coupons.retrieve", err)
		}
		return ok("coupon", payload, "Retrieved coupon: "+label(payload))

	case "update":
		// Stripe only allows name and metadata updates on coupons.
		if args.CouponID == "" {
			return required("coupon_id", "update")
		}
		form := url.Values{}
		if args.Name != "" {
			form.Set("name", args.Name)
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Update(ctx, stripeapi.KindCoupon, args.CouponID, form)
		if err != nil {
			return t.failUpstream(ctx, "coupons.update", err)
		}
		return ok("coupon", payload, "Updated coupon: "+label(payload))

	case "list":
		filters := map[string]string{
			"starting_after": args.StartingAfter,
			"ending_before":  args.EndingBefore,
		}
		if args.Limit > 0 {
			filters["limit"] = strconv.Itoa(args.Limit)
		}
		payload, err := t.client.List(ctx, stripeapi.KindCoupon, filters)
		if err != nil {
			return t.failUpstream(ctx, "coupons.list", err)
		}
		items, err := listData(payload)
		if err != nil {
			return t.failUpstream(ctx, "coupons.list", err)
		}
		return okList("coupons", items, found(len(items), "coupons"))

	case "delete":
		if args.CouponID == "" {
			return required("coupon_id", "delete")
		}
		payload, err := t.client.Delete(ctx, stripeapi.KindCoupon, args.CouponID)
		if err != nil {
			return t.failUpstream(ctx, "coupons.delete", err)
		}
		return ok("coupon", payload, "Deleted coupon: "+objectID(payload))

	default:
		return unknownAction(args.Action)
	}
}
