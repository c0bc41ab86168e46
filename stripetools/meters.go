package stripetools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type billingMeterArgs struct {
	Action             string `json:"action" jsonschema:"enum=create,enum=retrieve,enum=update,enum=list,enum=deactivate,enum=reactivate,description=Operation to perform"`
	MeterID            string `json:"meter_id,omitempty" jsonschema:"description=Billing meter id (required for retrieve/update/deactivate/reactivate)"`
	DisplayName        string `json:"display_name,omitempty" jsonschema:"description=Human-readable meter name (required for create)"`
	EventName          string `json:"event_name,omitempty" jsonschema:"description=Name of the usage event this meter aggregates (required for create)"`
	AggregationFormula string `json:"aggregation_formula,omitempty" jsonschema:"enum=sum,enum=count,description=How usage events are aggregated; defaults to sum"`
	Limit              int    `json:"limit,omitempty"`
	StartingAfter      string `json:"starting_after,omitempty"`
	EndingBefore       string `json:"ending_before,omitempty"`
}

func (t *Toolset) billingMetersTool() toolset.Tool {
	return toolset.New("manage_billing_meters",
		func(ctx context.Context, args billingMeterArgs) (*mcp.CallToolResult, error) {
			return t.manageBillingMeters(ctx, args), nil
		},
		toolset.WithDescription("Create, retrieve, update, list, deactivate, or reactivate Stripe billing meters for usage-based pricing."),
	)
}

func (t *Toolset) manageBillingMeters(ctx context.Context, args billingMeterArgs) *mcp.CallToolResult {
	switch args.Action {
	case "create":
		if args.DisplayName == "" {
			return required("display_name", "create")
		}
		if args.EventName == "" {
			return required("event_name", "create")
		}
		form := url.Values{}
		form.Set("display_name", args.DisplayName)
		form.Set("event_name", args.EventName)
		formula := args.AggregationFormula
		if formula == "" {
			formula = "sum"
		}
		form.Set("default_aggregation[formula]", formula)
		payload, err := t.client.Create(ctx, stripeapi.KindBillingMeter, form)
		if err != nil {
			return t.failUpstream(ctx, "billing_meters.create", err)
		}
		return ok("meter", payload, "Created meter: "+label(payload))

	case "retrieve":
		if args.MeterID == "" {
			return required("meter_id", "retrieve")
		}
		payload, err := t.client.Retrieve(ctx, stripeapi.KindBillingMeter, args.MeterID)
		if err != nil {
			return t.failUpstream(ctx, "billing_meters.retrieve", err)
		}
		return ok("meter", payload, "Retrieved meter: "+label(payload))

	case "update":
		// Only display_name is mutable after creation.
		if args.MeterID == "" {
			return required("meter_id", "update")
		}
		if args.DisplayName == "" {
			return required("display_name", "update")
		}
		form := url.Values{}
		form.Set("display_name", args.DisplayName)
		payload, err := t.client.Update(ctx, stripeapi.KindBillingMeter, args.MeterID, form)
		if err != nil {
			return t.failUpstream(ctx, "billing_meters.update", err)
		}
		return ok("meter", payload, "Updated meter: "+label(payload))

	case "list":
		filters := map[string]string{
			"starting_after": args.StartingAfter,
			"ending_before":  args.EndingBefore,
		}
		if args.Limit > 0 {
			filters["limit"] = strconv.Itoa(args.Limit)
		}
		payload, err := t.client.List(ctx, stripeapi.KindBillingMeter, filters)
		if err != nil {
			return t.failUpstream(ctx, "billing_meters.list", err)
		}
		items, err := listData(payload)
		if err != nil {
			return t.failUpstream(ctx, "billing_meters.list", err)
		}
		return okList("meters", items, found(len(items), "meters"))

	case "deactivate":
		if args.MeterID == "" {
			return required("meter_id", "deactivate")
		}
		payload, err := t.client.Act(ctx, stripeapi.KindBillingMeter, args.MeterID, "deactivate")
		if err != nil {
			return t.failUpstream(ctx, "billing_meters.deactivate", err)
		}
		return ok("meter", payload, "Deactivated meter: "+objectID(payload))

	case "reactivate":
		if args.MeterID == "" {
			return required("meter_id", "reactivate")
		}
		payload, err := t.client.Act(ctx, stripeapi.KindBillingMeter, args.MeterID, "reactivate")
		if err != nil {
			return t.failUpstream(ctx, "billing_meters.reactivate", err)
		}
		return ok("meter", payload, "Reactivated meter: "+objectID(payload))

	default:
		return unknownAction(args.Action)
	}
}
