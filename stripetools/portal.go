package stripetools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type portalConfigurationArgs struct {
	Action            string `json:"action" jsonschema:"enum=create,enum=retrieve,enum=update,enum=list,description=Operation to perform"`
	ConfigurationID   string `json:"configuration_id,omitempty" jsonschema:"description=Portal configuration id (required for retrieve/update)"`
	Headline          string `json:"headline,omitempty" jsonschema:"description=Headline shown in the customer portal"`
	PrivacyPolicyURL  string `json:"privacy_policy_url,omitempty"`
	TermsOfServiceURL string `json:"terms_of_service_url,omitempty"`
	DefaultReturnURL  string `json:"default_return_url,omitempty" jsonschema:"description=Where customers land after leaving the portal"`
	Active            *bool  `json:"active,omitempty" jsonschema:"description=Set false on update to retire a configuration"`
	Metadata          string `json:"metadata,omitempty" jsonschema:"description=Metadata as a JSON object string"`
	Limit             int    `json:"limit,omitempty"`
	StartingAfter     string `json:"starting_after,omitempty"`
	EndingBefore      string `json:"ending_before,omitempty"`
}

func (t *Toolset) portalConfigurationsTool() toolset.Tool {
	return toolset.New("manage_portal_configurations",
		func(ctx context.Context, args portalConfigurationArgs) (*mcp.CallToolResult, error) {
			return t.managePortalConfigurations(ctx, args), nil
		},
		toolset.WithDescription("Create, retrieve, update, or list Stripe customer portal configurations."),
	)
}

func (t *Toolset) managePortalConfigurations(ctx context.Context, args portalConfigurationArgs) *mcp.CallToolResult {
	switch args.Action {
	case "create":
		form := url.Values{}
		// The portal API rejects configurations without at least one
		// feature; invoice history is the safe default.
		form.Set("features[invoice_history][enabled]", "true")
		applyPortalProfile(form, args)
		if args.DefaultReturnURL != "" {
			form.Set("default_return_url", args.DefaultReturnURL)
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Create(ctx, stripeapi.KindPortalConfiguration, form)
		if err != nil {
			return t.failUpstream(ctx, "portal_configurations.create", err)
		}
		return ok("configuration", payload, "Created portal configuration: "+objectID(payload))

	case "retrieve":
		if args.ConfigurationID == "" {
			return required("configuration_id", "retrieve")
		}
		payload, err := t.client.Retrieve(ctx, stripeapi.KindPortalConfiguration, args.ConfigurationID)
		if err != nil {
			return t.failUpstream(ctx, "portal_configurations.retrieve", err)
		}
		return ok("configuration", payload, "Retrieved portal configuration: "+objectID(payload))

	case "update":
		if args.ConfigurationID == "" {
			return required("configuration_id", "update")
		}
		form := url.Values{}
		applyPortalProfile(form, args)
		if args.DefaultReturnURL != "" {
			form.Set("default_return_url", args.DefaultReturnURL)
		}
		if args.Active != nil {
			form.Set("active", strconv.FormatBool(*args.Active))
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Update(ctx, stripeapi.KindPortalConfiguration, args.ConfigurationID, form)
		if err != nil {
			return t.failUpstream(ctx, "portal_configurations.update", err)
		}
		return ok("configuration", payload, "Updated portal configuration: "+objectID(payload))

	case "list":
		filters := map[string]string{
			"starting_after": args.StartingAfter,
			"ending_before":  args.EndingBefore,
		}
		if args.Limit > 0 {
			filters["limit"] = strconv.Itoa(args.Limit)
		}
		if args.Active != nil {
			filters["active"] = strconv.FormatBool(*args.Active)
		}
		payload, err := t.client.List(ctx, stripeapi.KindPortalConfiguration, filters)
		if err != nil {
			return t.failUpstream(ctx, "portal_configurations.list", err)
		}
		items, err := listData(payload)
		if err != nil {
			return t.failUpstream(ctx, "portal_configurations.list", err)
		}
		return okList("configurations", items, found(len(items), "portal configurations"))

	default:
		return unknownAction(args.Action)
	}
}

func applyPortalProfile(form url.Values, args portalConfigurationArgs) {
	if args.Headline != "" {
		form.Set("business_profile[headline]", args.Headline)
	}
	if args.PrivacyPolicyURL != "" {
		form.Set("business_profile[privacy_policy_url]", args.PrivacyPolicyURL)
	}
	if args.TermsOfServiceURL != "" {
		form.Set("business_profile[terms_of_service_url]", args.TermsOfServiceURL)
	}
}
