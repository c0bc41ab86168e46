package stripetools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

type productArgs struct {
	Action        string `json:"action" jsonschema:"enum=create,enum=retrieve,enum=update,enum=list,enum=delete,description=Operation to perform"`
	ProductID     string `json:"product_id,omitempty" jsonschema:"description=Product id (required for retrieve/update/delete)"`
	Name          string `json:"name,omitempty" jsonschema:"description=Product name (required for create)"`
	Description   string `json:"description,omitempty"`
	URL           string `json:"url,omitempty" jsonschema:"description=Public URL of the product"`
	Active        *bool  `json:"active,omitempty"`
	Metadata      string `json:"metadata,omitempty" jsonschema:"description=Metadata as a JSON object string"`
	Limit         int    `json:"limit,omitempty" jsonschema:"description=Page size for list (1-100)"`
	StartingAfter string `json:"starting_after,omitempty"`
	EndingBefore  string `json:"ending_before,omitempty"`
}

func (t *Toolset) productsTool() toolset.Tool {
	return toolset.New("manage_products",
		func(ctx context.Context, args productArgs) (*mcp.CallToolResult, error) {
			return t.manageProducts(ctx, args), nil
		},
		toolset.WithDescription("Create, retrieve, update, list, or delete Stripe products."),
	)
}

func (t *Toolset) manageProducts(ctx context.Context, args productArgs) *mcp.CallToolResult {
	switch args.Action {
	case "create":
		if args.Name == "" {
			return required("name", "create")
		}
		form := url.Values{}
		form.Set("name", args.Name)
		if args.Description != "" {
			form.Set("description", args.Description)
		}
		if args.URL != "" {
			form.Set("url", args.URL)
		}
		if args.Active != nil {
			form.Set("active", strconv.FormatBool(*args.Active))
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Create(ctx, stripeapi.KindProduct, form)
		if err != nil {
			return t.failUpstream(ctx, "products.create", err)
		}
		return ok("product", payload, "Created product: "+label(payload))

	case "retrieve":
		if args.ProductID == "" {
			return required("product_id", "retrieve")
		}
		payload, err := t.client.Retrieve(ctx, stripeapi.KindProduct, args.ProductID)
		if err != nil {
			return t.failUpstream(ctx, "products.retrieve", err)
		}
		return ok("product", payload, "Retrieved product: "+label(payload))

	case "update":
		if args.ProductID == "" {
			return required("product_id", "update")
		}
		form := url.Values{}
		if args.Name != "" {
			form.Set("name", args.Name)
		}
		if args.Description != "" {
			form.Set("description", args.Description)
		}
		if args.URL != "" {
			form.Set("url", args.URL)
		}
		if args.Active != nil {
			form.Set("active", strconv.FormatBool(*args.Active))
		}
		if res := applyMetadata(form, args.Metadata); res != nil {
			return res
		}
		payload, err := t.client.Update(ctx, stripeapi.KindProduct, args.ProductID, form)
		if err != nil {
			return t.failUpstream(ctx, "products.update", err)
		}
		return ok("product", payload, "Updated product: "+label(payload))

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
		payload, err := t.client.List(ctx, stripeapi.KindProduct, filters)
		if err != nil {
			return t.failUpstream(ctx, "products.list", err)
		}
		items, err := listData(payload)
		if err != nil {
			return t.failUpstream(ctx, "products.list", err)
		}
		return okList("products", items, found(len(items), "products"))

	case "delete":
		if args.ProductID == "" {
			return required("product_id", "delete")
		}
		payload, err := t.client.Delete(ctx, stripeapi.KindProduct, args.ProductID)
		if err != nil {
			return t.failUpstream(ctx, "products.delete", err)
		}
		return ok("product", payload, "Deleted product: "+objectID(payload))

	default:
		return unknownAction(args.Action)
	}
}
