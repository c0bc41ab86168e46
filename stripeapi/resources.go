package stripeapi

import (
	"fmt"
	"net/url"
)

// Kind identifies a Stripe resource family the adapter can operate on.
type Kind string

const (
	KindProduct             Kind = "products"
	KindPrice               Kind = "prices"
	KindCoupon              Kind = "coupons"
	KindCustomer            Kind = "customers"
	KindSubscription        Kind = "subscriptions"
	KindPaymentIntent       Kind = "payment_intents"
	KindWebhookEndpoint     Kind = "webhook_endpoints"
	KindBillingMeter        Kind = "billing_meters"
	KindPortalConfiguration Kind = "portal_configurations"
)

// kindSpec declares everything the adapter needs to serve one resource
// family: the REST path, the nouns used in response envelopes, and the
// accepted list-filter argument names mapped to their form keys. One table
// row replaces a family of hand-written endpoint wrappers.
type kindSpec struct {
	path     string
	singular string
	plural   string
	// listFilters maps caller-facing filter names to Stripe form keys.
	// Filters absent from the map are rejected rather than forwarded.
	listFilters map[string]string
}

var kindTable = map[Kind]kindSpec{
	KindProduct: {
		path:     "/v1/products",
		singular: "product",
		plural:   "products",
		listFilters: map[string]string{
			"active":    "active",
			"shippable": "shippable",
			"url":       "url",
		},
	},
	KindPrice: {
		path:     "/v1/prices",
		singular: "price",
		plural:   "prices",
		listFilters: map[string]string{
			"active":   "active",
			"product":  "product",
			"currency": "currency",
			"type":     "type",
		},
	},
	KindCoupon: {
		path:        "/v1/coupons",
		singular:    "coupon",
		plural:      "coupons",
		listFilters: map[string]string{},
	},
	KindCustomer: {
		path:     "/v1/customers",
		singular: "customer",
		plural:   "customers",
		listFilters: map[string]string{
			"email": "email",
		},
	},
	KindSubscription: {
		path:     "/v1/subscriptions",
		singular: "subscription",
		plural:   "subscriptions",
		listFilters: map[string]string{
			"customer": "customer",
			"price":    "price",
			"status":   "status",
		},
	},
	KindPaymentIntent: {
		path:     "/v1/payment_intents",
		singular: "payment_intent",
		plural:   "payment_intents",
		listFilters: map[string]string{
			"customer": "customer",
		},
	},
	KindWebhookEndpoint: {
		path:        "/v1/webhook_endpoints",
		singular:    "webhook_endpoint",
		plural:      "webhook_endpoints",
		listFilters: map[string]string{},
	},
	KindBillingMeter: {
		path:     "/v1/billing/meters",
		singular: "meter",
		plural:   "meters",
		listFilters: map[string]string{
			"status": "status",
		},
	},
	KindPortalConfiguration: {
		path:     "/v1/billing_portal/configurations",
		singular: "configuration",
		plural:   "configurations",
		listFilters: map[string]string{
			"active":     "active",
			"is_default": "is_default",
		},
	},
}

// Nouns returns the singular and plural nouns used in response envelopes for
// the kind.
func Nouns(kind Kind) (singular, plural string, err error) {
	spec, ok := kindTable[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown resource kind %q", kind)
	}
	return spec.singular, spec.plural, nil
}

// buildListForm translates generic filter arguments into the kind's form
// keys. Pagination arguments are shared by every kind.
func buildListForm(spec kindSpec, filters map[string]string) (url.Values, error) {
	form := url.Values{}
	for name, val := range filters {
		if val == "" {
			continue
		}
		switch name {
		case "limit", "starting_after", "ending_before":
			form.Set(name, val)
		default:
			key, ok := spec.listFilters[name]
			if !ok {
				return nil, fmt.Errorf("unsupported filter %q for %s", name, spec.plural)
			}
			form.Set(key, val)
		}
	}
	return form, nil
}
