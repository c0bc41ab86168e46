// Package stripeapi adapts the Stripe REST API for the tool layer. A small
// declarative table (resources.go) describes each resource family; Client
// turns table rows plus url.Values into raw API calls through the official
// SDK's backend, returning the unparsed JSON payload so callers can wrap it
// without re-modelling every Stripe object.
package stripeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

// Backend performs one HTTP call against the Stripe API and returns the raw
// response body. Implementations map non-2xx responses to *UpstreamError.
type Backend interface {
	Call(ctx context.Context, method, path string, form url.Values) (json.RawMessage, error)
}

// UpstreamError is a non-2xx answer from Stripe. Error() returns only the
// human-readable message; status and code are kept for logging.
type UpstreamError struct {
	Status int
	Code   string
	Msg    string
}

func (e *UpstreamError) Error() string { return e.Msg }

type sdkBackend struct {
	key     string
	backend stripe.Backend
}

// NewBackend returns a Backend that calls the live Stripe API with apiKey.
func NewBackend(apiKey string) Backend {
	return &sdkBackend{key: apiKey, backend: stripe.GetBackend(stripe.APIBackend)}
}

func (b *sdkBackend) Call(ctx context.Context, method, path string, form url.Values) (json.RawMessage, error) {
	var body []byte
	switch method {
	case http.MethodGet, http.MethodDelete:
		if enc := form.Encode(); enc != "" {
			path += "?" + enc
		}
	default:
		body = []byte(form.Encode())
	}

	var res stripe.APIResource
	params := &stripe.Params{Context: ctx}
	if err := b.backend.CallRaw(method, path, b.key, body, params, &res); err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			msg := se.Msg
			if msg == "" {
				msg = string(se.Code)
			}
			return nil, &UpstreamError{Status: se.HTTPStatusCode, Code: string(se.Code), Msg: msg}
		}
		return nil, err
	}
	if res.LastResponse == nil {
		return nil, fmt.Errorf("stripe: no response for %s %s", method, path)
	}
	return json.RawMessage(res.LastResponse.RawJSON), nil
}

// Client exposes the table-driven CRUD verbs over a Backend.
type Client struct {
	backend Backend
}

// NewClient wraps backend.
func NewClient(backend Backend) *Client {
	return &Client{backend: backend}
}

func (c *Client) spec(kind Kind) (kindSpec, error) {
	spec, ok := kindTable[kind]
	if !ok {
		return kindSpec{}, fmt.Errorf("unknown resource kind %q", kind)
	}
	return spec, nil
}

// Create POSTs form to the kind's collection path.
func (c *Client) Create(ctx context.Context, kind Kind, form url.Values) (json.RawMessage, error) {
	spec, err := c.spec(kind)
	if err != nil {
		return nil, err
	}
	return c.backend.Call(ctx, http.MethodPost, spec.path, form)
}

// Retrieve GETs a single object by id.
func (c *Client) Retrieve(ctx context.Context, kind Kind, id string) (json.RawMessage, error) {
	spec, err := c.spec(kind)
	if err != nil {
		return nil, err
	}
	return c.backend.Call(ctx, http.MethodGet, spec.path+"/"+url.PathEscape(id), nil)
}

// Update POSTs form to an object path.
func (c *Client) Update(ctx context.Context, kind Kind, id string, form url.Values) (json.RawMessage, error) {
	spec, err := c.spec(kind)
	if err != nil {
		return nil, err
	}
	return c.backend.Call(ctx, http.MethodPost, spec.path+"/"+url.PathEscape(id), form)
}

// Delete issues DELETE on an object path.
func (c *Client) Delete(ctx context.Context, kind Kind, id string) (json.RawMessage, error) {
	spec, err := c.spec(kind)
	if err != nil {
		return nil, err
	}
	return c.backend.Call(ctx, http.MethodDelete, spec.path+"/"+url.PathEscape(id), nil)
}

// List GETs the collection path with the kind's declared filters applied.
// Unsupported filter names are rejected before any network call.
func (c *Client) List(ctx context.Context, kind Kind, filters map[string]string) (json.RawMessage, error) {
	spec, err := c.spec(kind)
	if err != nil {
		return nil, err
	}
	form, err := buildListForm(spec, filters)
	if err != nil {
		return nil, err
	}
	return c.backend.Call(ctx, http.MethodGet, spec.path, form)
}

// Act POSTs to a named sub-action of an object, e.g. billing meter
// deactivate/reactivate.
func (c *Client) Act(ctx context.Context, kind Kind, id, action string) (json.RawMessage, error) {
	spec, err := c.spec(kind)
	if err != nil {
		return nil, err
	}
	action = strings.Trim(action, "/")
	return c.backend.Call(ctx, http.MethodPost, spec.path+"/"+url.PathEscape(id)+"/"+action, nil)
}
