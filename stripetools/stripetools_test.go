package stripetools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/toolset"
)

// stubBackend records calls and answers from a canned response table keyed
// by "METHOD path".
type stubBackend struct {
	calls     int
	lastPath  string
	lastForm  url.Values
	responses map[string]string
}

func (b *stubBackend) Call(ctx context.Context, method, path string, form url.Values) (json.RawMessage, error) {
	b.calls++
	b.lastPath = method + " " + path
	b.lastForm = form
	key := method + " " + strings.SplitN(path, "?", 2)[0]
	if body, ok := b.responses[key]; ok {
		return json.RawMessage(body), nil
	}
	return nil, fmt.Errorf("No such resource: %s", path)
}

func newTestToolset(responses map[string]string) (*toolset.Container, *stubBackend) {
	backend := &stubBackend{responses: responses}
	client := stripeapi.NewClient(backend)
	return New(client, Config{PublishableKey: "pk_test_123"}), backend
}

func call(t *testing.T, tools *toolset.Container, name string, args string) map[string]any {
	t.Helper()
	res, err := tools.CallTool(context.Background(), &mcp.CallToolRequest{
		Name:      name,
		Arguments: json.RawMessage(args),
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(res.Content) != 1 || res.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %+v", res.Content)
	}
	var env map[string]any
	if err := json.Unmarshal([]byte(res.Content[0].Text), &env); err != nil {
		t.Fatalf("envelope is not JSON: %q", res.Content[0].Text)
	}
	return env
}

func wantFailure(t *testing.T, env map[string]any, wantErr string) {
	t.Helper()
	if env["success"] != false {
		t.Fatalf("success = %v, want false", env["success"])
	}
	if env["error"] != wantErr {
		t.Fatalf("error = %q, want %q", env["error"], wantErr)
	}
}

func TestMissingRequiredArgumentNoNetworkCall(t *testing.T) {
	cases := []struct {
		tool string
		args string
		want string
	}{
		{"manage_products", `{"action":"create"}`, "name is required for create action"},
		{"manage_products", `{"action":"retrieve"}`, "product_id is required for retrieve action"},
		{"manage_products", `{"action":"delete"}`, "product_id is required for delete action"},
		{"manage_prices", `{"action":"create","product":"prod_1","currency":"usd"}`, "unit_amount is required for create action"},
		{"manage_prices", `{"action":"retrieve"}`, "price_id is required for retrieve action"},
		{"manage_coupons", `{"action":"create"}`, "percent_off or amount_off is required for create action"},
		{"manage_coupons", `{"action":"create","amount_off":500}`, "currency is required for create action"},
		{"manage_webhook_endpoints", `{"action":"create"}`, "url is required for create action"},
		{"manage_webhook_endpoints", `{"action":"create","url":"https://example.com/hook"}`, "enabled_events is required for create action"},
		{"manage_billing_meters", `{"action":"create"}`, "display_name is required for create action"},
		{"manage_billing_meters", `{"action":"deactivate"}`, "meter_id is required for deactivate action"},
		{"manage_portal_configurations", `{"action":"retrieve"}`, "configuration_id is required for retrieve action"},
	}
	for _, tc := range cases {
		t.Run(tc.tool+"/"+tc.want, func(t *testing.T) {
			tools, backend := newTestToolset(nil)
			env := call(t, tools, tc.tool, tc.args)
			wantFailure(t, env, tc.want)
			if backend.calls != 0 {
				t.Fatalf("backend invoked %d times, want 0", backend.calls)
			}
		})
	}
}

func TestInvalidMetadataJSON(t *testing.T) {
	for _, tc := range []struct {
		tool string
		args string
	}{
		{"manage_products", `{"action":"create","name":"Widget","metadata":"{not json"}`},
		{"manage_prices", `{"action":"update","price_id":"price_1","metadata":"[]"}`},
		{"manage_coupons", `{"action":"update","coupon_id":"co_1","metadata":"nope"}`},
	} {
		tools, backend := newTestToolset(nil)
		env := call(t, tools, tc.tool, tc.args)
		wantFailure(t, env, "Invalid metadata JSON format")
		if backend.calls != 0 {
			t.Fatalf("backend invoked for invalid metadata")
		}
	}
}

func TestWebhookURLMustBeHTTPS(t *testing.T) {
	tools, backend := newTestToolset(nil)
	env := call(t, tools, "manage_webhook_endpoints",
		`{"action":"create","url":"http://example.com/hook","enabled_events":["charge.succeeded"]}`)
	wantFailure(t, env, "Webhook endpoint URL must start with https://")
	if backend.calls != 0 {
		t.Fatalf("backend invoked for insecure URL")
	}

	env = call(t, tools, "manage_webhook_endpoints",
		`{"action":"update","webhook_endpoint_id":"we_1","url":"http://example.com/hook"}`)
	wantFailure(t, env, "Webhook endpoint URL must start with https://")
	if backend.calls != 0 {
		t.Fatalf("backend invoked for insecure update URL")
	}
}

func TestRetrieveProductEnvelope(t *testing.T) {
	tools, backend := newTestToolset(map[string]string{
		"GET /v1/products/prod_123": `{"id":"prod_123","object":"product","name":"Widget"}`,
	})
	env := call(t, tools, "manage_products", `{"action":"retrieve","product_id":"prod_123"}`)

	if env["success"] != true {
		t.Fatalf("success = %v", env["success"])
	}
	if env["message"] != "Retrieved product: Widget" {
		t.Fatalf("message = %q", env["message"])
	}
	product, ok := env["product"].(map[string]any)
	if !ok || product["id"] != "prod_123" {
		t.Fatalf("product payload = %v", env["product"])
	}
	if backend.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", backend.calls)
	}
}

func TestCreateProductSendsForm(t *testing.T) {
	tools, backend := newTestToolset(map[string]string{
		"POST /v1/products": `{"id":"prod_9","object":"product","name":"Widget"}`,
	})
	env := call(t, tools, "manage_products",
		`{"action":"create","name":"Widget","metadata":"{\"tier\":\"gold\"}"}`)
	if env["success"] != true {
		t.Fatalf("envelope = %v", env)
	}
	if env["message"] != "Created product: Widget" {
		t.Fatalf("message = %q", env["message"])
	}
	if got := backend.lastForm.Get("name"); got != "Widget" {
		t.Fatalf("form name = %q", got)
	}
	if got := backend.lastForm.Get("metadata[tier]"); got != "gold" {
		t.Fatalf("form metadata = %q", got)
	}
}

func TestListIdempotent(t *testing.T) {
	tools, _ := newTestToolset(map[string]string{
		"GET /v1/products": `{"object":"list","data":[{"id":"prod_1"},{"id":"prod_2"}],"has_more":false}`,
	})
	first := call(t, tools, "list_resources", `{"resource":"products","limit":2}`)
	second := call(t, tools, "list_resources", `{"resource":"products","limit":2}`)

	fb, _ := json.Marshal(first)
	sb, _ := json.Marshal(second)
	if string(fb) != string(sb) {
		t.Fatalf("list not idempotent:\n%s\n%s", fb, sb)
	}
	if first["message"] != "Found 2 products" {
		t.Fatalf("message = %q", first["message"])
	}
	items, ok := first["products"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("products = %v", first["products"])
	}
}

func TestListResourcesRejectsWrongFilter(t *testing.T) {
	tools, backend := newTestToolset(nil)
	env := call(t, tools, "list_resources", `{"resource":"payment_intents","status":"active"}`)
	if env["success"] != false {
		t.Fatalf("success = %v", env["success"])
	}
	if backend.calls != 0 {
		t.Fatalf("backend invoked for unsupported filter")
	}
}

func TestMeterLifecycleActions(t *testing.T) {
	tools, backend := newTestToolset(map[string]string{
		"POST /v1/billing/meters/mtr_1/deactivate": `{"id":"mtr_1","object":"billing.meter","status":"inactive"}`,
	})
	env := call(t, tools, "manage_billing_meters", `{"action":"deactivate","meter_id":"mtr_1"}`)
	if env["success"] != true {
		t.Fatalf("envelope = %v", env)
	}
	if env["message"] != "Deactivated meter: mtr_1" {
		t.Fatalf("message = %q", env["message"])
	}
	if backend.lastPath != "POST /v1/billing/meters/mtr_1/deactivate" {
		t.Fatalf("path = %q", backend.lastPath)
	}
}

func TestUpstreamErrorSurfacedAsEnvelope(t *testing.T) {
	tools, _ := newTestToolset(nil) // every call errors
	env := call(t, tools, "manage_products", `{"action":"retrieve","product_id":"prod_missing"}`)
	if env["success"] != false {
		t.Fatalf("success = %v", env["success"])
	}
	if msg, _ := env["error"].(string); !strings.Contains(msg, "prod_missing") {
		t.Fatalf("error = %q", env["error"])
	}
}

func TestUnknownActionEnvelope(t *testing.T) {
	tools, _ := newTestToolset(nil)
	env := call(t, tools, "manage_products", `{"action":"destroy"}`)
	wantFailure(t, env, "unknown action: destroy")
}

func TestConnectionGuideIncludesPublishableKey(t *testing.T) {
	tools, backend := newTestToolset(nil)
	res, err := tools.CallTool(context.Background(), &mcp.CallToolRequest{Name: "get_connection_guide"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if backend.calls != 0 {
		t.Fatalf("guide tool touched the network")
	}
	if len(res.Content) != 1 || !strings.Contains(res.Content[0].Text, "pk_test_123") {
		t.Fatalf("guide missing publishable key: %+v", res.Content)
	}
}
