package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestMessageKinds(t *testing.T) {
	cases := []struct {
		name string
		in   string
		kind string
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "request"},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "notification"},
		{"result response", `{"jsonrpc":"2.0","id":1,"result":{}}`, "response"},
		{"error response", `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"nope"}}`, "response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m Message
			if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if m.Kind() != tc.kind {
				t.Fatalf("kind = %q, want %q", m.Kind(), tc.kind)
			}
			if tc.kind == "response" && m.AsRequest() != nil {
				t.Fatalf("response parsed as request")
			}
			if tc.kind != "response" && m.AsResponse() != nil {
				t.Fatalf("request parsed as response")
			}
		})
	}
}

func TestMessageValidation(t *testing.T) {
	for _, in := range []string{
		`{"jsonrpc":"1.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping","result":{}}`,
		`{"jsonrpc":"2.0","id":1}`,
		`{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":1,"message":"x"}}`,
	} {
		var m Message
		if err := json.Unmarshal([]byte(in), &m); err == nil {
			t.Fatalf("accepted invalid message: %s", in)
		}
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`1`, `1`},
		{`"abc"`, `"abc"`},
		{`1.5`, `1.5`},
		{`null`, `null`},
	}
	for _, tc := range cases {
		var id RequestID
		if err := json.Unmarshal([]byte(tc.in), &id); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		out, err := json.Marshal(&id)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(out) != tc.want {
			t.Fatalf("round trip %s -> %s, want %s", tc.in, out, tc.want)
		}
	}
}

func TestRequestIDRejectsObjects(t *testing.T) {
	var id RequestID
	if err := json.Unmarshal([]byte(`{"x":1}`), &id); err == nil {
		t.Fatalf("object id accepted")
	}
}

func TestNilRequestID(t *testing.T) {
	var id *RequestID
	if !id.IsNil() {
		t.Fatalf("nil pointer should be nil id")
	}
	if id.String() != "" {
		t.Fatalf("nil id string = %q", id.String())
	}
	resp := NewErrorResponse(nil, ErrorCodeParseError, "parse error")
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(b, &decoded)
	if _, hasID := decoded["id"]; hasID && decoded["id"] != nil {
		t.Fatalf("error response id = %v, want null or absent", decoded["id"])
	}
}
