package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// RequestID is a JSON-RPC id, which the wire allows to be a string or a
// number. The zero value (and a nil pointer) represent the absent id of a
// notification.
type RequestID struct {
	value any
}

// NewRequestID wraps a string or integer id. Unsupported types collapse to
// the absent id.
func NewRequestID(v any) *RequestID {
	switch v.(type) {
	case string, int, int32, int64, float64:
		return &RequestID{value: v}
	default:
		return &RequestID{}
	}
}

// IsNil reports whether the id is absent.
func (id *RequestID) IsNil() bool { return id == nil || id.value == nil }

// String renders the id for logging; absent ids render empty.
func (id *RequestID) String() string {
	if id.IsNil() {
		return ""
	}
	if s, ok := id.value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", id.value)
}

// MarshalJSON implements json.Marshaler.
func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id.IsNil() {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler, accepting strings and numbers.
// Integral floats are normalized to int64 so they round-trip without a
// trailing ".0".
func (id *RequestID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.value = nil
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		if num == float64(int64(num)) {
			id.value = int64(num)
		} else {
			id.value = num
		}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		id.value = str
		return nil
	}
	return fmt.Errorf("jsonrpc id must be a string or number, got %s", string(data))
}
