// Package jsonrpc implements the minimal JSON-RPC 2.0 framing used by the
// MCP transports. Batch arrays are not supported; the streamable HTTP
// transport forbids them and the stdio transport treats them as parse errors.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the only JSON-RPC protocol version this server speaks.
const Version = "2.0"

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	// ErrorCodeParseError indicates the request body was not valid JSON.
	ErrorCodeParseError ErrorCode = -32700
	// ErrorCodeInvalidRequest indicates the JSON was not a valid request object.
	ErrorCodeInvalidRequest ErrorCode = -32600
	// ErrorCodeMethodNotFound indicates an unknown method.
	ErrorCodeMethodNotFound ErrorCode = -32601
	// ErrorCodeInvalidParams indicates malformed method parameters.
	ErrorCodeInvalidParams ErrorCode = -32602
	// ErrorCodeInternalError indicates a server-side failure.
	ErrorCodeInternalError ErrorCode = -32603
	// ErrorCodeNoSession is the transport-level code used when a request
	// arrives without a usable session (missing, unknown, or not an
	// initialize request). Matches the reserved server-error range.
	ErrorCodeNoSession ErrorCode = -32000
)

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// Request is a JSON-RPC request, or a notification when ID is absent.
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *RequestID      `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no ID.
func (r *Request) IsNotification() bool { return r.ID.IsNil() }

// Response is a JSON-RPC response carrying either a result or an error.
type Response struct {
	Version string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      *RequestID      `json:"id,omitempty"`
}

// NewResultResponse marshals result into a success response for id.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Response{Version: Version, Result: b, ID: id}, nil
}

// NewErrorResponse builds an error response for id. A nil id is legal and
// yields the JSON-RPC null id, used for parse and session errors where the
// request id is unknowable.
func NewErrorResponse(id *RequestID, code ErrorCode, message string) *Response {
	return &Response{Version: Version, Error: &Error{Code: code, Message: message}, ID: id}
}

// Message is a decoded JSON-RPC message whose kind (request, notification,
// response) is not yet known. Decoding validates 2.0 structural rules.
type Message struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      *RequestID      `json:"id,omitempty"`
}

// UnmarshalJSON validates the version marker and the request/response field
// exclusivity rules while decoding.
func (m *Message) UnmarshalJSON(data []byte) error {
	type wire Message
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Version != Version {
		return fmt.Errorf("unsupported jsonrpc version %q", w.Version)
	}
	if w.Method != "" {
		if len(w.Result) > 0 || w.Error != nil {
			return fmt.Errorf("request carries result or error fields")
		}
	} else {
		hasResult := len(w.Result) > 0
		hasError := w.Error != nil
		if hasResult == hasError {
			return fmt.Errorf("response must carry exactly one of result or error")
		}
	}
	*m = Message(w)
	return nil
}

// AsRequest returns the request view of the message, or nil for responses.
func (m *Message) AsRequest() *Request {
	if m.Method == "" {
		return nil
	}
	return &Request{Version: m.Version, Method: m.Method, Params: m.Params, ID: m.ID}
}

// AsResponse returns the response view of the message, or nil for requests.
func (m *Message) AsResponse() *Response {
	if m.Method != "" {
		return nil
	}
	return &Response{Version: m.Version, Result: m.Result, Error: m.Error, ID: m.ID}
}

// Kind describes the message for logging.
func (m *Message) Kind() string {
	if m.Method != "" {
		if m.ID.IsNil() {
			return "notification"
		}
		return "request"
	}
	return "response"
}
