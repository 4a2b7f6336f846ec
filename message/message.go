// Package message defines the JSON-RPC 2.0 envelopes exchanged between client and server.
//
// Request is the "envelope" for every call. It gets serialized by the codec layer and handed
// to a transport as raw bytes; the response comes back as raw bytes and is validated by the
// codec before anything in it is trusted.
package message

import (
	"encoding/json"
	"fmt"
)

// Version is the only protocol version spoken on the wire.
const Version = "2.0"

// Request carries a single JSON-RPC 2.0 call.
//
//   - ID is assigned by the client: 1 for the first call, then +1 per call.
//   - Params is always an array in declaration order, never null.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// ServerRequest is the receiving side's view of a request. ID and Params stay raw so the
// server can echo the id verbatim and decode params positionally into handler arguments.
type ServerRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is the envelope a server writes. Clients never unmarshal into it, because it
// cannot tell an absent result from a null one; see codec.DecodeResponse.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// NullID is used when a response cannot be tied to a request id.
var NullID = json.RawMessage("null")

// ErrorCode is the integer code of a JSON-RPC error object.
type ErrorCode int64

// Well-known codes from the JSON-RPC 2.0 specification.
const (
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternalError  ErrorCode = -32603

	// -32000 to -32099 are reserved for implementation-defined server errors.
	CodeServerError    ErrorCode = -32000
	codeServerErrorMin ErrorCode = -32099
)

// IsWellKnown reports whether c is one of the five predefined codes.
func (c ErrorCode) IsWellKnown() bool {
	switch c {
	case CodeParseError, CodeInvalidRequest, CodeMethodNotFound, CodeInvalidParams, CodeInternalError:
		return true
	}
	return false
}

// Description returns the human readable name of the code.
func (c ErrorCode) Description() string {
	switch c {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	case CodeInternalError:
		return "Internal error"
	}
	if c >= codeServerErrorMin && c <= CodeServerError {
		return "Server error"
	}
	return fmt.Sprintf("Error %d", int64(c))
}

// ErrorObject is the "error" member of a failed response.
//
// It implements error so that server handlers can return one to control the code and data
// sent back to the caller.
type ErrorObject struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewErrorObject builds an error object, marshaling data when it is not nil.
// Data that cannot be marshaled is dropped.
func NewErrorObject(code ErrorCode, msg string, data any) *ErrorObject {
	obj := &ErrorObject{Code: code, Message: msg}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			obj.Data = raw
		}
	}
	return obj
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code.Description(), int64(e.Code), e.Message)
}
