package message

import (
	"errors"
	"fmt"
)

// Kind classifies why a call failed. Every failed call reports exactly one kind.
type Kind string

const (
	KindSerialize Kind = "SERIALIZE_FAILURE" // arguments could not be encoded; nothing was sent
	KindTransport Kind = "TRANSPORT_FAILURE" // the transport failed to deliver or receive bytes
	KindResponse  Kind = "RESPONSE_FAILURE"  // the response violates the protocol or the target type
	KindRemote    Kind = "REMOTE_ERROR"      // the server answered with a well-formed error object
)

// Reasons attached to KindResponse errors.
const (
	ReasonInvalidJSON      = "not valid json"
	ReasonNotObject        = "not an object"
	ReasonVersion          = "not JSON-RPC 2.0 compatible"
	ReasonIDMismatch       = "id mismatch"
	ReasonMalformedError   = "malformed error object"
	ReasonMalformedCode    = "missing/malformed code"
	ReasonMalformedMessage = "missing/malformed message"
	ReasonNoResult         = "no result field"
	ReasonResultType       = "result does not match target type"
)

// Error is the only error type returned by the call engine.
type Error struct {
	Kind   Kind
	Reason string       // set for KindResponse
	Remote *ErrorObject // set for KindRemote
	Cause  error
}

// Sentinels for errors.Is. A sentinel matches any *Error of the same kind (and reason, if set).
var (
	ErrSerialize = &Error{Kind: KindSerialize}
	ErrTransport = &Error{Kind: KindTransport}
	ErrResponse  = &Error{Kind: KindResponse}
	ErrRemote    = &Error{Kind: KindRemote}

	ErrInvalidJSON      = &Error{Kind: KindResponse, Reason: ReasonInvalidJSON}
	ErrNotObject        = &Error{Kind: KindResponse, Reason: ReasonNotObject}
	ErrVersion          = &Error{Kind: KindResponse, Reason: ReasonVersion}
	ErrIDMismatch       = &Error{Kind: KindResponse, Reason: ReasonIDMismatch}
	ErrMalformedError   = &Error{Kind: KindResponse, Reason: ReasonMalformedError}
	ErrMalformedCode    = &Error{Kind: KindResponse, Reason: ReasonMalformedCode}
	ErrMalformedMessage = &Error{Kind: KindResponse, Reason: ReasonMalformedMessage}
	ErrNoResult         = &Error{Kind: KindResponse, Reason: ReasonNoResult}
	ErrResultType       = &Error{Kind: KindResponse, Reason: ReasonResultType}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindRemote:
		if e.Remote != nil {
			return fmt.Sprintf("[%s] %s", e.Kind, e.Remote.Error())
		}
	case KindResponse:
		if e.Cause != nil {
			return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Reason, e.Cause)
		}
		return fmt.Sprintf("[%s] %s", e.Kind, e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes the sentinels above usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Error constructors

func NewSerializeError(cause error) error {
	return &Error{Kind: KindSerialize, Cause: cause}
}

func NewTransportError(cause error) error {
	return &Error{Kind: KindTransport, Cause: cause}
}

func NewResponseError(reason string, cause error) error {
	return &Error{Kind: KindResponse, Reason: reason, Cause: cause}
}

// NewRemoteError wraps a server error object. The object is also the cause, so
// errors.As(err, &*ErrorObject) works on the result.
func NewRemoteError(obj *ErrorObject) error {
	return &Error{Kind: KindRemote, Remote: obj, Cause: obj}
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
