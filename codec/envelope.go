// Package codec builds JSON-RPC 2.0 request envelopes and validates response envelopes.
//
// Response validation runs in a fixed order so a malformed envelope is never mistaken
// for a valid error or result:
//
//	bytes ─► valid JSON? ─► object? ─► jsonrpc == "2.0"? ─► id matches? ─► error? ─► result? ─► target type?
//	            │             │               │                  │             │          │           │
//	       not valid json  not an object  not JSON-RPC 2.0   id mismatch   RemoteError  no result  type mismatch
package codec

import (
	"bytes"
	"encoding/json"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"mini-jsonrpc/message"
)

var jsonCodec Codec = JSONCodec{}

// EncodeRequest serializes one call. Params are written as an array in the given order;
// nil params become an empty array.
func EncodeRequest(id uint64, method string, params []any) ([]byte, error) {
	if params == nil {
		params = []any{}
	}
	req := &message.Request{
		JSONRPC: message.Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
	data, err := jsonCodec.Encode(req)
	if err != nil {
		return nil, message.NewSerializeError(err)
	}
	return data, nil
}

// DecodeResponse validates a response to the request with the given id and decodes its
// result into out. A nil out only validates. Every failure is a *message.Error.
func DecodeResponse(data []byte, id uint64, out any) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}

	if !isVersion(fields["jsonrpc"]) {
		return message.NewResponseError(message.ReasonVersion, nil)
	}

	if raw, ok := fields["id"]; !ok || !SameID(raw, id) {
		return message.NewResponseError(message.ReasonIDMismatch, nil)
	}

	// An error member wins over anything else in the envelope.
	if raw, ok := fields["error"]; ok {
		return TranslateError(raw)
	}

	raw, ok := fields["result"]
	if !ok {
		return message.NewResponseError(message.ReasonNoResult, nil)
	}
	if out == nil {
		return nil
	}
	// encoding/json treats null as a no-op; a target that cannot hold null must fail.
	if isNull(raw) && !acceptsNull(out) {
		return message.NewResponseError(message.ReasonResultType, nil)
	}
	if err := jsonCodec.Decode(raw, out); err != nil {
		return message.NewResponseError(message.ReasonResultType, err)
	}
	return nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	// encoding/json would silently replace invalid bytes with U+FFFD.
	if !utf8.Valid(data) {
		return nil, message.NewResponseError(message.ReasonInvalidJSON, nil)
	}
	var probe json.RawMessage
	if err := jsonCodec.Decode(data, &probe); err != nil {
		return nil, message.NewResponseError(message.ReasonInvalidJSON, err)
	}
	if !isObject(probe) {
		return nil, message.NewResponseError(message.ReasonNotObject, nil)
	}

	var fields map[string]json.RawMessage
	if err := jsonCodec.Decode(probe, &fields); err != nil {
		return nil, message.NewResponseError(message.ReasonNotObject, err)
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

var unmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()

// acceptsNull reports whether the value out points to can represent null: pointers,
// interfaces, maps, slices (json.RawMessage included) and custom unmarshalers.
func acceptsNull(out any) bool {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return true
	}
	if v.Type().Implements(unmarshalerType) {
		return true
	}
	switch v.Elem().Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isString(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '"'
}

func isVersion(raw json.RawMessage) bool {
	if !isString(raw) {
		return false
	}
	var v string
	return jsonCodec.Decode(raw, &v) == nil && v == message.Version
}

// maxIDExponent bounds the exponent of a non-canonical id literal such as 1e3, so a
// hostile response cannot make the comparison allocate huge integers.
const maxIDExponent = 64

// SameID reports whether raw is a JSON number whose value is exactly id.
// 7, 7.0 and 700e-2 all match 7; strings, null and fractions never do.
func SameID(raw json.RawMessage, id uint64) bool {
	lit := strings.TrimSpace(string(raw))
	if n, err := strconv.ParseUint(lit, 10, 64); err == nil {
		return n == id
	}

	var num any
	dec := json.NewDecoder(strings.NewReader(lit))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return false
	}
	if _, ok := num.(json.Number); !ok {
		return false
	}
	if i := strings.IndexAny(lit, "eE"); i >= 0 {
		exp, err := strconv.Atoi(lit[i+1:])
		if err != nil || exp > maxIDExponent || exp < -maxIDExponent {
			return false
		}
	}

	r, ok := new(big.Rat).SetString(lit)
	if !ok || !r.IsInt() || r.Sign() < 0 {
		return false
	}
	n := r.Num()
	return n.IsUint64() && n.Uint64() == id
}
