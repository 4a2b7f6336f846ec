package codec

import (
	"bytes"
	"encoding/json"
	"strconv"

	"mini-jsonrpc/message"
)

// TranslateError turns the raw "error" member of a response into the error returned to
// the caller: a KindRemote error when the object is well formed, a KindResponse error
// naming the broken field otherwise.
func TranslateError(raw json.RawMessage) error {
	obj, err := DecodeErrorObject(raw)
	if err != nil {
		return err
	}
	return message.NewRemoteError(obj)
}

// DecodeErrorObject extracts code, message and the optional data from an error member.
func DecodeErrorObject(raw json.RawMessage) (*message.ErrorObject, error) {
	if !isObject(raw) {
		return nil, message.NewResponseError(message.ReasonMalformedError, nil)
	}
	var fields map[string]json.RawMessage
	if err := jsonCodec.Decode(raw, &fields); err != nil {
		return nil, message.NewResponseError(message.ReasonMalformedError, err)
	}

	code, err := decodeCode(fields["code"])
	if err != nil {
		return nil, message.NewResponseError(message.ReasonMalformedCode, err)
	}

	rawMsg, ok := fields["message"]
	if !ok || !isString(rawMsg) {
		return nil, message.NewResponseError(message.ReasonMalformedMessage, nil)
	}
	var msg string
	if err := jsonCodec.Decode(rawMsg, &msg); err != nil {
		return nil, message.NewResponseError(message.ReasonMalformedMessage, err)
	}

	obj := &message.ErrorObject{Code: code, Message: msg}
	if data, ok := fields["data"]; ok {
		obj.Data = append(json.RawMessage(nil), data...)
	}
	return obj, nil
}

// decodeCode accepts integer literals only: 1.0 and "1" are rejected.
func decodeCode(raw json.RawMessage) (message.ErrorCode, error) {
	if raw == nil {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, err
	}
	return message.ErrorCode(n), nil
}
