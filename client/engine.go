package client

import (
	"context"

	"mini-jsonrpc/codec"
	"mini-jsonrpc/message"
	"mini-jsonrpc/transport"
)

// Invoke performs one JSON-RPC call over t and decodes the result into R.
//
//	*counter++ ──► EncodeRequest ──► t.Send ──► DecodeResponse ──► R
//	                   │                 │              │
//	            SERIALIZE_FAILURE  TRANSPORT_FAILURE  RESPONSE_FAILURE | REMOTE_ERROR
//
// The counter is incremented before anything else, so a failed call still consumes its
// id. Every error is a *message.Error of exactly one kind. Invoke does not retry.
func Invoke[R any](ctx context.Context, t transport.Transport, counter *uint64, method string, params []any) (R, error) {
	var zero R

	*counter++
	id := *counter

	request, err := codec.EncodeRequest(id, method, params)
	if err != nil {
		return zero, err
	}

	response, err := t.Send(ctx, request)
	if err != nil {
		return zero, message.NewTransportError(err)
	}

	var result R
	if err := codec.DecodeResponse(response, id, &result); err != nil {
		return zero, err
	}
	return result, nil
}
