// Package transport moves raw JSON-RPC payloads between a client and a server.
//
// The call engine never looks inside a transport: it hands over one request payload and
// expects exactly one response payload back, or an error.
//
//	client.Call ──request bytes──► Transport.Send ──► HTTP | websocket | TCP frame | stdio | in-process
//	            ◄─response bytes──
package transport

import "context"

// Transport delivers one request payload and returns the matching response payload.
// Send blocks until the response arrives or the exchange fails. Implementations own
// cancellation: ctx deadlines and timeouts surface as the returned error.
type Transport interface {
	Send(ctx context.Context, request []byte) ([]byte, error)
}

// Func adapts an ordinary function to the Transport interface.
type Func func(ctx context.Context, request []byte) ([]byte, error)

func (f Func) Send(ctx context.Context, request []byte) ([]byte, error) {
	return f(ctx, request)
}

// Handler answers a raw request payload with a raw response payload.
// server.Server implements it.
type Handler interface {
	ServeJSONRPC(ctx context.Context, request []byte) []byte
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, request []byte) []byte

func (f HandlerFunc) ServeJSONRPC(ctx context.Context, request []byte) []byte {
	return f(ctx, request)
}
