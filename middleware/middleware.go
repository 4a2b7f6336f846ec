// Package middleware wraps the raw request/response exchange with cross-cutting behavior.
//
// The same HandlerFunc shape serves both sides: on the client it wraps Transport.Send, on
// the server it wraps the dispatcher. Chain(A, B, C)(h) runs as
//
//	A.before → B.before → C.before → h → C.after → B.after → A.after
package middleware

import (
	"context"
	"io"

	"mini-jsonrpc/transport"
)

type HandlerFunc func(ctx context.Context, request []byte) ([]byte, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one, the first being the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Wrap returns a Transport that runs every Send through the middlewares.
// Closing the result closes t when t is an io.Closer.
func Wrap(t transport.Transport, middlewares ...Middleware) transport.Transport {
	return &wrapped{
		inner:   t,
		handler: Chain(middlewares...)(t.Send),
	}
}

type wrapped struct {
	inner   transport.Transport
	handler HandlerFunc
}

func (w *wrapped) Send(ctx context.Context, request []byte) ([]byte, error) {
	return w.handler(ctx, request)
}

func (w *wrapped) Close() error {
	if c, ok := w.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
