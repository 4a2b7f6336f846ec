// Package client turns typed Go calls into JSON-RPC 2.0 exchanges.
//
// A Client owns one transport and the id counter for the requests sent over it.
// Generated clients embed *Client and implement every method with one Call:
//
//	func (c *ExampleClient[T]) Echo(ctx context.Context, input string) (string, error) {
//		return client.Call[string](ctx, c.Client, "echo", input)
//	}
//
// A Client is not safe for concurrent use: it issues one call at a time.
package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"mini-jsonrpc/message"
	"mini-jsonrpc/transport"
)

type Client[T transport.Transport] struct {
	transport T
	id        uint64
	logger    *slog.Logger
}

type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for per-call debug lines. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a Client that takes ownership of t. The first call uses id 1.
func New[T transport.Transport](t T, opts ...Option) *Client[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Client[T]{transport: t, logger: o.logger}
}

// Transport returns the owned transport.
func (c *Client[T]) Transport() T {
	return c.transport
}

// LastID returns the id of the most recent request, 0 before the first call.
func (c *Client[T]) LastID() uint64 {
	return c.id
}

// Close closes the transport if it is an io.Closer.
func (c *Client[T]) Close() error {
	if closer, ok := any(c.transport).(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Call sends method with params in order and decodes the result into R.
func Call[R any, T transport.Transport](ctx context.Context, c *Client[T], method string, params ...any) (R, error) {
	result, err := Invoke[R](ctx, c.transport, &c.id, method, params)
	if err != nil {
		c.logger.Debug("rpc call failed", "method", method, "id", c.id, "kind", string(message.KindOf(err)))
		return result, err
	}
	c.logger.Debug("rpc call", "method", method, "id", c.id)
	return result, nil
}

// Exec is Call for methods whose result carries no value. The result must still be present.
func Exec[T transport.Transport](ctx context.Context, c *Client[T], method string, params ...any) error {
	_, err := Call[json.RawMessage](ctx, c, method, params...)
	return err
}
