// Package example is a small service and the typed client generated for it.
//
// The server side registers plain Go functions; the client side is produced by jsonrpc-gen
// from spec.yaml.
package example

//go:generate go run ../cmd/jsonrpc-gen -i spec.yaml -o client_gen.go

import (
	"context"
	"encoding/json"
	"strconv"

	"mini-jsonrpc/server"
)

// ServiceName is the default registry name of the example service.
const ServiceName = "example"

var pong = json.RawMessage(`{"pong":true}`)

// Register adds the methods ExampleClient calls to s.
func Register(s *server.Server) error {
	handlers := map[string]any{
		"nullary":     func() error { return nil },
		"echo":        func(input string) (string, error) { return input, nil },
		"concat":      concat,
		"system.ping": func(ctx context.Context) (json.RawMessage, error) { return pong, ctx.Err() },
	}
	for name, fn := range handlers {
		if err := s.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// NewServer returns a server named name with the example methods registered.
func NewServer(name string, opts ...server.Option) (*server.Server, error) {
	s := server.NewServer(name, opts...)
	if err := Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

func concat(arg0 string, arg1 uint64) (string, error) {
	return arg0 + strconv.FormatUint(arg1, 10), nil
}
