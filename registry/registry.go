package registry

import "context"

// Instance is one reachable JSON-RPC endpoint of a service.
type Instance struct {
	Addr    string `json:"addr"`              // host:port
	Weight  int    `json:"weight,omitempty"`  // relative share for weighted balancing
	Version string `json:"version,omitempty"` // free-form build or API version
	// Scheme names the transport the endpoint speaks: "tcp" (framed), "http" or "ws".
	Scheme string `json:"scheme,omitempty"`
	// Path is the HTTP or websocket path, e.g. "/rpc".
	Path string `json:"path,omitempty"`
}

type Registry interface {
	Register(ctx context.Context, service string, instance Instance, ttl int64) error
	Deregister(ctx context.Context, service string, addr string) error
	Discover(ctx context.Context, service string) ([]Instance, error)
	Watch(ctx context.Context, service string) <-chan []Instance
}
