package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"mini-jsonrpc/loadbalance"
	"mini-jsonrpc/registry"
)

// Factory builds the transport used to reach one discovered instance.
type Factory func(ctx context.Context, instance registry.Instance) (Transport, error)

// DiscoveryTransport resolves a service name to an instance on every Send:
//
//	Send ──► Registry.Discover(service) ──► Balancer.Pick ──► transport for instance.Addr ──► Send
//
// One transport is built per address and reused for later calls to the same address.
type DiscoveryTransport struct {
	service  string
	registry registry.Registry
	balancer loadbalance.Balancer
	factory  Factory
	logger   *slog.Logger

	mu         sync.Mutex
	transports map[string]Transport
}

func NewDiscoveryTransport(service string, reg registry.Registry, bal loadbalance.Balancer, factory Factory, logger *slog.Logger) *DiscoveryTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoveryTransport{
		service:    service,
		registry:   reg,
		balancer:   bal,
		factory:    factory,
		logger:     logger,
		transports: make(map[string]Transport),
	}
}

func (d *DiscoveryTransport) Send(ctx context.Context, request []byte) ([]byte, error) {
	instances, err := d.registry.Discover(ctx, d.service)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", d.service, err)
	}
	instance, err := d.balancer.Pick(instances)
	if err != nil {
		return nil, fmt.Errorf("pick %s instance: %w", d.service, err)
	}

	t, err := d.transportFor(ctx, *instance)
	if err != nil {
		return nil, err
	}

	resp, err := t.Send(ctx, request)
	if err != nil {
		// A broken connection is rebuilt on the next call to this address.
		d.drop(instance.Addr, t)
		return nil, err
	}
	return resp, nil
}

func (d *DiscoveryTransport) transportFor(ctx context.Context, instance registry.Instance) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.transports[instance.Addr]; ok {
		return t, nil
	}
	t, err := d.factory(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", instance.Addr, err)
	}
	d.logger.Debug("connected to instance", "service", d.service, "addr", instance.Addr, "balancer", d.balancer.Name())
	d.transports[instance.Addr] = t
	return t, nil
}

func (d *DiscoveryTransport) drop(addr string, t Transport) {
	d.mu.Lock()
	if cur, ok := d.transports[addr]; ok && cur == t {
		delete(d.transports, addr)
	}
	d.mu.Unlock()

	if c, ok := t.(io.Closer); ok {
		_ = c.Close()
	}
}

// Close closes every transport built so far.
func (d *DiscoveryTransport) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for addr, t := range d.transports {
		if c, ok := t.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(d.transports, addr)
	}
	return firstErr
}

// Dial is the default Factory: it picks the transport by Instance.Scheme.
func Dial(ctx context.Context, instance registry.Instance) (Transport, error) {
	switch instance.Scheme {
	case "", "tcp":
		return DialFrame(ctx, instance.Addr)
	case "http", "https":
		return NewHTTPTransport(instance.Scheme + "://" + instance.Addr + pathOr(instance.Path, "/rpc")), nil
	case "ws", "wss":
		return DialWebsocket(ctx, instance.Scheme+"://"+instance.Addr+pathOr(instance.Path, "/ws"), DefaultReadWriteDeadline)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", instance.Scheme)
	}
}

func pathOr(path, def string) string {
	if path == "" {
		return def
	}
	return path
}
