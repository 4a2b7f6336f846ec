package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mini-jsonrpc/config"
	"mini-jsonrpc/loadbalance"
	"mini-jsonrpc/registry"
	"mini-jsonrpc/transport"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// dial builds the transport described by cfg. The returned closer releases resources the
// transport does not own, such as the etcd client.
func dial(ctx context.Context, cfg *config.Config, logger *slog.Logger) (transport.Transport, io.Closer, error) {
	if service := cfg.GetServiceName(); service != "" {
		reg, err := registry.NewEtcdRegistry(cfg.GetEtcdEndpoints(), logger)
		if err != nil {
			return nil, nil, err
		}
		// Consistent hashing keeps one host on one instance.
		key, _ := os.Hostname()
		bal, err := loadbalance.New(cfg.GetBalancer(), key)
		if err != nil {
			reg.Close()
			return nil, nil, err
		}
		logger.Debug("discovering service", "service", service, "balancer", bal.Name())
		return transport.NewDiscoveryTransport(service, reg, bal, transport.Dial, logger), reg, nil
	}

	endpoint := cfg.GetEndpoint()
	switch cfg.GetTransport() {
	case config.TransportHTTP:
		return transport.NewHTTPTransport(endpoint, transport.WithHTTPTimeout(cfg.GetTimeout())), nopCloser{}, nil
	case config.TransportWebsocket:
		t, err := transport.DialWebsocket(ctx, endpoint, cfg.GetTimeout())
		if err != nil {
			return nil, nil, err
		}
		return t, nopCloser{}, nil
	case config.TransportTCP:
		t, err := transport.DialFrame(ctx, endpoint, transport.WithFrameLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return t, nopCloser{}, nil
	case config.TransportStdio:
		argv := strings.Fields(endpoint)
		if len(argv) == 0 {
			return nil, nil, fmt.Errorf("stdio transport needs a command line as endpoint")
		}
		t, err := transport.SpawnStdio(ctx, argv[0], argv[1:]...)
		if err != nil {
			return nil, nil, err
		}
		return t, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported transport %q", cfg.GetTransport())
	}
}
