package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mini-jsonrpc/example"
	"mini-jsonrpc/log"
	"mini-jsonrpc/metrics"
	"mini-jsonrpc/middleware"
	"mini-jsonrpc/registry"
	"mini-jsonrpc/server"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var tcpAddr, httpAddr, wsAddr, advertise string
	var stdio bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the example service",
		Long: `
Serve the example service (nullary, echo, concat, system.ping).

The framed TCP listener registers itself in etcd when a service name and etcd endpoints
are configured. With --stdio the service answers newline-delimited requests on stdin and
stdout instead, which is what the stdio transport spawns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := log.NewLogger(cfg)

			name := cfg.GetServiceName()
			if name == "" {
				name = example.ServiceName
			}
			svr, err := example.NewServer(name, server.WithLogger(logger))
			if err != nil {
				return err
			}
			svr.Use(middleware.Logging(logger))
			if r, burst := cfg.GetRateLimit(); r > 0 {
				svr.Use(middleware.RateLimit(r, burst))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if stdio {
				return svr.ServeStream(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			}

			errCh := make(chan error, 4)
			var metricsServer *metrics.Server
			if addr := cfg.GetMetricsAddr(); addr != "" {
				m := metrics.NewCallMetrics()
				svr.Use(middleware.Metrics(m, name))
				metricsServer = metrics.NewServer(addr, metrics.NewRegistry(m), logger)
				go func() { errCh <- metricsServer.Start() }()
			}

			var reg registry.Registry
			if cfg.GetServiceName() != "" {
				etcd, err := registry.NewEtcdRegistry(cfg.GetEtcdEndpoints(), logger)
				if err != nil {
					return err
				}
				defer etcd.Close() //nolint:errcheck
				reg = etcd
			}

			var httpLn net.Listener
			if httpAddr != "" {
				if httpLn, err = net.Listen("tcp", httpAddr); err != nil {
					return err
				}
				go func() { errCh <- svr.ServeHTTPListener(httpLn) }()
			}

			var wsServer *http.Server
			if wsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/ws", svr.WebsocketHandler())
				wsServer = &http.Server{Addr: wsAddr, Handler: mux, ReadHeaderTimeout: 3 * time.Second}
				go func() {
					logger.Info("serving websocket", slog.String("addr", wsAddr), slog.String("path", "/ws"))
					if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
				}()
			}

			if tcpAddr != "" {
				go func() { errCh <- svr.Serve("tcp", tcpAddr, advertise, reg) }()
			}

			select {
			case <-ctx.Done():
				logger.Info("shutting down server...")
			case err = <-errCh:
				if err != nil {
					logger.Error("listener failed", slog.String("error", err.Error()))
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if wsServer != nil {
				wsServer.Shutdown(shutdownCtx) //nolint:errcheck
			}
			if httpLn != nil {
				httpLn.Close()
			}
			if metricsServer != nil {
				metricsServer.Shutdown(shutdownCtx) //nolint:errcheck
			}
			if shutdownErr := svr.Shutdown(shutdownTimeout); shutdownErr != nil {
				logger.Error("graceful shutdown failed", slog.String("error", shutdownErr.Error()))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&tcpAddr, "tcp", ":9000", "framed TCP listen address, empty disables")
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address for POST "+server.RPCPath)
	cmd.Flags().StringVar(&wsAddr, "ws", "", "websocket listen address for /ws")
	cmd.Flags().StringVar(&advertise, "advertise", "", "address registered in etcd, defaults to the listen address")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve newline-delimited requests on stdin and stdout")

	return cmd
}
