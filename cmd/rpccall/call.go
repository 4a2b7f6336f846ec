package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mini-jsonrpc/client"
	"mini-jsonrpc/config"
	"mini-jsonrpc/log"
	"mini-jsonrpc/metrics"
	"mini-jsonrpc/middleware"
)

func callCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "call <method> [json-param...]",
		Short: "Call a remote method and print its result",
		Long: `
Call a JSON-RPC 2.0 method with positional parameters and print the raw result.

Every parameter is a JSON value: strings need quotes ('"hello"'), numbers and objects do not.
When a metrics address is configured, /metrics keeps being served after the calls until
the process is interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := log.NewLogger(cfg)

			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tr, res, err := dial(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer res.Close() //nolint:errcheck

			mws := []middleware.Middleware{
				middleware.Logging(logger),
				middleware.Timeout(cfg.GetTimeout()),
			}
			if r, burst := cfg.GetRateLimit(); r > 0 {
				mws = append(mws, middleware.RateLimit(r, burst))
			}

			var metricsServer *metrics.Server
			if addr := cfg.GetMetricsAddr(); addr != "" {
				m := metrics.NewCallMetrics()
				metricsServer = metrics.NewServer(addr, metrics.NewRegistry(m), logger)
				go func() {
					if err := metricsServer.Start(); err != nil {
						logger.Error("metrics server failed", slog.String("error", err.Error()))
					}
				}()
				mws = append([]middleware.Middleware{middleware.Metrics(m, endpointLabel(cfg))}, mws...)
			}

			c := client.New(middleware.Wrap(tr, mws...), client.WithLogger(logger))
			defer c.Close() //nolint:errcheck

			for i := 0; i < count; i++ {
				result, err := client.Call[json.RawMessage](ctx, c, args[0], params...)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(result))
			}

			if metricsServer != nil {
				logger.Info("serving metrics until interrupted", slog.String("addr", cfg.GetMetricsAddr()))
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return metricsServer.Shutdown(shutdownCtx)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of times to call the method")

	return cmd
}

// parseParams turns each argument into one positional JSON parameter.
func parseParams(args []string) ([]any, error) {
	params := make([]any, 0, len(args))
	for i, arg := range args {
		if !json.Valid([]byte(arg)) {
			return nil, fmt.Errorf("param %d is not valid JSON: %s", i+1, arg)
		}
		params = append(params, json.RawMessage(arg))
	}
	return params, nil
}

func endpointLabel(cfg *config.Config) string {
	if service := cfg.GetServiceName(); service != "" {
		return service
	}
	return cfg.GetEndpoint()
}
