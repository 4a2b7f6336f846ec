// Command rpccall calls JSON-RPC 2.0 methods and serves the example service.
//
//	rpccall call echo '"hello"'
//	rpccall serve --tcp :9000 --http :8080
//
// Settings come from JSONRPC_* environment variables (see package config); flags override them.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"mini-jsonrpc/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// configFlags maps persistent flags to the config keys they override.
var configFlags = []struct {
	name  string
	key   string
	usage string
}{
	{"endpoint", config.KeyEndpoint, "endpoint URL, host:port or command line"},
	{"transport", config.KeyTransport, "http, ws, tcp or stdio"},
	{"timeout", config.KeyTimeout, "per-call timeout"},
	{"rate-limit", config.KeyRateLimit, "calls per second, 0 disables"},
	{"rate-burst", config.KeyRateBurst, "rate limiter burst"},
	{"log-level", config.KeyLogLevel, "debug, info, warn or error"},
	{"log-format", config.KeyLogFormat, "plain or json"},
	{"etcd", config.KeyEtcdEndpoints, "comma separated etcd endpoints"},
	{"service", config.KeyServiceName, "service name to discover or register"},
	{"balancer", config.KeyBalancer, "round_robin, weighted_random or consistent_hash"},
	{"metrics", config.KeyMetricsAddr, "listen address for /metrics"},
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "rpccall",
		Short:        "JSON-RPC 2.0 client and example server",
		SilenceUsage: true,
	}
	for _, f := range configFlags {
		cmd.PersistentFlags().String(f.name, "", f.usage)
	}

	cmd.AddCommand(callCmd())
	cmd.AddCommand(serveCmd())

	return cmd
}

// loadConfig reads the environment, letting explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := config.Overrides{}
	for _, f := range configFlags {
		flag := cmd.Flags().Lookup(f.name)
		if flag != nil && flag.Changed {
			overrides[f.key] = flag.Value.String()
		}
	}
	return config.Load(overrides)
}
