package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())
	assert.Equal(t, TransportHTTP, cfg.GetTransport())
	assert.Equal(t, DefaultTimeout, cfg.GetTimeout())
	limit, burst := cfg.GetRateLimit()
	assert.Zero(t, limit)
	assert.Equal(t, DefaultRateBurst, burst)
	assert.Equal(t, slog.LevelWarn, cfg.GetLogLevel())
	assert.Equal(t, "plain", cfg.GetLogFormat())
	assert.Empty(t, cfg.GetEtcdEndpoints())
	assert.Equal(t, DefaultBalancer, cfg.GetBalancer())
	assert.Empty(t, cfg.GetMetricsAddr())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JSONRPC_ENDPOINT", "127.0.0.1:9000")
	t.Setenv("JSONRPC_TRANSPORT", "TCP")
	t.Setenv("JSONRPC_TIMEOUT", "250ms")
	t.Setenv("JSONRPC_RATE_LIMIT", "5.5")
	t.Setenv("JSONRPC_RATE_BURST", "3")
	t.Setenv("JSONRPC_LOG_LEVEL", "DEBUG")
	t.Setenv("JSONRPC_LOG_FORMAT", "json")
	t.Setenv("JSONRPC_ETCD_ENDPOINTS", "etcd-1:2379, etcd-2:2379,")
	t.Setenv("JSONRPC_SERVICE_NAME", "Example")
	t.Setenv("JSONRPC_BALANCER", "consistent_hash")
	t.Setenv("JSONRPC_METRICS_ADDR", ":9090")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.GetEndpoint())
	assert.Equal(t, TransportTCP, cfg.GetTransport())
	assert.Equal(t, 250*time.Millisecond, cfg.GetTimeout())
	limit, burst := cfg.GetRateLimit()
	assert.Equal(t, 5.5, limit)
	assert.Equal(t, 3, burst)
	assert.Equal(t, slog.LevelDebug, cfg.GetLogLevel())
	assert.Equal(t, "json", cfg.GetLogFormat())
	assert.Equal(t, []string{"etcd-1:2379", "etcd-2:2379"}, cfg.GetEtcdEndpoints())
	assert.Equal(t, "Example", cfg.GetServiceName())
	assert.Equal(t, "consistent_hash", cfg.GetBalancer())
	assert.Equal(t, ":9090", cfg.GetMetricsAddr())
}

func TestOverridesWinOverEnv(t *testing.T) {
	t.Setenv("JSONRPC_ENDPOINT", "http://from-env/rpc")

	cfg, err := Load(Overrides{KeyEndpoint: "ws://from-flag/ws", KeyTransport: "ws"})
	require.NoError(t, err)
	assert.Equal(t, "ws://from-flag/ws", cfg.GetEndpoint())
	assert.Equal(t, TransportWebsocket, cfg.GetTransport())
}

func TestValidation(t *testing.T) {
	cases := []struct {
		env map[string]string
		key string
	}{
		{map[string]string{"JSONRPC_TRANSPORT": "smtp"}, KeyTransport},
		{map[string]string{"JSONRPC_TIMEOUT": "0s"}, KeyTimeout},
		{map[string]string{"JSONRPC_RATE_LIMIT": "-1"}, KeyRateLimit},
		{map[string]string{"JSONRPC_RATE_LIMIT": "10", "JSONRPC_RATE_BURST": "0"}, KeyRateBurst},
		{map[string]string{"JSONRPC_BALANCER": "random"}, KeyBalancer},
		{map[string]string{"JSONRPC_SERVICE_NAME": "Example"}, KeyEtcdEndpoints},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.key, cfgErr.Key)
			assert.Contains(t, err.Error(), "[CONFIG_ERROR]")
		})
	}
}
