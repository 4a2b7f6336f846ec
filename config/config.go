// Package config loads client and server settings from the environment.
//
// Every key is read from JSONRPC_<KEY>, optionally seeded from a .env file in the working
// directory. Flags from the command line override the environment through Overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "JSONRPC"

// Keys, without the JSONRPC_ prefix.
const (
	KeyEndpoint      = "ENDPOINT"
	KeyTransport     = "TRANSPORT"
	KeyTimeout       = "TIMEOUT"
	KeyRateLimit     = "RATE_LIMIT"
	KeyRateBurst     = "RATE_BURST"
	KeyLogLevel      = "LOG_LEVEL"
	KeyLogFormat     = "LOG_FORMAT"
	KeyEtcdEndpoints = "ETCD_ENDPOINTS"
	KeyServiceName   = "SERVICE_NAME"
	KeyBalancer      = "BALANCER"
	KeyMetricsAddr   = "METRICS_ADDR"
)

// Default configuration constants
const (
	DefaultEndpoint  = "http://127.0.0.1:8080/rpc"
	DefaultTransport = TransportHTTP
	DefaultTimeout   = 10 * time.Second
	DefaultRateBurst = 1
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "plain"
	DefaultBalancer  = "round_robin"
)

// Transport names accepted in JSONRPC_TRANSPORT.
const (
	TransportHTTP      = "http"
	TransportWebsocket = "ws"
	TransportTCP       = "tcp"
)

// TransportStdio spawns ENDPOINT as a command line and talks over its stdin and stdout.
const TransportStdio = "stdio"

type Config struct {
	endpoint      string
	transport     string
	timeout       time.Duration
	rateLimit     float64
	rateBurst     int
	logLevel      string
	logFormat     string
	etcdEndpoints []string
	serviceName   string
	balancer      string
	metricsAddr   string
}

// Overrides maps keys (e.g. KeyEndpoint) to values that win over the environment.
type Overrides map[string]any

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyEndpoint, DefaultEndpoint)
	v.SetDefault(KeyTransport, DefaultTransport)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyRateLimit, 0.0)
	v.SetDefault(KeyRateBurst, DefaultRateBurst)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyEtcdEndpoints, "")
	v.SetDefault(KeyServiceName, "")
	v.SetDefault(KeyBalancer, DefaultBalancer)
	v.SetDefault(KeyMetricsAddr, "")
}

// Load reads the configuration. A missing .env file is not an error.
func Load(overrides Overrides) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, &Error{Key: ".env", Msg: "cannot parse", Cause: err}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}

	cfg := &Config{
		endpoint:      v.GetString(KeyEndpoint),
		transport:     strings.ToLower(v.GetString(KeyTransport)),
		timeout:       v.GetDuration(KeyTimeout),
		rateLimit:     v.GetFloat64(KeyRateLimit),
		rateBurst:     v.GetInt(KeyRateBurst),
		logLevel:      strings.ToLower(v.GetString(KeyLogLevel)),
		logFormat:     strings.ToLower(v.GetString(KeyLogFormat)),
		etcdEndpoints: splitList(v.GetString(KeyEtcdEndpoints)),
		serviceName:   v.GetString(KeyServiceName),
		balancer:      v.GetString(KeyBalancer),
		metricsAddr:   v.GetString(KeyMetricsAddr),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.transport {
	case TransportHTTP, TransportWebsocket, TransportTCP, TransportStdio:
	default:
		return newInvalidValueError(KeyTransport, c.transport, "must be one of http, ws, tcp, stdio")
	}
	if c.endpoint == "" && c.serviceName == "" {
		return newInvalidValueError(KeyEndpoint, c.endpoint, "set an endpoint or a service name")
	}
	if c.serviceName != "" && len(c.etcdEndpoints) == 0 {
		return newInvalidValueError(KeyEtcdEndpoints, "", "required when SERVICE_NAME is set")
	}
	if c.timeout <= 0 {
		return newInvalidValueError(KeyTimeout, c.timeout.String(), "must be positive")
	}
	if c.rateLimit < 0 {
		return newInvalidValueError(KeyRateLimit, fmt.Sprint(c.rateLimit), "must be non-negative")
	}
	if c.rateLimit > 0 && c.rateBurst < 1 {
		return newInvalidValueError(KeyRateBurst, fmt.Sprint(c.rateBurst), "must be at least 1")
	}
	switch c.balancer {
	case "round_robin", "weighted_random", "consistent_hash":
	default:
		return newInvalidValueError(KeyBalancer, c.balancer, "must be one of round_robin, weighted_random, consistent_hash")
	}
	return nil
}

func (c Config) GetEndpoint() string {
	return c.endpoint
}

func (c Config) GetTransport() string {
	return c.transport
}

func (c Config) GetTimeout() time.Duration {
	return c.timeout
}

// GetRateLimit returns calls per second; 0 disables rate limiting.
func (c Config) GetRateLimit() (float64, int) {
	return c.rateLimit, c.rateBurst
}

func (c Config) GetLogLevel() slog.Level {
	switch c.logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (c Config) GetLogFormat() string {
	if c.logFormat == "json" {
		return "json"
	}
	return "plain"
}

func (c Config) GetEtcdEndpoints() []string {
	return c.etcdEndpoints
}

// GetServiceName is the registry service to discover. Empty means use the endpoint directly.
func (c Config) GetServiceName() string {
	return c.serviceName
}

func (c Config) GetBalancer() string {
	return c.balancer
}

// GetMetricsAddr is the listen address for /metrics; empty disables it.
func (c Config) GetMetricsAddr() string {
	return c.metricsAddr
}
