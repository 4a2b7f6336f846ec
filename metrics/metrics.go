// Package metrics exposes Prometheus metrics for JSON-RPC exchanges.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var LatencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Status label values.
const (
	StatusOK          = "ok"
	StatusRemoteError = "remote_error"
	StatusFailed      = "failed"
)

// CallMetrics groups the per-exchange metrics.
type CallMetrics struct {
	RequestsTotal *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	InFlight      prometheus.Gauge
}

func NewCallMetrics() *CallMetrics {
	return &CallMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonrpc_requests_total",
				Help: "Total number of JSON-RPC exchanges",
			},
			[]string{"endpoint", "status"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jsonrpc_request_latency_seconds",
				Help:    "JSON-RPC exchange latency in seconds",
				Buckets: LatencyBuckets,
			},
			[]string{"endpoint"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "jsonrpc_requests_in_flight",
				Help: "Number of JSON-RPC exchanges currently in progress",
			},
		),
	}
}

// Register registers all call metrics with the given registry
func (m *CallMetrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.RequestsTotal,
		m.Latency,
		m.InFlight,
	)
}

// Observe records one finished exchange.
func (m *CallMetrics) Observe(endpoint, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.Latency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// NewRegistry returns a registry holding m plus the Go runtime and process collectors.
func NewRegistry(m *CallMetrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	m.Register(reg)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Server serves /metrics for a registry.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

func NewServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		},
		logger: logger.With("component", "metrics"),
	}
}

// Start blocks serving metrics until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting metrics server", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
