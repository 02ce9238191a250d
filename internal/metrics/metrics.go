package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics holds all Prometheus metrics for the scanner
type Metrics struct {
	CandlesFetched   *prometheus.CounterVec   // labels: source
	FetchErrors      *prometheus.CounterVec   // labels: source
	ProfilesComputed prometheus.Counter
	ComputeDur       prometheus.Histogram
	SignalsTotal     *prometheus.CounterVec // labels: kind
	CacheHits        *prometheus.CounterVec // labels: kind
	CacheMisses      *prometheus.CounterVec // labels: kind
	WSClients        prometheus.Gauge
	StreamReconnects prometheus.Counter
}

// New registers and returns all Prometheus metrics
func New() *Metrics {
	m := &Metrics{
		CandlesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vpback_candles_fetched_total",
			Help: "Total candles fetched from exchanges",
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vpback_fetch_errors_total",
			Help: "Total failed exchange fetch attempts",
		}, []string{"source"}),
		ProfilesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vpback_profiles_computed_total",
			Help: "Total volume profiles computed",
		}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vpback_compute_duration_seconds",
			Help:    "Volume profile computation latency per symbol",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vpback_signals_total",
			Help: "Total signals evaluated (by kind)",
		}, []string{"kind"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vpback_cache_hits_total",
			Help: "Redis cache hits (by object kind)",
		}, []string{"kind"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vpback_cache_misses_total",
			Help: "Redis cache misses (by object kind)",
		}, []string{"kind"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vpback_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vpback_stream_reconnects_total",
			Help: "Total kline stream reconnection attempts",
		}),
	}

	prometheus.MustRegister(
		m.CandlesFetched,
		m.FetchErrors,
		m.ProfilesComputed,
		m.ComputeDur,
		m.SignalsTotal,
		m.CacheHits,
		m.CacheMisses,
		m.WSClients,
		m.StreamReconnects,
	)

	return m
}

// Server exposes /metrics on a dedicated port
type Server struct {
	srv    *http.Server
	logger *logrus.Entry
}

// NewServer creates the metrics HTTP server
func NewServer(port int, logger *logrus.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		logger: logger.WithField("component", "metrics"),
	}
}

// Start launches the HTTP server in a goroutine
func (s *Server) Start() {
	go func() {
		s.logger.WithField("addr", s.srv.Addr).Info("Metrics server listening")
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Metrics server error")
		}
	}()
}

// Stop gracefully shuts down the metrics server
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
