// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upstream metrics
	UpstreamCallLatency *prometheus.HistogramVec
	UpstreamCallErrors  *prometheus.CounterVec
	WSReconnects        prometheus.Counter

	// PnL metrics
	EngineRuns        *prometheus.CounterVec
	EngineDuration    prometheus.Histogram
	CacheLookups      *prometheus.CounterVec
	HistoryWriteFails prometheus.Counter

	// Snapshot metrics
	SnapshotCaptures *prometheus.CounterVec
	TrackedWallets   prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCapture prometheus.Gauge
}

// DefaultNamespace prefixes all metric names unless configured otherwise.
const DefaultNamespace = "hyperliquid_pnl"

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Upstream metrics
		UpstreamCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hyperliquid",
			Name:      "info_call_latency_seconds",
			Help:      "Info API call latency in seconds by request type",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		UpstreamCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hyperliquid",
			Name:      "info_call_errors_total",
			Help:      "Total number of failed info API calls by request type",
		}, []string{"type"}),
		WSReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hyperliquid",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		// PnL metrics
		EngineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pnl",
			Name:      "engine_runs_total",
			Help:      "Total number of PnL computations by equity mode",
		}, []string{"equity_mode"}),
		EngineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pnl",
			Name:      "compute_duration_seconds",
			Help:      "Wallet PnL computation duration in seconds, fetches included",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pnl",
			Name:      "cache_lookups_total",
			Help:      "Total number of PnL cache lookups by result",
		}, []string{"result"}),
		HistoryWriteFails: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pnl",
			Name:      "history_write_failures_total",
			Help:      "Total number of failed daily PnL history writes",
		}),

		// Snapshot metrics
		SnapshotCaptures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "captures_total",
			Help:      "Total number of equity snapshot captures by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		TrackedWallets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "tracked_wallets",
			Help:      "Number of active tracked wallets",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulCapture: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_capture_timestamp",
			Help:      "Unix timestamp of last successful snapshot capture run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, seconds float64) {
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordUpstreamCall records info API call latency and failures.
func (m *Metrics) RecordUpstreamCall(infoType string, seconds float64, err error) {
	m.UpstreamCallLatency.WithLabelValues(infoType).Observe(seconds)
	if err != nil {
		m.UpstreamCallErrors.WithLabelValues(infoType).Inc()
	}
}

// RecordEngineRun records a completed PnL computation.
func (m *Metrics) RecordEngineRun(equityMode string, seconds float64) {
	m.EngineRuns.WithLabelValues(equityMode).Inc()
	m.EngineDuration.Observe(seconds)
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordSnapshotCapture records one capture attempt.
func (m *Metrics) RecordSnapshotCapture(trigger string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.SnapshotCaptures.WithLabelValues(trigger, outcome).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
