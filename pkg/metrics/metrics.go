// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ImportsTotal         *prometheus.CounterVec
	RecordsImportedTotal prometheus.Counter
	RowErrorsTotal       prometheus.Counter

	QueriesTotal *prometheus.CounterVec
	QueryLatency *prometheus.HistogramVec

	SyncRunsTotal    *prometheus.CounterVec
	DocsSyncedTotal  prometheus.Counter
	SyncBulkFailures prometheus.Counter

	SuggestionsTotal      prometheus.Counter
	LedgerIncrementFailed prometheus.Counter
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ImportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imports_total",
				Help: "Total CSV import attempts by outcome (success, rejected, error).",
			},
			[]string{"outcome"},
		),
		RecordsImportedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "records_imported_total",
				Help: "Total election records committed to the canonical store.",
			},
		),
		RowErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "import_row_errors_total",
				Help: "Total row-level validation errors across all imports.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregation_queries_total",
				Help: "Total aggregation queries by backend and outcome.",
			},
			[]string{"backend", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aggregation_query_duration_seconds",
				Help:    "Aggregation query latency in seconds by backend.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"backend"},
		),
		SyncRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_sync_runs_total",
				Help: "Total index sync runs by outcome.",
			},
			[]string{"outcome"},
		),
		DocsSyncedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_docs_synced_total",
				Help: "Total documents copied into the search index.",
			},
		),
		SyncBulkFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_sync_bulk_failures_total",
				Help: "Total bulk items rejected by the search index during sync.",
			},
		),
		SuggestionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "suggestions_total",
				Help: "Total municipality suggestion queries served.",
			},
		),
		LedgerIncrementFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_increment_failures_total",
				Help: "Total failed popularity-ledger increments.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of aggregation cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of aggregation cache misses.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ImportsTotal,
		m.RecordsImportedTotal,
		m.RowErrorsTotal,
		m.QueriesTotal,
		m.QueryLatency,
		m.SyncRunsTotal,
		m.DocsSyncedTotal,
		m.SyncBulkFailures,
		m.SuggestionsTotal,
		m.LedgerIncrementFailed,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
