// Package metrics defines the Prometheus metric collectors used by the
// variant search services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the search services.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	StageDuration        *prometheus.HistogramVec
	StageRows            *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CatalogLoaded        *prometheus.GaugeVec
}

// New creates and registers all metrics with the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
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
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 240},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "variant_search_queries_total",
				Help: "Total variant searches by operation and outcome (ok, bad_request, not_found, timeout, error).",
			},
			[]string{"operation", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "variant_search_latency_seconds",
				Help:    "Variant search latency in seconds.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 240},
			},
			[]string{"operation", "cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "variant_search_total_results",
				Help:    "Number of matching results per search, before top-K truncation.",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
			},
			[]string{"inheritance_mode"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "variant_search_stage_duration_seconds",
				Help:    "Duration of individual query pipeline stages.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"data_type", "stage"},
		),
		StageRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "variant_search_stage_rows",
				Help:    "Rows surviving each query pipeline stage.",
				Buckets: prometheus.ExponentialBuckets(1, 10, 8),
			},
			[]string{"data_type", "stage"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "variant_search_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "variant_search_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		CatalogLoaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "variant_search_catalog_loaded",
				Help: "Whether the annotation catalog for a genome/data type is loaded (1) or unavailable (0).",
			},
			[]string{"genome_version", "data_type"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.StageDuration,
		m.StageRows,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CatalogLoaded,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
