// Package metrics defines the Prometheus collectors used across the
// registry and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the registry.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ClaimsIngestedTotal *prometheus.CounterVec
	ClaimsDeletedTotal  prometheus.Counter
	IngestFailuresTotal prometheus.Counter

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter

	TierWritesTotal          *prometheus.CounterVec
	FallbackState            prometheus.Gauge
	FallbackTransitionsTotal *prometheus.CounterVec
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
		ClaimsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claims_ingested_total",
				Help: "Total claims ingested, by storage tier the content landed on.",
			},
			[]string{"tier"},
		),
		ClaimsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "claims_deleted_total",
				Help: "Total claims deleted.",
			},
		),
		IngestFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_failures_total",
				Help: "Total ingest requests rejected or failed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		TierWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_tier_writes_total",
				Help: "Total blob writes by tier (durable, ephemeral).",
			},
			[]string{"tier"},
		),
		FallbackState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "storage_fallback_state",
				Help: "Fallback controller state (0=healthy, 1=degraded, 2=recovering).",
			},
		),
		FallbackTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_fallback_transitions_total",
				Help: "Fallback state transitions by reason.",
			},
			[]string{"reason"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ClaimsIngestedTotal,
		m.ClaimsDeletedTotal,
		m.IngestFailuresTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.TierWritesTotal,
		m.FallbackState,
		m.FallbackTransitionsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
