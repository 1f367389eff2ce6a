// Package metrics provides Prometheus metrics for the tModLoader docs MCP server.
// It tracks tool calls, catalog cache behaviour and documentation page fetches.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace for all metrics
const (
	Namespace = "tmodloader_docs_mcp"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures request latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing requests
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of requests currently being processed",
	}, []string{"tool"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// CacheHits counts catalog lookups served from a fresh snapshot
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "catalog_cache_hits_total",
		Help:      "Catalog lookups served from the cached snapshot",
	})

	// CacheMisses counts catalog lookups that required a refresh
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "catalog_cache_misses_total",
		Help:      "Catalog lookups that found no fresh snapshot",
	})

	// CatalogRefreshes counts index fetch-and-parse attempts by outcome
	CatalogRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "catalog_refreshes_total",
		Help:      "Catalog refresh attempts by status",
	}, []string{"status"})

	// CatalogSize is the number of classes in the current snapshot
	CatalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "catalog_classes",
		Help:      "Number of class records in the current catalog",
	})

	// FetchLatency measures documentation page fetch latency by action
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "fetch_latency_seconds",
		Help:      "Documentation page fetch latency by action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// FetchRequestsTotal counts documentation page fetches
	FetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "fetch_requests_total",
		Help:      "Total documentation page fetches by action and status",
	}, []string{"action", "status"})

	// FetchRetries counts fetch retries
	FetchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "fetch_retries_total",
		Help:      "Documentation page fetch retry count by action",
	}, []string{"action"})

	// RateLimitWaits counts requests that had to wait for a concurrency slot
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_waits_total",
		Help:      "Requests that waited for the fetch semaphore",
	})

	// ContentSize tracks fetched page sizes
	ContentSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "content_size_bytes",
		Help:      "Fetched page size distribution in bytes",
		Buckets:   []float64{1000, 10000, 50000, 100000, 250000, 500000, 1000000, 5000000},
	}, []string{"action"})
)

// RecordRequest records a completed request with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RequestsTotal.WithLabelValues(tool, status).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordFetch records a page fetch. status is the HTTP status code, or
// "error" when no response was received.
func RecordFetch(action string, duration float64, status string) {
	FetchRequestsTotal.WithLabelValues(action, status).Inc()
	FetchLatency.WithLabelValues(action).Observe(duration)
}

// RecordCacheAccess records a catalog cache hit or miss
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
