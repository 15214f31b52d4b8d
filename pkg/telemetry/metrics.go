// Package telemetry provides Prometheus metrics for the cache, the rate
// limiter and upstream generation calls.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheStores *prometheus.CounterVec

	LimiterWait     prometheus.Histogram
	LimiterAccepted prometheus.Counter

	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	UpstreamTokens   *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on registry. A nil registry
// gets a fresh one so tests never collide on the default registerer.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "versewright_cache_hits_total",
				Help: "Cache hits by operation and tier",
			},
			[]string{"operation", "tier"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "versewright_cache_misses_total",
				Help: "Cache misses by operation",
			},
			[]string{"operation"},
		),
		CacheStores: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "versewright_cache_stores_total",
				Help: "Results written to the cache by operation and tier",
			},
			[]string{"operation", "tier"},
		),

		LimiterWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "versewright_limiter_wait_seconds",
				Help:    "Time callers spent suspended by the rate limiter",
				Buckets: []float64{0, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
		),
		LimiterAccepted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "versewright_limiter_accepted_total",
				Help: "Calls granted by the rate limiter",
			},
		),

		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "versewright_upstream_requests_total",
				Help: "Dispatched generation calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		UpstreamLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "versewright_upstream_latency_seconds",
				Help:    "Generation call latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"operation"},
		),
		UpstreamTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "versewright_upstream_tokens_total",
				Help: "Tokens reported by the generation API by operation and kind",
			},
			[]string{"operation", "kind"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheHit records a hit served by tier.
func (m *Metrics) CacheHit(operation, tier string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(operation, tier).Inc()
}

// CacheMiss records a lookup that fell through every tier.
func (m *Metrics) CacheMiss(operation string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(operation).Inc()
}

// CacheStore records a write to tier.
func (m *Metrics) CacheStore(operation, tier string) {
	if m == nil {
		return
	}
	m.CacheStores.WithLabelValues(operation, tier).Inc()
}

// LimiterGranted records a granted call and how long the caller waited.
func (m *Metrics) LimiterGranted(wait time.Duration) {
	if m == nil {
		return
	}
	m.LimiterAccepted.Inc()
	m.LimiterWait.Observe(wait.Seconds())
}

// Upstream records a dispatched call.
func (m *Metrics) Upstream(operation, outcome string, latency time.Duration, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(operation).Observe(latency.Seconds())
	if promptTokens > 0 {
		m.UpstreamTokens.WithLabelValues(operation, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.UpstreamTokens.WithLabelValues(operation, "completion").Add(float64(completionTokens))
	}
}
