// Package telemetry exposes Prometheus metrics for the recommendation cache
// and the recommendation service client.
//
// Each Metrics owns its registry so that CLI invocations and tests never
// share counters. Short-lived commands flush the registry to a node_exporter
// textfile with WriteTextfile.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "finplan"

// Recommendation request outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
	OutcomeDiscarded   = "discarded"
)

// Metrics holds every collector the application records into. It implements
// cache.Observer.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits        prometheus.Counter
	cacheMisses      *prometheus.CounterVec
	cacheEvictions   *prometheus.CounterVec
	cachePutFailures prometheus.Counter
	cacheEntries     prometheus.Gauge

	recommendRequests *prometheus.CounterVec
	recommendLatency  prometheus.Histogram
	breakerState      *prometheus.GaugeVec
}

// New creates a Metrics with a fresh registry. withRuntime adds the Go
// runtime and process collectors.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of recommendation cache hits",
		}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of recommendation cache misses by reason",
		}, []string{"reason"}),
		cacheEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of cache entries removed by reason",
		}, []string{"reason"}),
		cachePutFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "put_failures_total",
			Help:      "Total number of cache writes that failed",
		}),
		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of entries tracked by the cache index",
		}),

		recommendRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recommender",
			Name:      "requests_total",
			Help:      "Total number of recommendation service requests by outcome",
		}, []string{"outcome"}),
		recommendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "recommender",
			Name:      "request_duration_seconds",
			Help:      "Recommendation service request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "recommender",
			Name:      "circuit_state",
			Help:      "Circuit breaker state (1 for the current state, 0 otherwise)",
		}, []string{"state"}),
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CacheHit records a served cache entry.
func (m *Metrics) CacheHit() {
	m.cacheHits.Inc()
}

// CacheMiss records a lookup that returned nothing.
func (m *Metrics) CacheMiss(reason string) {
	m.cacheMisses.WithLabelValues(reason).Inc()
}

// CacheEvicted records n entries removed for reason.
func (m *Metrics) CacheEvicted(reason string, n int) {
	if n > 0 {
		m.cacheEvictions.WithLabelValues(reason).Add(float64(n))
	}
}

// CachePutFailed records a failed cache write.
func (m *Metrics) CachePutFailed() {
	m.cachePutFailures.Inc()
}

// CacheEntries sets the current index size.
func (m *Metrics) CacheEntries(n int) {
	m.cacheEntries.Set(float64(n))
}

// ObserveRecommendation records one recommendation service call.
func (m *Metrics) ObserveRecommendation(outcome string, d time.Duration) {
	m.recommendRequests.WithLabelValues(outcome).Inc()
	if outcome != OutcomeUnavailable {
		m.recommendLatency.Observe(d.Seconds())
	}
}

// BreakerStateChanged marks state as the breaker's current state.
func (m *Metrics) BreakerStateChanged(from, to string) {
	m.breakerState.WithLabelValues(from).Set(0)
	m.breakerState.WithLabelValues(to).Set(1)
}

// WriteTextfile writes every metric in the Prometheus text format to path,
// atomically, for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
