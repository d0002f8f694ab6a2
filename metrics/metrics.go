// Package metrics defines the Prometheus collectors for rebuilds and
// searches. Collectors live on a private registry so that several stores can
// coexist in one process; the host decides whether and how to expose them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	ResultHit        = "hit"
	ResultMiss       = "miss"
	ResultZeroResult = "zero_result"
	ResultError      = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RebuildsTotal       *prometheus.CounterVec
	RebuildDuration     prometheus.Histogram
	SkippedRecordsTotal *prometheus.CounterVec
	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       prometheus.Histogram
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordstore_rebuilds_total",
				Help: "Total index rebuilds by outcome.",
			},
			[]string{"outcome"},
		),
		RebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recordstore_rebuild_duration_seconds",
				Help:    "Index rebuild latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		SkippedRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordstore_skipped_records_total",
				Help: "Records left out of an index because their keys could not be derived.",
			},
			[]string{"index"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordstore_search_queries_total",
				Help: "Total search queries by result type (hit, miss, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recordstore_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recordstore_search_cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recordstore_search_cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
	}

	m.Registry.MustRegister(
		m.RebuildsTotal,
		m.RebuildDuration,
		m.SkippedRecordsTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

func (m *Metrics) ObserveRebuild(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RebuildsTotal.WithLabelValues(outcome).Inc()
	m.RebuildDuration.Observe(duration.Seconds())
}

func (m *Metrics) AddSkipped(index string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.SkippedRecordsTotal.WithLabelValues(index).Add(float64(count))
}

func (m *Metrics) ObserveSearch(resultType string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.Observe(duration.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}
