// Package obsmetrics exposes the loader's resilience state as Prometheus
// metrics, re-derived from the teacher's internal/interfaces/http
// MetricsRegistry shape for this module's own counters.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry owns every Prometheus collector this module exposes.
type Registry struct {
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
	FetchDuration    *prometheus.HistogramVec
	FetchErrors      *prometheus.CounterVec
	RetriesPerformed *prometheus.CounterVec
	ActiveSlots      *prometheus.GaugeVec
}

// NewRegistry builds and registers every collector against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexuscore_cache_hits_total",
			Help: "Total cache hits per provider.",
		}, []string{"provider"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexuscore_cache_misses_total",
			Help: "Total cache misses per provider.",
		}, []string{"provider"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nexuscore_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open).",
		}, []string{"provider"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nexuscore_fetch_duration_seconds",
			Help:    "Fetch call latency per provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "endpoint"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexuscore_fetch_errors_total",
			Help: "Total fetch failures per provider.",
		}, []string{"provider"}),
		RetriesPerformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexuscore_retries_performed_total",
			Help: "Total retry attempts performed per provider.",
		}, []string{"provider"}),
		ActiveSlots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nexuscore_gate_active_slots",
			Help: "Currently occupied concurrency slots per provider.",
		}, []string{"provider"}),
	}

	reg.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.BreakerState,
		m.FetchDuration,
		m.FetchErrors,
		m.RetriesPerformed,
		m.ActiveSlots,
	)

	return m
}
