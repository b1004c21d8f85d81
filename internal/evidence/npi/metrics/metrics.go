package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers registry lookups and the record cache.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	CacheLatency     *prometheus.HistogramVec
	SourceRequests   *prometheus.CounterVec
	SourceLatency    *prometheus.HistogramVec
	RosterPages      prometheus.Counter
	RecordSelections *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_registry_cache_lookups_total",
			Help: "Registry record cache lookups by layer and result",
		}, []string{"layer", "result"}),
		CacheLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veritas_registry_cache_latency_seconds",
			Help:    "Registry record cache lookup latency by layer",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"layer"}),
		SourceRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_registry_source_requests_total",
			Help: "Registry source calls by provider and outcome category",
		}, []string{"provider", "outcome"}),
		SourceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veritas_registry_source_latency_seconds",
			Help:    "Registry source call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		RosterPages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_registry_roster_pages_total",
			Help: "Roster pages fetched from the primary source",
		}),
		RecordSelections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_registry_record_selections_total",
			Help: "Which source supplied the record used for a scan",
		}, []string{"provider"}),
	}
}

func (m *Metrics) ObserveCache(layer string, hit bool, start time.Time) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(layer, result).Inc()
	m.CacheLatency.WithLabelValues(layer).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveSource(provider, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.SourceRequests.WithLabelValues(provider, outcome).Inc()
	m.SourceLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementRosterPage() {
	if m == nil {
		return
	}
	m.RosterPages.Inc()
}

func (m *Metrics) IncrementSelection(provider string) {
	if m == nil {
		return
	}
	m.RecordSelections.WithLabelValues(provider).Inc()
}
