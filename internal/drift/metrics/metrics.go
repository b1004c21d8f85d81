package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for drift ingestion and lifecycle.
type Metrics struct {
	EventsRecorded     *prometheus.CounterVec
	EventsDeduplicated *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	BaselinesUpserted  prometheus.Counter
	Heartbeats         prometheus.Counter
	DedupeGuardErrors  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_drift_events_recorded_total",
			Help: "Drift events stored by category and severity",
		}, []string{"category", "severity"}),
		EventsDeduplicated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_drift_events_deduplicated_total",
			Help: "Drift reports suppressed as duplicates within the window",
		}, []string{"category"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_drift_event_transitions_total",
			Help: "Drift event lifecycle transitions by target status",
		}, []string{"status"}),
		BaselinesUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_drift_baselines_upserted_total",
			Help: "Category baselines written",
		}),
		Heartbeats: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_widget_heartbeats_total",
			Help: "Widget heartbeats received",
		}),
		DedupeGuardErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritas_drift_dedupe_guard_errors_total",
			Help: "Dedupe guard failures that fell through to the storage constraint",
		}),
	}
}

func (m *Metrics) IncrementRecorded(category, severity string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(category, severity).Inc()
}

func (m *Metrics) IncrementDeduplicated(category string) {
	if m == nil {
		return
	}
	m.EventsDeduplicated.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) AddBaselines(n int) {
	if m == nil {
		return
	}
	m.BaselinesUpserted.Add(float64(n))
}

func (m *Metrics) IncrementHeartbeat() {
	if m == nil {
		return
	}
	m.Heartbeats.Inc()
}

func (m *Metrics) IncrementGuardError() {
	if m == nil {
		return
	}
	m.DedupeGuardErrors.Inc()
}
