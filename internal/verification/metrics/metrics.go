package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	ScanDuration    *prometheus.HistogramVec
	CheckOutcomes   *prometheus.CounterVec
	CheckTimeouts   *prometheus.CounterVec
	CheckDuration   *prometheus.HistogramVec
	CompositeScores prometheus.Histogram
	PersistFailures *prometheus.CounterVec
	AlertsOpened    *prometheus.CounterVec
	AlertsResolved  *prometheus.CounterVec
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		ScanDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veritas_scan_duration_seconds",
			Help:    "Duration of a full scan by tier",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"tier"}),

		CheckOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_check_outcomes_total",
			Help: "Check results by check id and status",
		}, []string{"check_id", "status"}),

		CheckTimeouts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_check_timeouts_total",
			Help: "Checks that exceeded their per-check deadline",
		}, []string{"check_id"}),

		CheckDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veritas_check_duration_seconds",
			Help:    "Duration of a single check module run",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 1, 5, 15},
		}, []string{"check_id"}),

		CompositeScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_scan_composite_score",
			Help:    "Distribution of composite scores of completed scans",
			Buckets: []float64{10, 25, 50, 60, 75, 90, 100},
		}),

		PersistFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_scan_persist_failures_total",
			Help: "Non-fatal persistence failures after session creation",
		}, []string{"stage"}), // stage: "snapshot", "results", "alerts", "finalize", "score", "outbox"

		AlertsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_mismatch_alerts_opened_total",
			Help: "Mismatch alerts opened by dimension",
		}, []string{"dimension"}),

		AlertsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_mismatch_alerts_resolved_total",
			Help: "Mismatch alerts resolved by dimension",
		}, []string{"dimension"}),
	}
}

func (m *Metrics) ObserveScan(tier string, d time.Duration) {
	if m != nil {
		m.ScanDuration.WithLabelValues(tier).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveCheck(checkID, status string, d time.Duration) {
	if m != nil {
		m.CheckOutcomes.WithLabelValues(checkID, status).Inc()
		m.CheckDuration.WithLabelValues(checkID).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCheckTimeout(checkID string) {
	if m != nil {
		m.CheckTimeouts.WithLabelValues(checkID).Inc()
	}
}

func (m *Metrics) ObserveCompositeScore(score int) {
	if m != nil {
		m.CompositeScores.Observe(float64(score))
	}
}

func (m *Metrics) IncrementPersistFailure(stage string) {
	if m != nil {
		m.PersistFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) IncrementAlertOpened(dimension string) {
	if m != nil {
		m.AlertsOpened.WithLabelValues(dimension).Inc()
	}
}

func (m *Metrics) IncrementAlertResolved(dimension string) {
	if m != nil {
		m.AlertsResolved.WithLabelValues(dimension).Inc()
	}
}
