package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	dErrors "veritas/pkg/domain-errors"
)

// TriggeredBy records what initiated a scan.
type TriggeredBy string

const (
	TriggerManual       TriggeredBy = "manual"
	TriggerScheduled    TriggeredBy = "scheduled"
	TriggerDriftMonitor TriggeredBy = "drift_monitor"
	TriggerBatch        TriggeredBy = "batch"
)

// ParseTriggeredBy validates a trigger; empty means manual.
func ParseTriggeredBy(s string) (TriggeredBy, error) {
	t := TriggeredBy(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "":
		return TriggerManual, nil
	case TriggerManual, TriggerScheduled, TriggerDriftMonitor, TriggerBatch:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown trigger %q", s))
}

// RiskLevel buckets a composite score.
type RiskLevel string

const (
	RiskSovereign    RiskLevel = "Sovereign"
	RiskDrift        RiskLevel = "Drift"
	RiskViolation    RiskLevel = "Violation"
	RiskInconclusive RiskLevel = "Inconclusive"
)

// Canonical risk thresholds. This is the only place scores map to levels.
const (
	SovereignThreshold = 75
	DriftThreshold     = 50
)

// RiskLevelFor maps a composite score to its level. A scan with no scoreable
// checks is Inconclusive rather than Violation so data gaps are never read as
// non-compliance.
func RiskLevelFor(score int, scoreable bool) RiskLevel {
	switch {
	case !scoreable:
		return RiskInconclusive
	case score >= SovereignThreshold:
		return RiskSovereign
	case score >= DriftThreshold:
		return RiskDrift
	default:
		return RiskViolation
	}
}

// CompositeScore is the rounded mean score over non-inconclusive results,
// or 0 when none are scoreable. Halves round away from zero.
func CompositeScore(results []ResultWithCheck) (score int, scoreable bool) {
	sum, n := 0, 0
	for _, r := range results {
		if r.Status == StatusInconclusive {
			continue
		}
		sum += r.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return int(math.Round(float64(sum) / float64(n))), true
}

// ScanSession is one scan invocation.
//
// Invariants:
//   - Created before any check runs, so a crashed scan stays visible with CompletedAt nil
//   - Finalized exactly once, after aggregation
//   - Never deleted by this service
type ScanSession struct {
	ID             string            `json:"id"`
	NPI            string            `json:"npi"`
	URL            string            `json:"url"`
	Tier           Tier              `json:"tier"`
	TriggeredBy    TriggeredBy       `json:"triggered_by"`
	CompositeScore int               `json:"composite_score"`
	RiskLevel      RiskLevel         `json:"risk_level,omitempty"`
	ChecksTotal    int               `json:"checks_total"`
	ChecksPassed   int               `json:"checks_passed"`
	ChecksFailed   int               `json:"checks_failed"`
	ChecksWarned   int               `json:"checks_warned"`
	Results        []ResultWithCheck `json:"results,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// IsComplete reports whether the session has been finalized.
func (s *ScanSession) IsComplete() bool {
	return s.CompletedAt != nil
}

// Finalize records the aggregate over results. Calling it twice is an error.
func (s *ScanSession) Finalize(results []ResultWithCheck, completedAt time.Time) error {
	if s.IsComplete() {
		return dErrors.New(dErrors.CodeInvalidState, "scan session already finalized")
	}
	score, scoreable := CompositeScore(results)
	s.CompositeScore = score
	s.RiskLevel = RiskLevelFor(score, scoreable)
	s.ChecksTotal = len(results)
	s.ChecksPassed, s.ChecksFailed, s.ChecksWarned = 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.ChecksPassed++
		case StatusFail:
			s.ChecksFailed++
		case StatusWarn:
			s.ChecksWarned++
		}
	}
	s.Results = results
	s.CompletedAt = &completedAt
	return nil
}

// ProviderScore is the denormalized "latest score" projection read by
// dashboards and other surfaces.
type ProviderScore struct {
	NPI        string    `json:"npi"`
	RiskScore  int       `json:"risk_score"`
	RiskLevel  RiskLevel `json:"risk_level"`
	LastScanID string    `json:"last_scan_id"`
	LastScanAt time.Time `json:"last_scan_at"`
}
