package models

import (
	"context"
	"fmt"
	"strings"

	dErrors "veritas/pkg/domain-errors"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusPass         Status = "pass"
	StatusFail         Status = "fail"
	StatusWarn         Status = "warn"
	StatusInconclusive Status = "inconclusive"
)

// IsMismatch reports whether the status records a genuine discrepancy.
func (s Status) IsMismatch() bool {
	return s == StatusFail || s == StatusWarn
}

// Tier is the subscription tier a check is gated behind.
// Tiers cascade: report includes free, shield includes report.
type Tier string

const (
	TierFree   Tier = "free"
	TierReport Tier = "report"
	TierShield Tier = "shield"
)

var tierRank = map[Tier]int{
	TierFree:   0,
	TierReport: 1,
	TierShield: 2,
}

// Rank orders tiers; unknown tiers rank as free.
func (t Tier) Rank() int {
	return tierRank[t]
}

// Includes reports whether a caller on tier t may run a check gated at other.
func (t Tier) Includes(other Tier) bool {
	return other.Rank() <= t.Rank()
}

// AllowsRoster reports whether the tier pays for the geo roster prefetch.
func (t Tier) AllowsRoster() bool {
	return t.Includes(TierReport)
}

// ParseTier validates a tier string.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierRank[t]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown tier %q", s))
	}
	return t, nil
}

// Severity expresses how much a mismatch on this check matters.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Category groups checks by regulatory area.
type Category string

const (
	CategoryNPIIntegrity      Category = "npi-integrity"
	CategoryDataResidency     Category = "data-residency"
	CategoryAITransparency    Category = "ai-transparency"
	CategoryClinicalIntegrity Category = "clinical-integrity"
)

// CheckModule is one pluggable comparator. Implementations are immutable
// value objects registered once at startup.
//
// Run must be pure over cc.Cache: no writes, no network. A correct
// implementation never returns an error; the orchestrator still converts
// errors, panics and timeouts into an inconclusive result.
type CheckModule interface {
	ID() string
	Name() string
	Category() Category
	Severity() Severity
	Tier() Tier
	StatuteRef() string
	Run(ctx context.Context, cc *CheckContext) (CheckResult, error)
}

// CheckResult is what a module reports.
//
// Invariants:
//   - Score is within 0..100
//   - StatusInconclusive always carries Score 0 and is excluded from aggregation
type CheckResult struct {
	Status           Status         `json:"status"`
	Score            int            `json:"score"`
	Title            string         `json:"title"`
	Detail           string         `json:"detail"`
	Evidence         map[string]any `json:"evidence,omitempty"`
	RemediationSteps []string       `json:"remediation_steps,omitempty"`
}

// Inconclusive builds a data-missing result.
func Inconclusive(title, detail string) CheckResult {
	return CheckResult{Status: StatusInconclusive, Score: 0, Title: title, Detail: detail}
}

// Normalize clamps the score and enforces the inconclusive-means-zero rule.
func (r CheckResult) Normalize() CheckResult {
	switch {
	case r.Status == StatusInconclusive:
		r.Score = 0
	case r.Score < 0:
		r.Score = 0
	case r.Score > 100:
		r.Score = 100
	}
	return r
}

// CheckContext is the shared, read-only input for every check in one scan.
// It is populated once before fan-out and never mutated during it.
type CheckContext struct {
	NPI   string
	URL   string
	Cache CheckCache
}

// CheckCache holds prefetched facts. Any field may be absent.
type CheckCache struct {
	Record   *RegistryRecord
	Roster   []RosterEntry
	Snapshot *SiteSnapshot
}

// ResultWithCheck is a result decorated with the metadata of the check that produced it.
type ResultWithCheck struct {
	CheckResult
	CheckID    string   `json:"check_id"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	Tier       Tier     `json:"tier"`
	Severity   Severity `json:"severity"`
	StatuteRef string   `json:"statute_ref,omitempty"`
}

// Decorate attaches check metadata to a result.
func Decorate(check CheckModule, r CheckResult) ResultWithCheck {
	return ResultWithCheck{
		CheckResult: r.Normalize(),
		CheckID:     check.ID(),
		Name:        check.Name(),
		Category:    check.Category(),
		Tier:        check.Tier(),
		Severity:    check.Severity(),
		StatuteRef:  check.StatuteRef(),
	}
}
