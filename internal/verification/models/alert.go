package models

import (
	"strings"
	"time"
)

// AlertStatus is the lifecycle state of a mismatch alert.
type AlertStatus string

const (
	AlertOpen     AlertStatus = "open"
	AlertResolved AlertStatus = "resolved"
)

// dimensions label what a check compares, for dashboards.
var dimensions = map[string]string{
	"NPI-01": "address",
	"NPI-02": "phone",
	"NPI-03": "taxonomy",
	"RST-01": "roster_count",
	"RST-02": "roster_names",
}

// DimensionFor returns the dimension label for a check id.
func DimensionFor(checkID string) string {
	if d, ok := dimensions[checkID]; ok {
		return d
	}
	return "unknown"
}

// MismatchAlert is a persistent record of a registry-integrity discrepancy.
//
// Invariants:
//   - At most one open alert per (NPI, CheckID)
//   - Created on the first fail/warn, bumped on repeats, resolved when the check passes
//   - A resolved alert is never reopened; a later regression creates a new alert
type MismatchAlert struct {
	ID              string      `json:"id"`
	NPI             string      `json:"npi"`
	CheckID         string      `json:"check_id"`
	Dimension       string      `json:"dimension"`
	Severity        Severity    `json:"severity"`
	Status          AlertStatus `json:"status"`
	OccurrenceCount int         `json:"occurrence_count"`
	NPIValue        string      `json:"npi_value"`
	SiteValue       string      `json:"site_value"`
	DeltaDetail     string      `json:"delta_detail"`
	RiskScore       int         `json:"risk_score"`
	FirstSeen       time.Time   `json:"first_seen"`
	LastSeen        time.Time   `json:"last_seen"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty"`
}

// IsOpen reports whether the alert is still open.
func (a *MismatchAlert) IsOpen() bool {
	return a.Status == AlertOpen
}

// NewMismatchAlert opens an alert for a failing or warning result.
func NewMismatchAlert(id, npi string, r ResultWithCheck, now time.Time) *MismatchAlert {
	npiValue, siteValue := AlertValues(r.Evidence)
	return &MismatchAlert{
		ID:              id,
		NPI:             npi,
		CheckID:         r.CheckID,
		Dimension:       DimensionFor(r.CheckID),
		Severity:        r.Severity,
		Status:          AlertOpen,
		OccurrenceCount: 1,
		NPIValue:        npiValue,
		SiteValue:       siteValue,
		DeltaDetail:     r.Detail,
		RiskScore:       r.Score,
		FirstSeen:       now,
		LastSeen:        now,
	}
}

// Bump records a repeat occurrence and refreshes the evidence.
func (a *MismatchAlert) Bump(r ResultWithCheck, now time.Time) {
	a.NPIValue, a.SiteValue = AlertValues(r.Evidence)
	a.OccurrenceCount++
	a.DeltaDetail = r.Detail
	a.RiskScore = r.Score
	a.LastSeen = now
}

// Resolve closes the alert.
func (a *MismatchAlert) Resolve(now time.Time) {
	a.Status = AlertResolved
	a.ResolvedAt = &now
}

// AlertValues extracts the registry-side and site-side values from check
// evidence for display on the alert.
func AlertValues(evidence map[string]any) (npiValue, siteValue string) {
	npiValue = firstString(evidence, EvidenceNPIAddress, EvidenceNPIPhone, EvidenceNPIClassification)
	siteValue = firstString(evidence, EvidenceSiteAddress, EvidenceSitePhone)
	if siteValue == "" {
		if labels, ok := evidence[EvidenceSiteSpecialties].([]string); ok {
			siteValue = strings.Join(labels, ", ")
		}
	}
	return npiValue, siteValue
}

// Evidence keys shared by check modules and alert reconciliation.
const (
	EvidenceNPIAddress        = "npi_address"
	EvidenceSiteAddress       = "site_address"
	EvidenceNPIPhone          = "npi_phone"
	EvidenceSitePhone         = "site_phone"
	EvidenceNPIClassification = "npi_classification"
	EvidenceSiteSpecialties   = "site_specialties"
)

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
