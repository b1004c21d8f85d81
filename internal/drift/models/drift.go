package models

import (
	"fmt"
	"time"
	"unicode/utf8"

	dErrors "veritas/pkg/domain-errors"
)

const (
	// DefaultFramework is the compliance framework baselines are captured under.
	DefaultFramework  = "tx_sb1188_hb149"
	DefaultPageURL    = "/"
	DefaultWidgetMode = "watch"

	MaxContentLength   = 2000
	MaxUserAgentLength = 200
)

// Category is a monitored content category on a provider page.
type Category string

const (
	CategoryAIDisclosure        Category = "ai_disclosure"
	CategoryPrivacyPolicy       Category = "privacy_policy"
	CategoryThirdPartyScripts   Category = "third_party_scripts"
	CategoryDataCollectionForms Category = "data_collection_forms"
	CategoryCookieConsent       Category = "cookie_consent"
	CategoryHIPAAReferences     Category = "hipaa_references"
	CategoryMetaCompliance      Category = "meta_compliance"
)

var categoryLabels = map[Category]string{
	CategoryAIDisclosure:        "AI Disclosure",
	CategoryPrivacyPolicy:       "Privacy Policy",
	CategoryThirdPartyScripts:   "Third-Party Scripts",
	CategoryDataCollectionForms: "Data Collection Forms",
	CategoryCookieConsent:       "Cookie Consent",
	CategoryHIPAAReferences:     "HIPAA References",
	CategoryMetaCompliance:      "Compliance Meta Tags",
}

// Label is the human-readable category name. Unknown categories label as themselves.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// DriftType describes how monitored content moved away from its baseline.
type DriftType string

const (
	DriftContentChanged DriftType = "content_changed"
	DriftContentRemoved DriftType = "content_removed"
	DriftContentAdded   DriftType = "content_added"
	DriftWidgetRemoved  DriftType = "widget_removed"
)

var driftTypeLabels = map[DriftType]string{
	DriftContentChanged: "content was modified",
	DriftContentRemoved: "content was removed",
	DriftContentAdded:   "new content was detected",
	DriftWidgetRemoved:  "widget was removed",
}

func (d DriftType) Label() string {
	if l, ok := driftTypeLabels[d]; ok {
		return l
	}
	return string(d)
}

// ParseDriftType defaults an empty value to content_changed.
func ParseDriftType(s string) (DriftType, error) {
	switch DriftType(s) {
	case "":
		return DriftContentChanged, nil
	case DriftContentChanged, DriftContentRemoved, DriftContentAdded, DriftWidgetRemoved:
		return DriftType(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown drift type %q", s))
}

// ClassifyHashChange derives a drift type from a baseline and an observed
// hash. An empty observed hash means the category disappeared from the page.
func ClassifyHashChange(baseline *Baseline, currentHash string) DriftType {
	switch {
	case currentHash == "":
		return DriftContentRemoved
	case baseline.IsEmpty():
		return DriftContentAdded
	default:
		return DriftContentChanged
	}
}

// Severity ranks a drift event.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Alerting reports whether events of this severity notify downstream consumers.
func (s Severity) Alerting() bool {
	return s == SeverityCritical || s == SeverityHigh
}

func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown severity %q", s))
}

// SeverityTable maps category and drift type to severity.
type SeverityTable map[Category]map[DriftType]Severity

// DefaultSeverityTable returns a fresh copy of the built-in table.
func DefaultSeverityTable() SeverityTable {
	return SeverityTable{
		CategoryAIDisclosure:        {DriftContentRemoved: SeverityCritical, DriftContentChanged: SeverityHigh, DriftContentAdded: SeverityLow},
		CategoryPrivacyPolicy:       {DriftContentRemoved: SeverityHigh, DriftContentChanged: SeverityMedium, DriftContentAdded: SeverityLow},
		CategoryThirdPartyScripts:   {DriftContentRemoved: SeverityMedium, DriftContentChanged: SeverityHigh, DriftContentAdded: SeverityHigh},
		CategoryDataCollectionForms: {DriftContentRemoved: SeverityMedium, DriftContentChanged: SeverityHigh, DriftContentAdded: SeverityMedium},
		CategoryCookieConsent:       {DriftContentRemoved: SeverityMedium, DriftContentChanged: SeverityMedium, DriftContentAdded: SeverityLow},
		CategoryHIPAAReferences:     {DriftContentRemoved: SeverityMedium, DriftContentChanged: SeverityLow, DriftContentAdded: SeverityLow},
		CategoryMetaCompliance:      {DriftContentRemoved: SeverityLow, DriftContentChanged: SeverityLow, DriftContentAdded: SeverityLow},
	}
}

// Classify returns the severity for a drift. A removed widget is high for
// every category; unmapped pairs are medium.
func (t SeverityTable) Classify(c Category, d DriftType) Severity {
	if d == DriftWidgetRemoved {
		return SeverityHigh
	}
	if sev, ok := t[c][d]; ok {
		return sev
	}
	return SeverityMedium
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Baseline is the last known-good content of one category on one page.
type Baseline struct {
	NPI       string    `json:"npi"`
	PageURL   string    `json:"page_url"`
	Category  Category  `json:"category"`
	Hash      string    `json:"hash"`
	Content   string    `json:"content"`
	Framework string    `json:"framework"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty reports whether the category had no content when the baseline was captured.
func (b *Baseline) IsEmpty() bool {
	return b == nil || b.Content == ""
}

// EventStatus is the lifecycle state of a drift event.
type EventStatus string

const (
	StatusNew           EventStatus = "new"
	StatusAcknowledged  EventStatus = "acknowledged"
	StatusResolved      EventStatus = "resolved"
	StatusFalsePositive EventStatus = "false_positive"
)

func ParseStatus(s string) (EventStatus, error) {
	switch EventStatus(s) {
	case StatusNew, StatusAcknowledged, StatusResolved, StatusFalsePositive:
		return EventStatus(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown drift event status %q", s))
}

// Terminal reports whether no transition leaves this status.
func (s EventStatus) Terminal() bool {
	return s == StatusResolved || s == StatusFalsePositive
}

// Open reports whether the event still needs attention.
func (s EventStatus) Open() bool {
	return s == StatusNew || s == StatusAcknowledged
}

var transitions = map[EventStatus][]EventStatus{
	StatusNew:          {StatusAcknowledged, StatusResolved, StatusFalsePositive},
	StatusAcknowledged: {StatusResolved},
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to EventStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// EventMetadata carries reporting context from the widget.
type EventMetadata struct {
	WidgetMode     string    `json:"widget_mode"`
	UserAgent      string    `json:"user_agent,omitempty"`
	Browser        string    `json:"browser,omitempty"`
	BrowserVersion string    `json:"browser_version,omitempty"`
	OS             string    `json:"os,omitempty"`
	Mobile         bool      `json:"mobile,omitempty"`
	Bot            bool      `json:"bot,omitempty"`
	ReportedAt     time.Time `json:"reported_at"`
	Source         string    `json:"source,omitempty"`
}

// Event is one observed drift.
//
// Lifecycle: new → acknowledged → resolved, new → resolved, new → false_positive.
// resolved and false_positive are terminal.
type Event struct {
	ID            string        `json:"id"`
	NPI           string        `json:"npi"`
	PageURL       string        `json:"page_url"`
	Category      Category      `json:"category"`
	DriftType     DriftType     `json:"drift_type"`
	Severity      Severity      `json:"severity"`
	Status        EventStatus   `json:"status"`
	PreviousHash  string        `json:"previous_hash,omitempty"`
	CurrentHash   string        `json:"current_hash,omitempty"`
	ContentBefore string        `json:"content_before,omitempty"`
	ContentAfter  string        `json:"content_after,omitempty"`
	Metadata      EventMetadata `json:"metadata"`
	CreatedAt     time.Time     `json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy    string        `json:"resolved_by,omitempty"`
}

// DedupKey identifies identical reports for deduplication.
func (e *Event) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", e.NPI, e.PageURL, e.Category, e.CurrentHash)
}

// HourBucket is the creation hour used by the storage uniqueness constraint.
func (e *Event) HourBucket() time.Time {
	return e.CreatedAt.UTC().Truncate(time.Hour)
}

// Transition moves the event to status. resolvedBy defaults to "admin" when
// closing the event.
func (e *Event) Transition(to EventStatus, resolvedBy string, now time.Time) error {
	if !CanTransition(e.Status, to) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("cannot move drift event from %s to %s", e.Status, to))
	}
	e.Status = to
	if to.Terminal() {
		if resolvedBy == "" {
			resolvedBy = "admin"
		}
		e.ResolvedAt = &now
		e.ResolvedBy = resolvedBy
	}
	return nil
}

// Liveness is the display state of a widget installation.
type Liveness string

const (
	Live  Liveness = "live"
	Stale Liveness = "stale"
)

// DefaultStaleAfter is how long a widget may go unseen before it shows as stale.
const DefaultStaleAfter = 48 * time.Hour

const viewWindow = 24 * time.Hour

// Heartbeat is the liveness record of a widget on one page.
type Heartbeat struct {
	NPI            string    `json:"npi"`
	PageURL        string    `json:"page_url"`
	WidgetMode     string    `json:"widget_mode"`
	LastSeen       time.Time `json:"last_seen"`
	WindowStart    time.Time `json:"window_start"`
	PageViews24h   int       `json:"page_views_24h"`
	PageViewsTotal int       `json:"page_views_total"`
}

// Touch records one page view at seen. The 24h counter restarts when its
// window is older than 24 hours.
func (h *Heartbeat) Touch(seen time.Time, widgetMode string) {
	if widgetMode == "" {
		widgetMode = DefaultWidgetMode
	}
	h.WidgetMode = widgetMode
	if h.WindowStart.IsZero() || seen.Sub(h.WindowStart) >= viewWindow {
		h.WindowStart = seen
		h.PageViews24h = 0
	}
	h.PageViews24h++
	h.PageViewsTotal++
	if seen.After(h.LastSeen) {
		h.LastSeen = seen
	}
}

// Liveness classifies the heartbeat for display.
func (h *Heartbeat) Liveness(now time.Time, staleAfter time.Duration) Liveness {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if now.Sub(h.LastSeen) <= staleAfter {
		return Live
	}
	return Stale
}
