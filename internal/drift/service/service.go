// Package service ingests widget reports, keeps per-category baselines and
// manages the drift event lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"veritas/internal/drift/dedupe"
	"veritas/internal/drift/metrics"
	"veritas/internal/drift/models"
	vmodels "veritas/internal/verification/models"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/outbox"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/requestcontext"
)

// BaselineStore persists category baselines. Upsert is last-write-wins on
// (npi, page_url, category).
type BaselineStore interface {
	Upsert(ctx context.Context, b *models.Baseline) error
	ListByPage(ctx context.Context, npi, pageURL string) ([]*models.Baseline, error)
}

// EventStore persists drift events.
type EventStore interface {
	// Insert stores e unless an identical report still in status new was
	// created at or after since, reporting whether it was stored.
	Insert(ctx context.Context, e *models.Event, since time.Time) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	// UpdateStatus writes e's lifecycle fields if the stored status is still from.
	UpdateStatus(ctx context.Context, e *models.Event, from models.EventStatus) error
	List(ctx context.Context, filter models.EventFilter) ([]*models.Event, int, error)
	// BulkResolve closes every new event for npi and returns the closed events.
	BulkResolve(ctx context.Context, npi, resolvedBy string, now time.Time) ([]*models.Event, error)
	OpenCount(ctx context.Context, npi string) (int, error)
}

// HeartbeatStore persists widget liveness.
type HeartbeatStore interface {
	Touch(ctx context.Context, npi, pageURL, widgetMode string, seen time.Time) (*models.Heartbeat, error)
	ListByNPI(ctx context.Context, npi string) ([]*models.Heartbeat, error)
}

// Guard suppresses identical reports inside the dedup window.
type Guard interface {
	Claim(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ScoreReader reads the latest scan score projection for dashboards.
type ScoreReader interface {
	FindByNPI(ctx context.Context, npi string) (*vmodels.ProviderScore, error)
}

// Service is the drift detector.
type Service struct {
	baselines  BaselineStore
	events     EventStore
	heartbeats HeartbeatStore
	guard      Guard
	scores     ScoreReader
	outbox     outbox.Appender
	severities models.SeverityTable
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time
	newID      func() string

	dedupWindow time.Duration
	staleAfter  time.Duration
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithOutbox(a outbox.Appender) Option {
	return func(s *Service) {
		s.outbox = a
	}
}

// WithGuard replaces the process-local dedupe guard.
func WithGuard(g Guard) Option {
	return func(s *Service) {
		if g != nil {
			s.guard = g
		}
	}
}

func WithScores(r ScoreReader) Option {
	return func(s *Service) {
		s.scores = r
	}
}

func WithSeverityTable(t models.SeverityTable) Option {
	return func(s *Service) {
		if len(t) > 0 {
			s.severities = t
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

func WithDedupWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dedupWindow = d
		}
	}
}

func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

func New(baselines BaselineStore, events EventStore, heartbeats HeartbeatStore, opts ...Option) *Service {
	s := &Service{
		baselines:   baselines,
		events:      events,
		heartbeats:  heartbeats,
		guard:       dedupe.NewMemoryGuard(),
		severities:  models.DefaultSeverityTable(),
		logger:      slog.Default(),
		clock:       func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		dedupWindow: dedupe.DefaultWindow,
		staleAfter:  models.DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// Baselines
// =============================================================================

// CategoryContent is one category's hash and captured content.
type CategoryContent struct {
	Hash    string `json:"hash"`
	Content string `json:"content"`
}

// BaselineRequest replaces the baselines of the listed categories.
type BaselineRequest struct {
	NPI        string
	PageURL    string
	Framework  string
	Categories map[models.Category]CategoryContent
}

// RefreshBaselines upserts one baseline per category with a hash.
func (s *Service) RefreshBaselines(ctx context.Context, req BaselineRequest) (int, error) {
	npi, err := vmodels.ParseNPI(req.NPI)
	if err != nil {
		return 0, err
	}
	if len(req.Categories) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "categories are required")
	}
	framework := req.Framework
	if framework == "" {
		framework = models.DefaultFramework
	}
	pageURL := pageOrDefault(req.PageURL)
	now := s.now(ctx)

	upserted := 0
	for category, data := range req.Categories {
		if data.Hash == "" {
			continue
		}
		b := &models.Baseline{
			NPI:       npi,
			PageURL:   pageURL,
			Category:  category,
			Hash:      data.Hash,
			Content:   models.Truncate(data.Content, models.MaxContentLength),
			Framework: framework,
			UpdatedAt: now,
		}
		if err := s.baselines.Upsert(ctx, b); err != nil {
			return upserted, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save baseline")
		}
		upserted++
	}
	s.metrics.AddBaselines(upserted)
	s.logger.InfoContext(ctx, "baselines refreshed",
		"npi", npi,
		"page_url", pageURL,
		"upserted", upserted,
	)
	return upserted, nil
}

// BaselineEntry is the widget-facing view of one category baseline.
type BaselineEntry struct {
	Hash    string `json:"hash"`
	Content string `json:"content"`
	Empty   bool   `json:"empty"`
}

// BaselineSet is every baseline for one page.
type BaselineSet struct {
	NPI         string                            `json:"npi"`
	PageURL     string                            `json:"page_url"`
	Framework   string                            `json:"framework"`
	LastUpdated time.Time                         `json:"last_updated"`
	Baselines   map[models.Category]BaselineEntry `json:"baselines"`
}

// GetBaselines returns the page's baselines, or nil when none were captured.
func (s *Service) GetBaselines(ctx context.Context, npi, pageURL string) (*BaselineSet, error) {
	npi, err := vmodels.ParseNPI(npi)
	if err != nil {
		return nil, err
	}
	pageURL = pageOrDefault(pageURL)
	rows, err := s.baselines.ListByPage(ctx, npi, pageURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load baselines")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	set := &BaselineSet{
		NPI:       npi,
		PageURL:   pageURL,
		Framework: rows[0].Framework,
		Baselines: make(map[models.Category]BaselineEntry, len(rows)),
	}
	for _, b := range rows {
		set.Baselines[b.Category] = BaselineEntry{Hash: b.Hash, Content: b.Content, Empty: b.IsEmpty()}
		if b.UpdatedAt.After(set.LastUpdated) {
			set.LastUpdated = b.UpdatedAt
		}
	}
	if set.Framework == "" {
		set.Framework = models.DefaultFramework
	}
	return set, nil
}

// =============================================================================
// Ingestion
// =============================================================================

// IngestResult counts what a report produced.
type IngestResult struct {
	Inserted     int      `json:"inserted"`
	Deduplicated int      `json:"deduplicated"`
	IDs          []string `json:"ids"`
}

// HeartbeatRequest is the widget's periodic phone-home.
type HeartbeatRequest struct {
	NPI            string
	PageURL        string
	WidgetMode     string
	CategoryHashes map[models.Category]string
	Timestamp      time.Time
}

// RecordHeartbeat counts a page view and compares any reported hashes with
// the page's baselines. Baselines are never written from a heartbeat.
func (s *Service) RecordHeartbeat(ctx context.Context, req HeartbeatRequest) (*IngestResult, error) {
	npi, err := vmodels.ParseNPI(req.NPI)
	if err != nil {
		return nil, err
	}
	pageURL := pageOrDefault(req.PageURL)
	seen := req.Timestamp
	if seen.IsZero() {
		seen = s.now(ctx)
	}

	if _, err := s.heartbeats.Touch(ctx, npi, pageURL, req.WidgetMode, seen); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record heartbeat")
	}
	s.metrics.IncrementHeartbeat()

	result := &IngestResult{IDs: []string{}}
	if len(req.CategoryHashes) == 0 {
		return result, nil
	}

	rows, err := s.baselines.ListByPage(ctx, npi, pageURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load baselines")
	}
	byCategory := make(map[models.Category]*models.Baseline, len(rows))
	for _, b := range rows {
		byCategory[b.Category] = b
	}

	meta := models.EventMetadata{
		WidgetMode: modeOrDefault(req.WidgetMode),
		ReportedAt: seen,
		Source:     "heartbeat",
	}
	for _, category := range sortedCategories(req.CategoryHashes) {
		current := req.CategoryHashes[category]
		baseline, ok := byCategory[category]
		if !ok || baseline.Hash == current {
			continue
		}
		driftType := models.ClassifyHashChange(baseline, current)
		event := s.newEvent(ctx, npi, pageURL, category, driftType, meta)
		event.PreviousHash = baseline.Hash
		event.CurrentHash = current
		event.ContentBefore = baseline.Content
		if err := s.record(ctx, event, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// DriftItem is one category drift observed by the widget.
type DriftItem struct {
	Category      models.Category
	DriftType     string
	PreviousHash  string
	CurrentHash   string
	ContentBefore string
	ContentAfter  string
}

// DriftReport is an explicit drift submission.
type DriftReport struct {
	NPI        string
	PageURL    string
	WidgetMode string
	UserAgent  string
	Timestamp  time.Time
	Drifts     []DriftItem
}

// ReportDrift classifies and stores each drift, suppressing duplicates. The
// whole report is validated before anything is written.
func (s *Service) ReportDrift(ctx context.Context, report DriftReport) (*IngestResult, error) {
	npi, err := vmodels.ParseNPI(report.NPI)
	if err != nil {
		return nil, err
	}
	if len(report.Drifts) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "drifts are required")
	}
	types := make([]models.DriftType, len(report.Drifts))
	for i, item := range report.Drifts {
		if strings.TrimSpace(string(item.Category)) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("drifts[%d]: category is required", i))
		}
		if types[i], err = models.ParseDriftType(item.DriftType); err != nil {
			return nil, err
		}
	}

	pageURL := pageOrDefault(report.PageURL)
	meta := clientMetadata(report.UserAgent)
	meta.WidgetMode = modeOrDefault(report.WidgetMode)
	meta.ReportedAt = report.Timestamp
	if meta.ReportedAt.IsZero() {
		meta.ReportedAt = s.now(ctx)
	}
	meta.Source = "report"

	result := &IngestResult{IDs: []string{}}
	for i, item := range report.Drifts {
		event := s.newEvent(ctx, npi, pageURL, item.Category, types[i], meta)
		event.PreviousHash = item.PreviousHash
		event.CurrentHash = item.CurrentHash
		event.ContentBefore = models.Truncate(item.ContentBefore, models.MaxContentLength)
		event.ContentAfter = models.Truncate(item.ContentAfter, models.MaxContentLength)
		if err := s.record(ctx, event, result); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "drift report ingested",
		"npi", npi,
		"page_url", pageURL,
		"inserted", result.Inserted,
		"deduplicated", result.Deduplicated,
	)
	return result, nil
}

func (s *Service) newEvent(ctx context.Context, npi, pageURL string, category models.Category, driftType models.DriftType, meta models.EventMetadata) *models.Event {
	return &models.Event{
		ID:        s.newID(),
		NPI:       npi,
		PageURL:   pageURL,
		Category:  category,
		DriftType: driftType,
		Severity:  s.severities.Classify(category, driftType),
		Status:    models.StatusNew,
		Metadata:  meta,
		CreatedAt: s.now(ctx),
	}
}

// record runs one event through the dedupe guard and the store, then
// publishes alerting severities.
func (s *Service) record(ctx context.Context, event *models.Event, result *IngestResult) error {
	key := event.DedupKey()
	claimed, err := s.guard.Claim(ctx, key, s.dedupWindow)
	if err != nil {
		// The storage constraint still deduplicates without the guard.
		s.metrics.IncrementGuardError()
		s.logger.WarnContext(ctx, "dedupe guard unavailable", "npi", event.NPI, "error", err)
		claimed = true
	}
	if !claimed {
		result.Deduplicated++
		s.metrics.IncrementDeduplicated(string(event.Category))
		return nil
	}

	inserted, err := s.events.Insert(ctx, event, event.CreatedAt.Add(-s.dedupWindow))
	if err != nil {
		_ = s.guard.Release(ctx, key)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store drift event")
	}
	if !inserted {
		result.Deduplicated++
		s.metrics.IncrementDeduplicated(string(event.Category))
		return nil
	}

	result.Inserted++
	result.IDs = append(result.IDs, event.ID)
	s.metrics.IncrementRecorded(string(event.Category), string(event.Severity))
	if event.Severity.Alerting() {
		s.publishAlert(ctx, event)
	}
	return nil
}

// =============================================================================
// Lifecycle and reads
// =============================================================================

// EventPage is one page of drift events.
type EventPage struct {
	Events []*models.Event `json:"events"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func (s *Service) ListEvents(ctx context.Context, filter models.EventFilter) (*EventPage, error) {
	filter = filter.Normalize()
	events, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list drift events")
	}
	return &EventPage{Events: events, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// TransitionEvent moves an event along its lifecycle.
func (s *Service) TransitionEvent(ctx context.Context, id string, to models.EventStatus, resolvedBy string) (*models.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid drift event id")
	}
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "drift event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load drift event")
	}

	from := event.Status
	if err := event.Transition(to, resolvedBy, s.now(ctx)); err != nil {
		return nil, err
	}
	if err := s.events.UpdateStatus(ctx, event, from); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "drift event not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "drift event changed concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update drift event")
	}

	if from == models.StatusNew {
		s.releaseDedup(ctx, event)
	}

	s.metrics.IncrementTransition(string(to))
	s.logger.InfoContext(ctx, "drift event transitioned",
		"event_id", event.ID,
		"npi", event.NPI,
		"from", from,
		"to", to,
	)
	return event, nil
}

// BulkResolve closes every new event for npi.
func (s *Service) BulkResolve(ctx context.Context, npi, resolvedBy string) (int, error) {
	npi, err := vmodels.ParseNPI(npi)
	if err != nil {
		return 0, err
	}
	if resolvedBy == "" {
		resolvedBy = "admin"
	}
	closed, err := s.events.BulkResolve(ctx, npi, resolvedBy, s.now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve drift events")
	}
	for _, e := range closed {
		s.releaseDedup(ctx, e)
	}
	s.logger.InfoContext(ctx, "drift events bulk resolved", "npi", npi, "resolved", len(closed))
	return len(closed), nil
}

// releaseDedup forgets the guard claim of an event that left status new, so
// a later identical report is recorded as a fresh drift.
func (s *Service) releaseDedup(ctx context.Context, e *models.Event) {
	if err := s.guard.Release(ctx, e.DedupKey()); err != nil {
		s.metrics.IncrementGuardError()
		s.logger.WarnContext(ctx, "dedupe guard release failed", "npi", e.NPI, "error", err)
	}
}

// OpenCount counts new and acknowledged events for npi.
func (s *Service) OpenCount(ctx context.Context, npi string) (int, error) {
	n, err := s.events.OpenCount(ctx, npi)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count open drift events")
	}
	return n, nil
}

// HeartbeatStatus is a heartbeat with its display liveness.
type HeartbeatStatus struct {
	*models.Heartbeat
	Liveness models.Liveness `json:"liveness"`
}

func (s *Service) ListHeartbeats(ctx context.Context, npi string) ([]HeartbeatStatus, error) {
	rows, err := s.heartbeats.ListByNPI(ctx, npi)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list heartbeats")
	}
	now := s.now(ctx)
	out := make([]HeartbeatStatus, 0, len(rows))
	for _, h := range rows {
		out = append(out, HeartbeatStatus{Heartbeat: h, Liveness: h.Liveness(now, s.staleAfter)})
	}
	return out, nil
}

// Dashboard is the Shield read model for one provider.
type Dashboard struct {
	NPI        string                 `json:"npi"`
	Score      *vmodels.ProviderScore `json:"score"`
	Heartbeats []HeartbeatStatus      `json:"heartbeats"`
	OpenDrift  int                    `json:"open_drift"`
	Live       bool                   `json:"live"`
}

func (s *Service) Dashboard(ctx context.Context, npi string) (*Dashboard, error) {
	npi, err := vmodels.ParseNPI(npi)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{NPI: npi}

	if s.scores != nil {
		score, err := s.scores.FindByNPI(ctx, npi)
		switch {
		case err == nil:
			d.Score = score
		case !errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider score")
		}
	}
	if d.Heartbeats, err = s.ListHeartbeats(ctx, npi); err != nil {
		return nil, err
	}
	for _, h := range d.Heartbeats {
		if h.Liveness == models.Live {
			d.Live = true
			break
		}
	}
	if d.OpenDrift, err = s.OpenCount(ctx, npi); err != nil {
		return nil, err
	}
	return d, nil
}

// now prefers the request-scoped time so every row one request writes agrees.
func (s *Service) now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestcontext.ContextKeyRequestTime).(time.Time); ok {
		return t.UTC()
	}
	return s.clock()
}

func pageOrDefault(pageURL string) string {
	if p := strings.TrimSpace(pageURL); p != "" {
		return p
	}
	return models.DefaultPageURL
}

func modeOrDefault(mode string) string {
	if mode == "" {
		return models.DefaultWidgetMode
	}
	return mode
}
