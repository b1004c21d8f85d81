package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"veritas/internal/verification/checks"
	"veritas/internal/verification/metrics"
	"veritas/internal/verification/models"
	"veritas/internal/verification/ports"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/outbox"
	"veritas/pkg/platform/sentinel"
	txcontext "veritas/pkg/platform/tx"
)

// SessionStore persists scan sessions and their results.
type SessionStore interface {
	Create(ctx context.Context, session *models.ScanSession) error
	SaveSnapshot(ctx context.Context, scanID string, snap *models.SiteSnapshot) error
	SaveResults(ctx context.Context, scanID string, results []models.ResultWithCheck) error
	Finalize(ctx context.Context, session *models.ScanSession) error
	FindByID(ctx context.Context, id string) (*models.ScanSession, error)
}

// AlertStore persists mismatch alerts. Create returns sentinel.ErrConflict
// when a second open alert for the same npi and check would be created.
// Bump and Resolve only change an alert that is still open and return
// sentinel.ErrInvalidState once it has been resolved.
type AlertStore interface {
	FindOpen(ctx context.Context, npi, checkID string) (*models.MismatchAlert, error)
	Create(ctx context.Context, alert *models.MismatchAlert) error
	Bump(ctx context.Context, alert *models.MismatchAlert) error
	Resolve(ctx context.Context, alert *models.MismatchAlert) error
	ListByNPI(ctx context.Context, npi string, status models.AlertStatus) ([]*models.MismatchAlert, error)
}

// ScoreStore persists the latest-score projection.
type ScoreStore interface {
	Upsert(ctx context.Context, score *models.ProviderScore) error
	FindByNPI(ctx context.Context, npi string) (*models.ProviderScore, error)
}

const (
	defaultCheckTimeout = 15 * time.Second
	defaultScanTimeout  = 60 * time.Second
)

// Service runs scans: it builds the shared check context, fans the tier's
// checks out concurrently, aggregates, persists, and reconciles alerts.
type Service struct {
	registry ports.RegistryPort
	checks   *checks.Registry
	sessions SessionStore
	alerts   AlertStore
	scores   ScoreStore
	outbox   outbox.Appender
	tx       txcontext.Runner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	clock    func() time.Time
	newID    func() string

	checkTimeout time.Duration
	scanTimeout  time.Duration
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

// WithOutbox publishes scan and alert events through the outbox.
func WithOutbox(appender outbox.Appender) Option {
	return func(s *Service) {
		s.outbox = appender
	}
}

// WithTxRunner wraps each alert write and its outbox event in one transaction.
func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) {
		if runner != nil {
			s.tx = runner
		}
	}
}

func WithChecks(r *checks.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.checks = r
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func WithCheckTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

func WithScanTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.scanTimeout = d
		}
	}
}

// New creates a scan orchestrator.
func New(registry ports.RegistryPort, sessions SessionStore, alerts AlertStore, scores ScoreStore, opts ...Option) *Service {
	s := &Service{
		registry:     registry,
		checks:       checks.Default,
		sessions:     sessions,
		alerts:       alerts,
		scores:       scores,
		tx:           txcontext.NoopRunner{},
		logger:       slog.Default(),
		tracer:       otel.Tracer("veritas/verification"),
		clock:        func() time.Time { return time.Now().UTC() },
		newID:        func() string { return uuid.NewString() },
		checkTimeout: defaultCheckTimeout,
		scanTimeout:  defaultScanTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanRequest is the input to RunScan.
type ScanRequest struct {
	NPI         string
	URL         string
	Tier        models.Tier
	TriggeredBy models.TriggeredBy
	Snapshot    *models.SiteSnapshot
}

func (r *ScanRequest) normalize() error {
	npi, err := models.ParseNPI(r.NPI)
	if err != nil {
		return err
	}
	r.NPI = npi
	tier, err := models.ParseTier(string(r.Tier))
	if err != nil {
		return err
	}
	r.Tier = tier
	trigger, err := models.ParseTriggeredBy(string(r.TriggeredBy))
	if err != nil {
		return err
	}
	r.TriggeredBy = trigger
	return nil
}

// RunScan executes every check the tier allows and returns the finalized
// session. Only a failure to create the session row is fatal; any later
// persistence failure is logged and counted.
func (s *Service) RunScan(ctx context.Context, req ScanRequest) (*models.ScanSession, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "verification.RunScan", trace.WithAttributes(
		attribute.String("npi", req.NPI),
		attribute.String("tier", string(req.Tier)),
		attribute.String("triggered_by", string(req.TriggeredBy)),
	))
	defer span.End()

	start := s.clock()
	session := &models.ScanSession{
		ID:          s.newID(),
		NPI:         req.NPI,
		URL:         req.URL,
		Tier:        req.Tier,
		TriggeredBy: req.TriggeredBy,
		StartedAt:   start,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create session")
		s.logger.ErrorContext(ctx, "failed to create scan session", "npi", req.NPI, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create scan session")
	}

	// Writes after this point must land even if the caller goes away.
	persistCtx := context.WithoutCancel(ctx)

	if req.Snapshot != nil {
		if err := s.sessions.SaveSnapshot(persistCtx, session.ID, req.Snapshot); err != nil {
			s.persistFailed(ctx, "snapshot", session.ID, err)
		}
	}

	scanCtx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	cc := s.buildContext(scanCtx, req)
	results := s.runChecks(scanCtx, s.checks.ForTier(req.Tier), cc)
	cancel()

	if err := session.Finalize(results, s.clock()); err != nil {
		return nil, err
	}

	if err := s.sessions.SaveResults(persistCtx, session.ID, results); err != nil {
		s.persistFailed(ctx, "results", session.ID, err)
	}
	s.reconcileAlerts(persistCtx, session, results)
	if err := s.sessions.Finalize(persistCtx, session); err != nil {
		s.persistFailed(ctx, "finalize", session.ID, err)
	}
	if err := s.scores.Upsert(persistCtx, &models.ProviderScore{
		NPI:        session.NPI,
		RiskScore:  session.CompositeScore,
		RiskLevel:  session.RiskLevel,
		LastScanID: session.ID,
		LastScanAt: *session.CompletedAt,
	}); err != nil {
		s.persistFailed(ctx, "score", session.ID, err)
	}
	s.publish(persistCtx, outbox.TypeScanCompleted, "scan", session.ID, scanCompletedPayload{
		ScanID:         session.ID,
		NPI:            session.NPI,
		Tier:           string(session.Tier),
		TriggeredBy:    string(session.TriggeredBy),
		CompositeScore: session.CompositeScore,
		RiskLevel:      string(session.RiskLevel),
		CompletedAt:    *session.CompletedAt,
	})

	elapsed := session.CompletedAt.Sub(start)
	s.metrics.ObserveScan(string(req.Tier), elapsed)
	s.metrics.ObserveCompositeScore(session.CompositeScore)
	span.SetAttributes(
		attribute.Int("composite_score", session.CompositeScore),
		attribute.String("risk_level", string(session.RiskLevel)),
	)
	s.logger.InfoContext(ctx, "scan completed",
		"scan_id", session.ID,
		"npi", session.NPI,
		"tier", session.Tier,
		"composite_score", session.CompositeScore,
		"risk_level", session.RiskLevel,
		"checks_total", session.ChecksTotal,
		"duration_ms", elapsed.Milliseconds(),
	)
	return session, nil
}

// buildContext prefetches registry facts once for all checks. Fetch errors
// leave the fact absent; the checks that need it report inconclusive.
func (s *Service) buildContext(ctx context.Context, req ScanRequest) *models.CheckContext {
	cc := &models.CheckContext{
		NPI:   req.NPI,
		URL:   req.URL,
		Cache: models.CheckCache{Snapshot: req.Snapshot},
	}

	record, err := s.registry.FetchRecord(ctx, req.NPI)
	if err != nil {
		s.logger.WarnContext(ctx, "registry record unavailable", "npi", req.NPI, "error", err)
		return cc
	}
	cc.Cache.Record = record

	if record != nil && req.Tier.AllowsRoster() {
		roster, err := s.registry.FetchRoster(ctx, record.Primary.Zip, record.Primary.City, record.Primary.State)
		if err != nil {
			s.logger.WarnContext(ctx, "registry roster unavailable", "npi", req.NPI, "error", err)
		}
		cc.Cache.Roster = roster
	}
	return cc
}

// runChecks runs every module concurrently and waits for all of them.
// Results keep the registry's run order.
func (s *Service) runChecks(ctx context.Context, modules []models.CheckModule, cc *models.CheckContext) []models.ResultWithCheck {
	results := make([]models.ResultWithCheck, len(modules))
	var wg sync.WaitGroup
	for i, m := range modules {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.runCheck(ctx, m, cc)
		}()
	}
	wg.Wait()
	return results
}

type checkOutcome struct {
	result models.CheckResult
	err    error
}

// runCheck races one module against its own deadline. Errors, panics and
// timeouts all become an inconclusive failure result for that check only.
func (s *Service) runCheck(ctx context.Context, m models.CheckModule, cc *models.CheckContext) models.ResultWithCheck {
	ctx, span := s.tracer.Start(ctx, "verification.check", trace.WithAttributes(attribute.String("check_id", m.ID())))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan checkOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- checkOutcome{err: fmt.Errorf("check %s panicked: %v", m.ID(), r)}
			}
		}()
		res, err := m.Run(ctx, cc)
		done <- checkOutcome{result: res, err: err}
	}()

	var out checkOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = checkOutcome{err: ctx.Err()}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.metrics.IncrementCheckTimeout(m.ID())
		}
	}

	result := out.result
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, "check failed")
		s.logger.WarnContext(ctx, "check failed",
			"npi", cc.NPI,
			"check_id", m.ID(),
			"error", out.err,
		)
		result = failedCheck(m)
	}

	decorated := models.Decorate(m, result)
	s.metrics.ObserveCheck(m.ID(), string(decorated.Status), time.Since(start))
	span.SetAttributes(attribute.String("status", string(decorated.Status)))
	return decorated
}

func failedCheck(m models.CheckModule) models.CheckResult {
	return models.Inconclusive(
		m.Name()+" — check failed",
		"An error occurred while running this check",
	)
}

func (s *Service) persistFailed(ctx context.Context, stage, scanID string, err error) {
	s.metrics.IncrementPersistFailure(stage)
	s.logger.ErrorContext(ctx, "scan persistence failed",
		"stage", stage,
		"scan_id", scanID,
		"error", err,
	)
}

// GetScan returns a session with its results.
func (s *Service) GetScan(ctx context.Context, id string) (*models.ScanSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "scan id must be a uuid")
	}
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "scan not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load scan")
	}
	return session, nil
}

// ListAlerts returns a provider's mismatch alerts; an empty status lists all.
func (s *Service) ListAlerts(ctx context.Context, npi string, status models.AlertStatus) ([]*models.MismatchAlert, error) {
	npi, err := models.ParseNPI(npi)
	if err != nil {
		return nil, err
	}
	switch status {
	case "", models.AlertOpen, models.AlertResolved:
	default:
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown alert status %q", status))
	}
	alerts, err := s.alerts.ListByNPI(ctx, npi, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list alerts")
	}
	return alerts, nil
}

// CurrentScore returns the latest-score projection for a provider.
func (s *Service) CurrentScore(ctx context.Context, npi string) (*models.ProviderScore, error) {
	npi, err := models.ParseNPI(npi)
	if err != nil {
		return nil, err
	}
	score, err := s.scores.FindByNPI(ctx, npi)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no completed scan for provider")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load score")
	}
	return score, nil
}
