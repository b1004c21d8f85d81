package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"veritas/internal/verification/checks"
	"veritas/internal/verification/models"
	"veritas/internal/verification/ports/mocks"
	"veritas/internal/verification/store"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/outbox"
	outboxmemory "veritas/pkg/platform/outbox/store/memory"
)

const testNPI = "1234567893"

type ScanServiceSuite struct {
	suite.Suite
	ctx      context.Context
	registry *mocks.MockRegistryPort
	sessions *store.InMemorySessionStore
	alerts   *store.InMemoryAlertStore
	scores   *store.InMemoryScoreStore
	outbox   *outboxmemory.InMemoryStore
	service  *Service
	now      time.Time
	clockMu  sync.Mutex
}

func TestScanServiceSuite(t *testing.T) {
	suite.Run(t, new(ScanServiceSuite))
}

func (s *ScanServiceSuite) SetupTest() {
	s.ctx = context.Background()
	ctrl := gomock.NewController(s.T())
	s.registry = mocks.NewMockRegistryPort(ctrl)
	s.sessions = store.NewInMemorySessionStore()
	s.alerts = store.NewInMemoryAlertStore()
	s.scores = store.NewInMemoryScoreStore()
	s.outbox = outboxmemory.NewInMemoryStore()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.service = s.newService()
}

func (s *ScanServiceSuite) newService(opts ...Option) *Service {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithOutbox(s.outbox),
		WithClock(s.tick),
	}
	return New(s.registry, s.sessions, s.alerts, s.scores, append(base, opts...)...)
}

// tick advances a minute per call so every scan gets distinct timestamps.
func (s *ScanServiceSuite) tick() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = s.now.Add(time.Minute)
	return s.now
}

func registryRecord() *models.RegistryRecord {
	return &models.RegistryRecord{
		NPI:           testNPI,
		Name:          "Hill Country Family Clinic",
		Primary:       models.Address{Line1: "100 Congress Ave", City: "Austin", State: "TX", Zip: "78701"},
		Phone:         "512-555-0100",
		TaxonomyCode:  "207Q00000X",
		TaxonomyLabel: "Family Medicine",
	}
}

func snapshot(phone string) *models.SiteSnapshot {
	return &models.SiteSnapshot{
		AddrLine1:       "100 Congress Avenue Suite 200",
		AddrCity:        "Austin",
		AddrState:       "TX",
		AddrZip:         "78701",
		Phone:           phone,
		SpecialtyLabels: []string{"Family Practice"},
		ProviderNames:   []string{"Jane Doe MD"},
	}
}

// =============================================================================
// RunScan
// =============================================================================

func (s *ScanServiceSuite) TestRunScanFreeTier() {
	s.registry.EXPECT().FetchRecord(gomock.Any(), testNPI).Return(registryRecord(), nil)

	session, err := s.service.RunScan(s.ctx, ScanRequest{
		NPI:      testNPI,
		Tier:     models.TierFree,
		Snapshot: snapshot("(512) 555-0100"),
	})
	s.Require().NoError(err)

	s.True(session.IsComplete())
	s.Equal(models.TriggerManual, session.TriggeredBy)
	s.Equal(2, session.ChecksTotal)
	s.Equal(2, session.ChecksPassed)
	s.Equal(100, session.CompositeScore)
	s.Equal(models.RiskSovereign, session.RiskLevel)
	s.Equal("NPI-01", session.Results[0].CheckID)
	s.Equal("NPI-02", session.Results[1].CheckID)

	s.Run("session and results are persisted", func() {
		stored, err := s.service.GetScan(s.ctx, session.ID)
		s.Require().NoError(err)
		s.True(stored.IsComplete())
		s.Len(stored.Results, 2)
		_, ok := s.sessions.Snapshot(session.ID)
		s.True(ok)
	})

	s.Run("score projection is upserted", func() {
		score, err := s.service.CurrentScore(s.ctx, testNPI)
		s.Require().NoError(err)
		s.Equal(session.ID, score.LastScanID)
		s.Equal(100, score.RiskScore)
		s.Equal(models.RiskSovereign, score.RiskLevel)
	})

	s.Run("scan.completed is published", func() {
		s.Len(s.outbox.ByType(outbox.TypeScanCompleted), 1)
	})
}

func (s *ScanServiceSuite) TestRunScanFetchesRosterForPaidTiers() {
	s.registry.EXPECT().FetchRecord(gomock.Any(), testNPI).Return(registryRecord(), nil)
	s.registry.EXPECT().FetchRoster(gomock.Any(), "78701", "Austin", "TX").Return([]models.RosterEntry{
		{NPI: "1000000001", FullName: "JANE DOE"},
	}, nil)

	session, err := s.service.RunScan(s.ctx, ScanRequest{
		NPI:         testNPI,
		Tier:        models.TierShield,
		TriggeredBy: models.TriggerScheduled,
		Snapshot:    snapshot("512-555-0100"),
	})
	s.Require().NoError(err)
	s.Equal(5, session.ChecksTotal)

	byID := map[string]models.ResultWithCheck{}
	for _, r := range session.Results {
		byID[r.CheckID] = r
	}
	s.Equal(models.StatusPass, byID["RST-02"].Status)
	s.Equal(80, byID["RST-01"].Score)
	// (100 + 100 + 100 + 80 + 100) / 5
	s.Equal(96, session.CompositeScore)
}

func (s *ScanServiceSuite) TestRunScanWithoutRegistryDataIsInconclusive() {
	s.registry.EXPECT().FetchRecord(gomock.Any(), testNPI).Return(nil, errors.New("gateway down"))

	session, err := s.service.RunScan(s.ctx, ScanRequest{NPI: testNPI, Tier: models.TierReport})
	s.Require().NoError(err)

	s.Equal(4, session.ChecksTotal)
	for _, r := range session.Results {
		s.Equal(models.StatusInconclusive, r.Status, r.CheckID)
		s.Zero(r.Score)
	}
	s.Equal(0, session.CompositeScore)
	s.Equal(models.RiskInconclusive, session.RiskLevel)
}

func (s *ScanServiceSuite) TestRunScanRejectsInvalidRequests() {
	s.Run("bad npi", func() {
		_, err := s.service.RunScan(s.ctx, ScanRequest{NPI: "12345", Tier: models.TierFree})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("unknown tier", func() {
		_, err := s.service.RunScan(s.ctx, ScanRequest{NPI: testNPI, Tier: "gold"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("unknown trigger", func() {
		_, err := s.service.RunScan(s.ctx, ScanRequest{NPI: testNPI, Tier: models.TierFree, TriggeredBy: "cron"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

type failingSessionStore struct {
	*store.InMemorySessionStore
}

func (failingSessionStore) Create(context.Context, *models.ScanSession) error {
	return errors.New("connection refused")
}

func (s *ScanServiceSuite) TestRunScanFailsWhenSessionCannotBeCreated() {
	svc := New(s.registry, failingSessionStore{s.sessions}, s.alerts, s.scores,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := svc.RunScan(s.ctx, ScanRequest{NPI: testNPI, Tier: models.TierFree})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// Fault isolation
// =============================================================================

type stubCheck struct {
	id  string
	run func(ctx context.Context) (models.CheckResult, error)
}

func (c stubCheck) ID() string                { return c.id }
func (c stubCheck) Name() string              { return "Stub " + c.id }
func (c stubCheck) Category() models.Category { return models.CategoryDataResidency }
func (c stubCheck) Severity() models.Severity { return models.SeverityLow }
func (c stubCheck) Tier() models.Tier         { return models.TierFree }
func (c stubCheck) StatuteRef() string        { return "" }
func (c stubCheck) Run(ctx context.Context, _ *models.CheckContext) (models.CheckResult, error) {
	return c.run(ctx)
}

func (s *ScanServiceSuite) TestRunScanIsolatesCheckFailures() {
	s.registry.EXPECT().FetchRecord(gomock.Any(), testNPI).Return(nil, nil)

	table := checks.NewRegistry(
		stubCheck{id: "OK-1", run: func(context.Context) (models.CheckResult, error) {
			return models.CheckResult{Status: models.StatusPass, Score: 100, Title: "ok"}, nil
		}},
		stubCheck{id: "ERR-1", run: func(context.Context) (models.CheckResult, error) {
			return models.CheckResult{}, errors.New("boom")
		}},
		stubCheck{id: "PANIC-1", run: func(context.Context) (models.CheckResult, error) {
			panic("nil map")
		}},
		stubCheck{id: "SLOW-1", run: func(ctx context.Context) (models.CheckResult, error) {
			time.Sleep(time.Second)
			return models.CheckResult{Status: models.StatusFail, Score: 0}, nil
		}},
	)
	svc := s.newService(WithChecks(table), WithCheckTimeout(20*time.Millisecond))

	started := time.Now()
	session, err := svc.RunScan(s.ctx, ScanRequest{NPI: testNPI, Tier: models.TierFree})
	s.Require().NoError(err)
	s.Less(time.Since(started), 900*time.Millisecond)

	s.Require().Len(session.Results, 4)
	s.Equal(models.StatusPass, session.Results[0].Status)
	for _, r := range session.Results[1:] {
		s.Equal(models.StatusInconclusive, r.Status, r.CheckID)
		s.Equal(0, r.Score)
		s.Equal(r.Name+" — check failed", r.Title)
		s.Equal("An error occurred while running this check", r.Detail)
	}
	s.Equal(100, session.CompositeScore)
	s.Equal(models.RiskSovereign, session.RiskLevel)
}

// =============================================================================
// Alert reconciliation
// =============================================================================

func (s *ScanServiceSuite) scanWithPhone(phone string) *models.ScanSession {
	s.registry.EXPECT().FetchRecord(gomock.Any(), testNPI).Return(registryRecord(), nil)
	session, err := s.service.RunScan(s.ctx, ScanRequest{NPI: testNPI, Tier: models.TierFree, Snapshot: snapshot(phone)})
	s.Require().NoError(err)
	return session
}

func (s *ScanServiceSuite) openPhoneAlerts() []*models.MismatchAlert {
	alerts, err := s.service.ListAlerts(s.ctx, testNPI, models.AlertOpen)
	s.Require().NoError(err)
	return alerts
}

func (s *ScanServiceSuite) TestAlertsSelfHeal() {
	first := s.scanWithPhone("512-555-9999")
	s.Equal(models.RiskDrift, first.RiskLevel) // (100 + 40) / 2

	open := s.openPhoneAlerts()
	s.Require().Len(open, 1)
	alertID := open[0].ID
	s.Equal("phone", open[0].Dimension)
	s.Equal(1, open[0].OccurrenceCount)
	s.Equal("512-555-0100", open[0].NPIValue)
	s.Equal("512-555-9999", open[0].SiteValue)

	s.Run("repeat mismatch bumps the same alert", func() {
		s.scanWithPhone("512-555-8888")
		open := s.openPhoneAlerts()
		s.Require().Len(open, 1)
		s.Equal(alertID, open[0].ID)
		s.Equal(2, open[0].OccurrenceCount)
		s.Equal("512-555-8888", open[0].SiteValue)
	})

	s.Run("a pass resolves it", func() {
		s.scanWithPhone("512-555-0100")
		s.Empty(s.openPhoneAlerts())
		resolved, err := s.service.ListAlerts(s.ctx, testNPI, models.AlertResolved)
		s.Require().NoError(err)
		s.Require().Len(resolved, 1)
		s.Equal(alertID, resolved[0].ID)
		s.NotNil(resolved[0].ResolvedAt)
	})

	s.Run("a regression opens a new alert", func() {
		s.scanWithPhone("512-555-7777")
		open := s.openPhoneAlerts()
		s.Require().Len(open, 1)
		s.NotEqual(alertID, open[0].ID)
		s.Equal(1, open[0].OccurrenceCount)
	})

	s.Len(s.outbox.ByType(outbox.TypeAlertOpened), 2)
	s.Len(s.outbox.ByType(outbox.TypeAlertResolved), 1)
}

func (s *ScanServiceSuite) TestInconclusiveLeavesAlertsOpen() {
	s.scanWithPhone("512-555-9999")
	s.Require().Len(s.openPhoneAlerts(), 1)

	s.registry.EXPECT().FetchRecord(gomock.Any(), testNPI).Return(nil, nil)
	_, err := s.service.RunScan(s.ctx, ScanRequest{NPI: testNPI, Tier: models.TierFree})
	s.Require().NoError(err)

	s.Len(s.openPhoneAlerts(), 1)
}

// resolvingAlertStore resolves the open alert right after the scan reads it,
// as an overlapping scan that saw the check pass would.
type resolvingAlertStore struct {
	*store.InMemoryAlertStore
	at   time.Time
	once sync.Once
}

func (r *resolvingAlertStore) FindOpen(ctx context.Context, npi, checkID string) (*models.MismatchAlert, error) {
	alert, err := r.InMemoryAlertStore.FindOpen(ctx, npi, checkID)
	if err != nil {
		return nil, err
	}
	r.once.Do(func() {
		concurrent := *alert
		concurrent.Resolve(r.at)
		_ = r.InMemoryAlertStore.Resolve(ctx, &concurrent)
	})
	return alert, nil
}

func (s *ScanServiceSuite) TestMismatchAfterConcurrentResolveOpensNewAlert() {
	s.scanWithPhone("512-555-9999")
	open := s.openPhoneAlerts()
	s.Require().Len(open, 1)
	firstID := open[0].ID

	racing := &resolvingAlertStore{InMemoryAlertStore: s.alerts, at: s.now.Add(30 * time.Second)}
	svc := New(s.registry, s.sessions, racing, s.scores,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithOutbox(s.outbox),
		WithClock(s.tick),
	)
	s.registry.EXPECT().FetchRecord(gomock.Any(), testNPI).Return(registryRecord(), nil)
	_, err := svc.RunScan(s.ctx, ScanRequest{NPI: testNPI, Tier: models.TierFree, Snapshot: snapshot("512-555-8888")})
	s.Require().NoError(err)

	resolved, err := s.service.ListAlerts(s.ctx, testNPI, models.AlertResolved)
	s.Require().NoError(err)
	s.Require().Len(resolved, 1)
	s.Equal(firstID, resolved[0].ID, "the resolved alert stays resolved")
	s.Equal(1, resolved[0].OccurrenceCount)

	open = s.openPhoneAlerts()
	s.Require().Len(open, 1)
	s.NotEqual(firstID, open[0].ID)
	s.Equal(1, open[0].OccurrenceCount)
	s.Equal("512-555-8888", open[0].SiteValue)
	s.Len(s.outbox.ByType(outbox.TypeAlertOpened), 2)
}

// =============================================================================
// Reads
// =============================================================================

func (s *ScanServiceSuite) TestReads() {
	s.Run("GetScan rejects non-uuid ids", func() {
		_, err := s.service.GetScan(s.ctx, "scan-1")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("GetScan unknown id", func() {
		_, err := s.service.GetScan(s.ctx, "5f0c6b1e-0d5a-4f7e-9a51-2b8a0f4d9c11")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("CurrentScore before any scan", func() {
		_, err := s.service.CurrentScore(s.ctx, testNPI)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("ListAlerts rejects unknown status", func() {
		_, err := s.service.ListAlerts(s.ctx, testNPI, "snoozed")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("ListAlerts empty", func() {
		alerts, err := s.service.ListAlerts(s.ctx, testNPI, "")
		s.Require().NoError(err)
		s.Empty(alerts)
	})
}

func TestFailedCheckTitle(t *testing.T) {
	res := failedCheck(checks.NewPhoneCheck())
	if !strings.HasPrefix(res.Title, "NPI Phone Verification") || res.Status != models.StatusInconclusive {
		t.Fatalf("unexpected failure result: %+v", res)
	}
}
