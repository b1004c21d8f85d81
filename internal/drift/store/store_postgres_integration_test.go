//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veritas/internal/drift/models"
	"veritas/internal/drift/store"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/testutil/containers"
)

const testNPI = "1234567893"

type PostgresDriftStoreSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	baselines  *store.PostgresBaselineStore
	events     *store.PostgresEventStore
	heartbeats *store.PostgresHeartbeatStore
}

func TestPostgresDriftStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDriftStoreSuite))
}

func (s *PostgresDriftStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.baselines = store.NewPostgresBaselineStore(s.postgres.DB)
	s.events = store.NewPostgresEventStore(s.postgres.DB)
	s.heartbeats = store.NewPostgresHeartbeatStore(s.postgres.DB)
}

func (s *PostgresDriftStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "compliance_baselines", "drift_events", "widget_heartbeats")
	s.Require().NoError(err)
}

func newEvent(category models.Category, hash string, at time.Time) *models.Event {
	return &models.Event{
		ID:          uuid.NewString(),
		NPI:         testNPI,
		PageURL:     "/",
		Category:    category,
		DriftType:   models.DriftContentChanged,
		Severity:    models.SeverityHigh,
		Status:      models.StatusNew,
		CurrentHash: hash,
		Metadata:    models.EventMetadata{WidgetMode: models.DefaultWidgetMode, ReportedAt: at},
		CreatedAt:   at,
	}
}

// =============================================================================
// Baselines
// =============================================================================

func (s *PostgresDriftStoreSuite) TestBaselineUpsertReplaces() {
	ctx := context.Background()
	now := time.Now().UTC()
	b := &models.Baseline{
		NPI: testNPI, PageURL: "/", Category: models.CategoryPrivacyPolicy,
		Hash: "h1", Content: "v1", Framework: models.DefaultFramework, UpdatedAt: now,
	}
	s.Require().NoError(s.baselines.Upsert(ctx, b))
	b.Hash, b.Content = "h2", "v2"
	s.Require().NoError(s.baselines.Upsert(ctx, b))

	rows, err := s.baselines.ListByPage(ctx, testNPI, "/")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("h2", rows[0].Hash)
	s.Equal("v2", rows[0].Content)
}

// =============================================================================
// Events
// =============================================================================

func (s *PostgresDriftStoreSuite) TestInsertDeduplicatesWithinWindow() {
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Hour).Add(10 * time.Minute)

	first := newEvent(models.CategoryAIDisclosure, "h2", t0)
	ok, err := s.events.Insert(ctx, first, t0.Add(-time.Hour))
	s.Require().NoError(err)
	s.True(ok)

	at := t0.Add(30 * time.Minute)
	ok, err = s.events.Insert(ctx, newEvent(models.CategoryAIDisclosure, "h2", at), at.Add(-time.Hour))
	s.Require().NoError(err)
	s.False(ok, "identical report inside the window is dropped")

	at = t0.Add(61 * time.Minute)
	ok, err = s.events.Insert(ctx, newEvent(models.CategoryAIDisclosure, "h2", at), at.Add(-time.Hour))
	s.Require().NoError(err)
	s.True(ok, "identical report after the window is recorded")

	at = t0.Add(5 * time.Minute)
	ok, err = s.events.Insert(ctx, newEvent(models.CategoryAIDisclosure, "h3", at), at.Add(-time.Hour))
	s.Require().NoError(err)
	s.True(ok, "a different hash is a different drift")
}

func (s *PostgresDriftStoreSuite) TestClosedEventDoesNotSuppressReport() {
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Hour).Add(10 * time.Minute)

	first := newEvent(models.CategoryPrivacyPolicy, "h4", t0)
	ok, err := s.events.Insert(ctx, first, t0.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Require().NoError(first.Transition(models.StatusResolved, "ops", t0))
	s.Require().NoError(s.events.UpdateStatus(ctx, first, models.StatusNew))

	at := t0.Add(5 * time.Minute)
	ok, err = s.events.Insert(ctx, newEvent(models.CategoryPrivacyPolicy, "h4", at), at.Add(-time.Hour))
	s.Require().NoError(err)
	s.True(ok, "same hour bucket, but the earlier event is closed")

	ok, err = s.events.Insert(ctx, newEvent(models.CategoryPrivacyPolicy, "h4", at), at.Add(-time.Hour))
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PostgresDriftStoreSuite) TestConcurrentIdenticalReportsInsertOnce() {
	ctx := context.Background()
	at := time.Now().UTC()

	const reporters = 25
	var wg sync.WaitGroup
	var inserted atomic.Int32
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.events.Insert(ctx, newEvent(models.CategoryCookieConsent, "h9", at), at.Add(-time.Hour))
			if err == nil && ok {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), inserted.Load())
	n, err := s.events.OpenCount(ctx, testNPI)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *PostgresDriftStoreSuite) TestUpdateStatusIsCompareAndSet() {
	ctx := context.Background()
	now := time.Now().UTC()
	e := newEvent(models.CategoryHIPAAReferences, "h1", now)
	_, err := s.events.Insert(ctx, e, now.Add(-time.Hour))
	s.Require().NoError(err)

	s.Require().NoError(e.Transition(models.StatusAcknowledged, "", now))
	s.Require().NoError(s.events.UpdateStatus(ctx, e, models.StatusNew))

	stale := *e
	stale.Status = models.StatusFalsePositive
	s.ErrorIs(s.events.UpdateStatus(ctx, &stale, models.StatusNew), sentinel.ErrInvalidState)

	missing := newEvent(models.CategoryHIPAAReferences, "h1", now)
	s.ErrorIs(s.events.UpdateStatus(ctx, missing, models.StatusNew), sentinel.ErrNotFound)

	got, err := s.events.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAcknowledged, got.Status)
	s.Equal(models.DefaultWidgetMode, got.Metadata.WidgetMode)
}

func (s *PostgresDriftStoreSuite) TestListFiltersAndPages() {
	ctx := context.Background()
	base := time.Now().UTC().Add(-10 * time.Hour)
	for i, c := range []models.Category{
		models.CategoryAIDisclosure, models.CategoryPrivacyPolicy, models.CategoryThirdPartyScripts,
	} {
		e := newEvent(c, "h", base.Add(time.Duration(i)*time.Hour))
		if i == 0 {
			e.Severity = models.SeverityCritical
		}
		_, err := s.events.Insert(ctx, e, e.CreatedAt.Add(-time.Hour))
		s.Require().NoError(err)
	}

	page, total, err := s.events.List(ctx, models.EventFilter{NPI: testNPI, Limit: 2})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(page, 2)
	s.Equal(models.CategoryThirdPartyScripts, page[0].Category, "newest first")

	critical, total, err := s.events.List(ctx, models.EventFilter{Severity: models.SeverityCritical, Limit: 50})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(models.CategoryAIDisclosure, critical[0].Category)
}

func (s *PostgresDriftStoreSuite) TestBulkResolveOnlyTouchesNew() {
	ctx := context.Background()
	now := time.Now().UTC()
	acked := newEvent(models.CategoryAIDisclosure, "a", now)
	fresh := newEvent(models.CategoryPrivacyPolicy, "b", now)
	for _, e := range []*models.Event{acked, fresh} {
		_, err := s.events.Insert(ctx, e, now.Add(-time.Hour))
		s.Require().NoError(err)
	}
	s.Require().NoError(acked.Transition(models.StatusAcknowledged, "", now))
	s.Require().NoError(s.events.UpdateStatus(ctx, acked, models.StatusNew))

	closed, err := s.events.BulkResolve(ctx, testNPI, "ops", now)
	s.Require().NoError(err)
	s.Require().Len(closed, 1)
	s.Equal(fresh.ID, closed[0].ID)
	s.Equal(fresh.DedupKey(), closed[0].DedupKey())

	got, err := s.events.FindByID(ctx, fresh.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusResolved, got.Status)
	s.Equal("ops", got.ResolvedBy)
}

// =============================================================================
// Heartbeats
// =============================================================================

func (s *PostgresDriftStoreSuite) TestHeartbeatWindowResets() {
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Second)

	h, err := s.heartbeats.Touch(ctx, testNPI, "/", "", t0)
	s.Require().NoError(err)
	s.Equal(1, h.PageViews24h)
	s.Equal(models.DefaultWidgetMode, h.WidgetMode)

	h, err = s.heartbeats.Touch(ctx, testNPI, "/", "watch", t0.Add(23*time.Hour))
	s.Require().NoError(err)
	s.Equal(2, h.PageViews24h)
	s.Equal(2, h.PageViewsTotal)

	h, err = s.heartbeats.Touch(ctx, testNPI, "/", "watch", t0.Add(25*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, h.PageViews24h)
	s.Equal(3, h.PageViewsTotal)
	s.True(h.WindowStart.Equal(t0.Add(25*time.Hour)))

	list, err := s.heartbeats.ListByNPI(ctx, testNPI)
	s.Require().NoError(err)
	s.Len(list, 1)
}
