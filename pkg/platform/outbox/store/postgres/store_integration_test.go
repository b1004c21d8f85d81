//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veritas/pkg/platform/outbox"
	"veritas/pkg/platform/outbox/store/postgres"
	"veritas/pkg/testutil/containers"
)

type OutboxStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestOutboxStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *OutboxStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func (s *OutboxStoreSuite) appendN(n int) []outbox.Event {
	ctx := context.Background()
	base := time.Now().UTC()
	var out []outbox.Event
	for i := 0; i < n; i++ {
		e, err := outbox.NewEvent(outbox.TypeDriftAlert, "drift_event", uuid.NewString(),
			map[string]any{"severity": "critical"}, base.Add(time.Duration(i)*time.Millisecond))
		s.Require().NoError(err)
		s.Require().NoError(s.store.Append(ctx, e))
		out = append(out, e)
	}
	return out
}

func (s *OutboxStoreSuite) TestClaimMarksOnlyReturnedIDs() {
	ctx := context.Background()
	events := s.appendN(3)

	marked, err := s.store.Claim(ctx, 10, func(_ context.Context, claimed []outbox.Event) ([]uuid.UUID, error) {
		s.Require().Len(claimed, 3)
		s.Equal(events[0].ID, claimed[0].ID, "oldest first")
		s.JSONEq(`{"severity":"critical"}`, string(claimed[0].Payload))
		return []uuid.UUID{claimed[0].ID, claimed[1].ID}, nil
	})
	s.Require().NoError(err)
	s.Equal(2, marked)

	pending, err := s.store.Pending(ctx)
	s.Require().NoError(err)
	s.Equal(1, pending)
}

func (s *OutboxStoreSuite) TestClaimRespectsLimit() {
	ctx := context.Background()
	s.appendN(5)

	var seen int
	_, err := s.store.Claim(ctx, 2, func(_ context.Context, claimed []outbox.Event) ([]uuid.UUID, error) {
		seen = len(claimed)
		return nil, nil
	})
	s.Require().NoError(err)
	s.Equal(2, seen)

	pending, err := s.store.Pending(ctx)
	s.Require().NoError(err)
	s.Equal(5, pending)
}
