package npi

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"veritas/internal/evidence/npi/cache"
	"veritas/internal/evidence/npi/providers"
	"veritas/internal/evidence/npi/providers/mocks"
	"veritas/internal/verification/models"
)

const testNPI = "1234567893"

type RegistryServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	primary   *mocks.MockProvider
	secondary *mocks.MockProvider
	cache     *cache.Memory
	service   *Service
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.primary = mocks.NewMockProvider(s.ctrl)
	s.secondary = mocks.NewMockProvider(s.ctrl)
	s.primary.EXPECT().ID().Return("primary").AnyTimes()
	s.secondary.EXPECT().ID().Return("secondary").AnyTimes()
	s.cache = cache.NewMemory(time.Minute, time.Minute)
	s.service = New(s.primary, WithSecondary(s.secondary), WithCache(s.cache))
}

func (s *RegistryServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func sparse(source string) *models.RegistryRecord {
	return &models.RegistryRecord{
		NPI:     testNPI,
		Name:    "Hill Country Family Clinic",
		Primary: models.Address{Line1: "100 Main St", City: "Austin", State: "TX", Zip: "78701"},
		Source:  source,
	}
}

func rich(source string) *models.RegistryRecord {
	rec := sparse(source)
	rec.Phone = "512-555-0100"
	rec.TaxonomyCode = "207Q00000X"
	rec.TaxonomyLabel = "Family Medicine"
	return rec
}

func notFound(id string) error {
	return providers.NewProviderError(providers.ErrorNotFound, id, "record not found", nil)
}

// =============================================================================
// FetchRecord
// =============================================================================

func (s *RegistryServiceSuite) TestFetchRecord() {
	ctx := context.Background()

	s.Run("prefers the more complete record", func() {
		s.SetupTest()
		s.primary.EXPECT().Lookup(gomock.Any(), testNPI).Return(sparse("primary"), nil)
		s.secondary.EXPECT().Lookup(gomock.Any(), testNPI).Return(rich("secondary"), nil)

		rec, err := s.service.FetchRecord(ctx, testNPI)
		s.Require().NoError(err)
		s.Equal("secondary", rec.Source)
		s.Equal("512-555-0100", rec.Phone)
	})

	s.Run("ties go to the primary", func() {
		s.SetupTest()
		s.primary.EXPECT().Lookup(gomock.Any(), testNPI).Return(rich("primary"), nil)
		s.secondary.EXPECT().Lookup(gomock.Any(), testNPI).Return(rich("secondary"), nil)

		rec, err := s.service.FetchRecord(ctx, testNPI)
		s.Require().NoError(err)
		s.Equal("primary", rec.Source)
	})

	s.Run("merges addresses from the other source", func() {
		s.SetupTest()
		other := sparse("secondary")
		other.Primary = models.Address{Line1: "9 Oak St", City: "Austin", State: "TX", Zip: "78702-1234"}
		other.SecondaryAddresses = []models.Address{{Line1: "100  MAIN st", Zip: "78701"}}
		s.primary.EXPECT().Lookup(gomock.Any(), testNPI).Return(rich("primary"), nil)
		s.secondary.EXPECT().Lookup(gomock.Any(), testNPI).Return(other, nil)

		rec, err := s.service.FetchRecord(ctx, testNPI)
		s.Require().NoError(err)
		s.Require().Len(rec.SecondaryAddresses, 1)
		s.Equal("9 Oak St", rec.SecondaryAddresses[0].Line1)
	})

	s.Run("both absent returns nil without error", func() {
		s.SetupTest()
		s.primary.EXPECT().Lookup(gomock.Any(), testNPI).Return(nil, notFound("primary"))
		s.secondary.EXPECT().Lookup(gomock.Any(), testNPI).Return(nil, notFound("secondary"))

		rec, err := s.service.FetchRecord(ctx, testNPI)
		s.NoError(err)
		s.Nil(rec)
	})

	s.Run("one failing source falls back to the other", func() {
		s.SetupTest()
		outage := providers.NewProviderError(providers.ErrorProviderOutage, "primary", "down", nil)
		s.primary.EXPECT().Lookup(gomock.Any(), testNPI).Return(nil, outage)
		s.secondary.EXPECT().Lookup(gomock.Any(), testNPI).Return(sparse("secondary"), nil)

		rec, err := s.service.FetchRecord(ctx, testNPI)
		s.Require().NoError(err)
		s.Equal("secondary", rec.Source)
	})

	s.Run("every source failing returns the error", func() {
		s.SetupTest()
		s.primary.EXPECT().Lookup(gomock.Any(), testNPI).Return(nil, errors.New("boom"))
		s.secondary.EXPECT().Lookup(gomock.Any(), testNPI).Return(nil, errors.New("boom"))

		rec, err := s.service.FetchRecord(ctx, testNPI)
		s.Error(err)
		s.Nil(rec)
	})

	s.Run("second fetch is served from cache", func() {
		s.SetupTest()
		s.primary.EXPECT().Lookup(gomock.Any(), testNPI).Return(rich("primary"), nil).Times(1)
		s.secondary.EXPECT().Lookup(gomock.Any(), testNPI).Return(nil, notFound("secondary")).Times(1)

		_, err := s.service.FetchRecord(ctx, testNPI)
		s.Require().NoError(err)
		rec, err := s.service.FetchRecord(ctx, testNPI)
		s.Require().NoError(err)
		s.Equal("primary", rec.Source)
	})
}

// =============================================================================
// FetchRoster
// =============================================================================

func page(n, offset int) []models.RosterEntry {
	out := make([]models.RosterEntry, n)
	for i := range out {
		out[i] = models.RosterEntry{NPI: fmt.Sprintf("1%09d", offset+i)}
	}
	return out
}

func (s *RegistryServiceSuite) TestFetchRoster() {
	ctx := context.Background()

	s.Run("walks full pages and stops on a short one", func() {
		s.SetupTest()
		gomock.InOrder(
			s.primary.EXPECT().SearchRoster(gomock.Any(), providers.RosterQuery{PostalCode: "78701", Limit: 200, Skip: 0}).Return(page(200, 0), nil),
			s.primary.EXPECT().SearchRoster(gomock.Any(), providers.RosterQuery{PostalCode: "78701", Limit: 200, Skip: 200}).Return(page(7, 200), nil),
		)

		roster, err := s.service.FetchRoster(ctx, "78701-4411", "Austin", "TX")
		s.Require().NoError(err)
		s.Len(roster, 207)
	})

	s.Run("stops after three pages", func() {
		s.SetupTest()
		s.primary.EXPECT().SearchRoster(gomock.Any(), gomock.Any()).Return(page(200, 0), nil).Times(3)

		roster, err := s.service.FetchRoster(ctx, "78701", "", "")
		s.Require().NoError(err)
		s.Len(roster, 600)
	})

	s.Run("falls back to city and state", func() {
		s.SetupTest()
		s.primary.EXPECT().SearchRoster(gomock.Any(), providers.RosterQuery{City: "Austin", State: "TX", Limit: 200}).Return(page(3, 0), nil)

		roster, err := s.service.FetchRoster(ctx, "", "Austin", "tx")
		s.Require().NoError(err)
		s.Len(roster, 3)
	})

	s.Run("no location means no roster", func() {
		s.SetupTest()
		roster, err := s.service.FetchRoster(ctx, "", "Austin", "")
		s.NoError(err)
		s.Empty(roster)
	})

	s.Run("a failing page keeps what was collected", func() {
		s.SetupTest()
		gomock.InOrder(
			s.primary.EXPECT().SearchRoster(gomock.Any(), gomock.Any()).Return(page(200, 0), nil),
			s.primary.EXPECT().SearchRoster(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout")),
		)

		roster, err := s.service.FetchRoster(ctx, "78701", "", "")
		s.Require().NoError(err)
		s.Len(roster, 200)
	})
}
