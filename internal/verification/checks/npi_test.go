package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"veritas/internal/verification/models"
)

type NPIChecksSuite struct {
	suite.Suite
	ctx    context.Context
	record *models.RegistryRecord
	site   *models.SiteSnapshot
}

func TestNPIChecksSuite(t *testing.T) {
	suite.Run(t, new(NPIChecksSuite))
}

func (s *NPIChecksSuite) SetupTest() {
	s.ctx = context.Background()
	s.record = &models.RegistryRecord{
		NPI:           "1234567893",
		Name:          "Hill Country Family Clinic",
		Primary:       models.Address{Line1: "100 Congress Ave", City: "Austin", State: "TX", Zip: "78701"},
		Phone:         "512-555-0100",
		TaxonomyCode:  "207Q00000X",
		TaxonomyLabel: "Family Medicine",
		LastUpdated:   "2024-02-01",
		SecondaryAddresses: []models.Address{
			{Line1: "45 Oak Rd", City: "Round Rock", State: "TX", Zip: "78664"},
		},
	}
	s.site = &models.SiteSnapshot{
		AddrLine1:       "100 Congress Avenue, Suite 200",
		AddrCity:        "Austin",
		AddrState:       "TX",
		AddrZip:         "78701",
		Phone:           "+1 (512) 555-0100",
		SpecialtyLabels: []string{"Primary Care", "Family Practice"},
		ProviderNames:   []string{"Dr. Jane Doe, MD", "Mark Lee, NP"},
	}
}

func (s *NPIChecksSuite) run(check models.CheckModule) models.CheckResult {
	res, err := check.Run(s.ctx, &models.CheckContext{
		NPI:   s.record.NPI,
		Cache: models.CheckCache{Record: s.record, Snapshot: s.site},
	})
	s.Require().NoError(err)
	return res
}

// =============================================================================
// NPI-01 Address
// =============================================================================

func (s *NPIChecksSuite) TestAddressCheck() {
	check := NewAddressCheck()

	s.Run("passes on primary address despite suite", func() {
		res := s.run(check)
		s.Equal(models.StatusPass, res.Status)
		s.Equal(100, res.Score)
		s.Equal("Address matches NPI record", res.Title)
	})

	s.Run("passes on a secondary location", func() {
		s.site.AddrLine1, s.site.AddrCity, s.site.AddrZip = "45 Oak Road", "Round Rock", "78664"
		res := s.run(check)
		s.Equal(models.StatusPass, res.Status)
		s.Equal("Address matches NPI secondary location", res.Title)
		s.Contains(res.Evidence, "matched_secondary")
	})

	s.Run("fails with partial credit on mismatch", func() {
		s.site.AddrLine1, s.site.AddrCity, s.site.AddrZip = "9 Elm St", "Austin", "78702"
		res := s.run(check)
		s.Equal(models.StatusFail, res.Status)
		s.Equal(25, res.Score)
		s.Equal("100 Congress Ave, Austin, TX 78701", res.Evidence[models.EvidenceNPIAddress])
		s.NotEmpty(res.RemediationSteps)
	})

	s.Run("inconclusive without a snapshot", func() {
		s.site = nil
		res := s.run(check)
		s.Equal(models.StatusInconclusive, res.Status)
		s.Equal(0, res.Score)
	})

	s.Run("inconclusive without a registry record", func() {
		s.SetupTest()
		s.record = nil
		res, err := check.Run(s.ctx, &models.CheckContext{Cache: models.CheckCache{Snapshot: s.site}})
		s.Require().NoError(err)
		s.Equal(models.StatusInconclusive, res.Status)
		s.Equal("NPI organization data unavailable", res.Title)
	})
}

// =============================================================================
// NPI-02 Phone
// =============================================================================

func (s *NPIChecksSuite) TestPhoneCheck() {
	check := NewPhoneCheck()

	s.Run("passes when digits agree", func() {
		res := s.run(check)
		s.Equal(models.StatusPass, res.Status)
		s.Equal(100, res.Score)
	})

	s.Run("fails with score 40", func() {
		s.site.Phone = "(512) 555-9999"
		res := s.run(check)
		s.Equal(models.StatusFail, res.Status)
		s.Equal(40, res.Score)
		s.Equal("(512) 555-9999", res.Evidence[models.EvidenceSitePhone])
	})

	s.Run("inconclusive when registry has no phone", func() {
		s.record.Phone = ""
		res := s.run(check)
		s.Equal(models.StatusInconclusive, res.Status)
		s.Equal("NPI phone data unavailable", res.Title)
	})

	s.Run("inconclusive when site has no phone", func() {
		s.SetupTest()
		s.site.Phone = "call us today"
		res := s.run(check)
		s.Equal(models.StatusInconclusive, res.Status)
		s.Equal("Website phone not detected", res.Title)
	})
}

// =============================================================================
// NPI-03 Taxonomy
// =============================================================================

func (s *NPIChecksSuite) TestTaxonomyCheck() {
	check := NewTaxonomyCheck()

	s.Run("passes on umbrella label", func() {
		res := s.run(check)
		s.Equal(models.StatusPass, res.Status)
	})

	s.Run("warns rather than fails on mismatch", func() {
		s.site.SpecialtyLabels = []string{"Dermatology"}
		res := s.run(check)
		s.Equal(models.StatusWarn, res.Status)
		s.Equal(60, res.Score)
		s.Equal([]string{"Dermatology"}, res.Evidence[models.EvidenceSiteSpecialties])
	})

	s.Run("inconclusive without labels", func() {
		s.site.SpecialtyLabels = nil
		res := s.run(check)
		s.Equal(models.StatusInconclusive, res.Status)
	})
}
