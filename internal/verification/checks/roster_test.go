package checks

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
)

func rosterContext(siteNames []string, roster ...string) *models.CheckContext {
	entries := make([]models.RosterEntry, 0, len(roster))
	for i, n := range roster {
		entries = append(entries, models.RosterEntry{NPI: fmt.Sprintf("10000000%02d", i), FullName: n, TaxonomyLabel: "Family Medicine"})
	}
	var snap *models.SiteSnapshot
	if siteNames != nil {
		snap = &models.SiteSnapshot{ProviderNames: siteNames}
	}
	return &models.CheckContext{Cache: models.CheckCache{Snapshot: snap, Roster: entries}}
}

func TestRosterCountCheck(t *testing.T) {
	check := NewRosterCountCheck()

	t.Run("fixed credit when names are published", func(t *testing.T) {
		res, err := check.Run(context.Background(), rosterContext([]string{"Jane Doe"}))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPass, res.Status)
		assert.Equal(t, 80, res.Score)
	})

	t.Run("inconclusive without names", func(t *testing.T) {
		res, err := check.Run(context.Background(), rosterContext([]string{}))
		require.NoError(t, err)
		assert.Equal(t, models.StatusInconclusive, res.Status)
		assert.Equal(t, 0, res.Score)
	})

	t.Run("inconclusive without snapshot", func(t *testing.T) {
		res, err := check.Run(context.Background(), rosterContext(nil))
		require.NoError(t, err)
		assert.Equal(t, models.StatusInconclusive, res.Status)
	})
}

func TestRosterNameCheck(t *testing.T) {
	check := NewRosterNameCheck()
	ctx := context.Background()

	t.Run("all matched", func(t *testing.T) {
		res, err := check.Run(ctx, rosterContext(
			[]string{"Dr. Jane Doe, MD", "Mark Lee NP"},
			"JANE A DOE", "MARK LEE",
		))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPass, res.Status)
		assert.Equal(t, 100, res.Score)
		assert.Equal(t, 2, res.Evidence["matched_count"])
	})

	t.Run("two issues warn", func(t *testing.T) {
		res, err := check.Run(ctx, rosterContext(
			[]string{"Jane Doe", "Omar Haddad"},
			"Jane Doe", "Priya Raman",
		))
		require.NoError(t, err)
		assert.Equal(t, models.StatusWarn, res.Status)
		assert.Equal(t, 80, res.Score)
		assert.Equal(t, []string{"Omar Haddad"}, res.Evidence["on_site_not_in_npi"])
		assert.Equal(t, 50, res.Evidence["match_rate"])
	})

	t.Run("many issues fail with floor", func(t *testing.T) {
		roster := make([]string, 0, 12)
		for i := 0; i < 12; i++ {
			roster = append(roster, fmt.Sprintf("Person Surname%c", 'a'+i))
		}
		res, err := check.Run(ctx, rosterContext([]string{"Jane Doe"}, roster...))
		require.NoError(t, err)
		assert.Equal(t, models.StatusFail, res.Status)
		assert.Equal(t, 20, res.Score)
		listed := res.Evidence["in_npi_not_on_site"].([]map[string]string)
		assert.Len(t, listed, 10)
	})

	t.Run("inconclusive without roster", func(t *testing.T) {
		res, err := check.Run(ctx, rosterContext([]string{"Jane Doe"}))
		require.NoError(t, err)
		assert.Equal(t, models.StatusInconclusive, res.Status)
		assert.Equal(t, "NPI provider data unavailable", res.Title)
	})
}
