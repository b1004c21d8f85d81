package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
)

func ids(modules []models.CheckModule) []string {
	out := make([]string, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.ID())
	}
	return out
}

func TestRegistryForTier(t *testing.T) {
	assert.Equal(t, []string{"NPI-01", "NPI-02"}, ids(Default.ForTier(models.TierFree)))
	assert.Equal(t, []string{"NPI-01", "NPI-02", "NPI-03", "RST-01"}, ids(Default.ForTier(models.TierReport)))
	assert.Equal(t, []string{"NPI-01", "NPI-02", "NPI-03", "RST-01", "RST-02"}, ids(Default.ForTier(models.TierShield)))

	t.Run("unknown tier ranks as free", func(t *testing.T) {
		assert.Equal(t, []string{"NPI-01", "NPI-02"}, ids(Default.ForTier(models.Tier("platinum"))))
	})
}

func TestRegistryLookups(t *testing.T) {
	m, ok := Default.ByID("NPI-03")
	require.True(t, ok)
	assert.Equal(t, models.TierReport, m.Tier())
	assert.Equal(t, "NPPES Taxonomy Requirements", m.StatuteRef())

	_, ok = Default.ByID("SSL-01")
	assert.False(t, ok)

	grouped := Default.ByCategory()
	assert.Len(t, grouped[models.CategoryNPIIntegrity], 5)

	t.Run("All returns a copy", func(t *testing.T) {
		all := Default.All()
		all[0] = nil
		assert.NotNil(t, Default.All()[0])
	})
}

type stubCheck struct{ descriptor }

func (stubCheck) Run(context.Context, *models.CheckContext) (models.CheckResult, error) {
	return models.CheckResult{Status: models.StatusPass, Score: 100}, nil
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry(stubCheck{descriptor{id: "X-1"}}, stubCheck{descriptor{id: "X-1"}})
	})
}
