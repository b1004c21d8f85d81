package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
)

func record(npi string) *models.RegistryRecord {
	return &models.RegistryRecord{
		NPI:                npi,
		Name:               "Hill Country Family Clinic",
		SecondaryAddresses: []models.Address{{Line1: "9 Oak St", City: "Austin", State: "TX", Zip: "78702"}},
	}
}

func TestMemoryCopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, time.Minute)

	rec := record("1234567893")
	require.NoError(t, m.Save(ctx, rec))
	rec.SecondaryAddresses[0].Line1 = "mutated"

	got, err := m.Find(ctx, "1234567893")
	require.NoError(t, err)
	assert.Equal(t, "9 Oak St", got.SecondaryAddresses[0].Line1)

	got.Name = "mutated"
	again, err := m.Find(ctx, "1234567893")
	require.NoError(t, err)
	assert.Equal(t, "Hill Country Family Clinic", again.Name)

	_, err = m.Find(ctx, "1999999999")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, m.Save(ctx, &models.RegistryRecord{}))
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10*time.Millisecond, time.Hour)
	require.NoError(t, m.Save(ctx, record("1234567893")))

	time.Sleep(25 * time.Millisecond)

	_, err := m.Find(ctx, "1234567893")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLayeredBackfillsFastLayer(t *testing.T) {
	ctx := context.Background()
	fast := NewMemory(time.Minute, time.Minute)
	slow := NewMemory(time.Minute, time.Minute)
	require.NoError(t, slow.Save(ctx, record("1234567893")))

	l := NewLayered(fast, slow, nil)

	got, err := l.Find(ctx, "1234567893")
	require.NoError(t, err)
	assert.Equal(t, "1234567893", got.NPI)

	_, err = fast.Find(ctx, "1234567893")
	assert.NoError(t, err)

	_, err = l.Find(ctx, "1999999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLayeredWritesEveryLayer(t *testing.T) {
	ctx := context.Background()
	fast := NewMemory(time.Minute, time.Minute)
	slow := NewMemory(time.Minute, time.Minute)
	l := NewLayered(fast, slow, nil)

	require.NoError(t, l.Save(ctx, record("1234567893")))

	_, err := fast.Find(ctx, "1234567893")
	assert.NoError(t, err)
	_, err = slow.Find(ctx, "1234567893")
	assert.NoError(t, err)
}
