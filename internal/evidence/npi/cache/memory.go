package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"veritas/internal/verification/models"
)

// Memory is a process-local TTL cache.
type Memory struct {
	cache *gocache.Cache
	ttl   time.Duration
}

func NewMemory(ttl, cleanupInterval time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

func (m *Memory) Find(_ context.Context, npi string) (*models.RegistryRecord, error) {
	val, found := m.cache.Get(npi)
	if !found {
		return nil, ErrNotFound
	}
	rec, ok := val.(*models.RegistryRecord)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

func (m *Memory) Save(_ context.Context, record *models.RegistryRecord) error {
	if record == nil || record.NPI == "" {
		return fmt.Errorf("registry record with npi is required")
	}
	m.cache.Set(record.NPI, clone(record), m.ttl)
	return nil
}

// Flush drops every entry.
func (m *Memory) Flush() {
	m.cache.Flush()
}
