// Package cache holds registry records between scans so repeated scans of the
// same practice do not re-query the registry.
package cache

import (
	"context"
	"errors"
	"time"

	"veritas/internal/evidence/npi/metrics"
	"veritas/internal/verification/models"
)

// ErrNotFound is returned on a miss or an expired entry.
var ErrNotFound = errors.New("registry record not cached")

// DefaultTTL bounds how stale a cached registry record may be.
const DefaultTTL = 6 * time.Hour

// Store is one cache layer.
type Store interface {
	Find(ctx context.Context, npi string) (*models.RegistryRecord, error)
	Save(ctx context.Context, record *models.RegistryRecord) error
}

// Layered reads through fast to slow and backfills faster layers on a slow hit.
// Writes go to every layer.
type Layered struct {
	fast    Store
	slow    Store
	metrics *metrics.Metrics
}

func NewLayered(fast, slow Store, m *metrics.Metrics) *Layered {
	return &Layered{fast: fast, slow: slow, metrics: m}
}

func (l *Layered) Find(ctx context.Context, npi string) (*models.RegistryRecord, error) {
	start := time.Now()
	if l.fast != nil {
		rec, err := l.fast.Find(ctx, npi)
		if err == nil {
			l.metrics.ObserveCache("memory", true, start)
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		l.metrics.ObserveCache("memory", false, start)
	}
	if l.slow == nil {
		return nil, ErrNotFound
	}

	start = time.Now()
	rec, err := l.slow.Find(ctx, npi)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.metrics.ObserveCache("postgres", false, start)
		}
		return nil, err
	}
	l.metrics.ObserveCache("postgres", true, start)
	if l.fast != nil {
		_ = l.fast.Save(ctx, rec)
	}
	return rec, nil
}

func (l *Layered) Save(ctx context.Context, record *models.RegistryRecord) error {
	if l.fast != nil {
		if err := l.fast.Save(ctx, record); err != nil {
			return err
		}
	}
	if l.slow != nil {
		return l.slow.Save(ctx, record)
	}
	return nil
}

func clone(r *models.RegistryRecord) *models.RegistryRecord {
	c := *r
	if r.SecondaryAddresses != nil {
		c.SecondaryAddresses = append([]models.Address(nil), r.SecondaryAddresses...)
	}
	return &c
}
