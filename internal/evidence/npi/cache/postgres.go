package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"veritas/internal/verification/models"
)

// Postgres persists registry records in registry_records so the cache
// survives restarts and is shared between replicas.
type Postgres struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewPostgres(db *sql.DB, ttl time.Duration) *Postgres {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Postgres{db: db, ttl: ttl, now: time.Now}
}

func (p *Postgres) Find(ctx context.Context, npi string) (*models.RegistryRecord, error) {
	cutoff := p.now().Add(-p.ttl)
	var payload []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT payload FROM registry_records
		WHERE npi = $1 AND fetched_at > $2
	`, npi, cutoff).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find registry record: %w", err)
	}
	var rec models.RegistryRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode registry record: %w", err)
	}
	return &rec, nil
}

func (p *Postgres) Save(ctx context.Context, record *models.RegistryRecord) error {
	if record == nil || record.NPI == "" {
		return fmt.Errorf("registry record with npi is required")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode registry record: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO registry_records (npi, source, payload, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (npi) DO UPDATE SET
			source = EXCLUDED.source,
			payload = EXCLUDED.payload,
			fetched_at = EXCLUDED.fetched_at
	`, record.NPI, record.Source, payload, p.now())
	if err != nil {
		return fmt.Errorf("save registry record: %w", err)
	}
	return nil
}
