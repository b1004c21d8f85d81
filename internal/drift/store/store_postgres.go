package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"veritas/internal/drift/models"
	"veritas/pkg/platform/sentinel"
	txcontext "veritas/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresBaselineStore persists compliance_baselines.
type PostgresBaselineStore struct {
	db *sql.DB
}

func NewPostgresBaselineStore(db *sql.DB) *PostgresBaselineStore {
	return &PostgresBaselineStore{db: db}
}

func (s *PostgresBaselineStore) Upsert(ctx context.Context, b *models.Baseline) error {
	query := `
		INSERT INTO compliance_baselines (npi, page_url, category, hash, content_snapshot, framework, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (npi, page_url, category) DO UPDATE SET
			hash = EXCLUDED.hash,
			content_snapshot = EXCLUDED.content_snapshot,
			framework = EXCLUDED.framework,
			updated_at = EXCLUDED.updated_at
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		b.NPI, b.PageURL, string(b.Category), b.Hash, b.Content, b.Framework, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert baseline: %w", err)
	}
	return nil
}

func (s *PostgresBaselineStore) ListByPage(ctx context.Context, npi, pageURL string) ([]*models.Baseline, error) {
	query := `
		SELECT npi, page_url, category, hash, content_snapshot, framework, updated_at
		FROM compliance_baselines
		WHERE npi = $1 AND page_url = $2
		ORDER BY category
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, npi, pageURL)
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	defer rows.Close()

	var out []*models.Baseline
	for rows.Next() {
		var b models.Baseline
		var category string
		if err := rows.Scan(&b.NPI, &b.PageURL, &category, &b.Hash, &b.Content, &b.Framework, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan baseline: %w", err)
		}
		b.Category = models.Category(category)
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baselines: %w", err)
	}
	return out, nil
}

// PostgresEventStore persists drift_events.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

const eventColumns = `id, npi, page_url, category, drift_type, severity, status,
	previous_hash, current_hash, content_before, content_after, metadata,
	created_at, resolved_at, resolved_by`

// Insert writes e unless an identical report still in status new exists at or
// after since. The partial unique index on (npi, page_url, category,
// current_hash, hour_bucket) WHERE status = 'new' closes the race between
// concurrent identical reports.
func (s *PostgresEventStore) Insert(ctx context.Context, e *models.Event, since time.Time) (bool, error) {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return false, fmt.Errorf("marshal drift metadata: %w", err)
	}
	query := `
		INSERT INTO drift_events (` + eventColumns + `, hour_bucket)
		SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text,
			$8::text, $9::text, $10::text, $11::text, $12::jsonb,
			$13::timestamptz, NULL, '', $14::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM drift_events
			WHERE npi = $2 AND page_url = $3 AND category = $4 AND current_hash = $9
				AND status = 'new' AND created_at >= $15
		)
		ON CONFLICT (npi, page_url, category, current_hash, hour_bucket) WHERE status = 'new' DO NOTHING
	`
	res, err := execer(ctx, s.db).ExecContext(ctx, query,
		e.ID, e.NPI, e.PageURL, string(e.Category), string(e.DriftType), string(e.Severity), string(e.Status),
		e.PreviousHash, e.CurrentHash, e.ContentBefore, e.ContentAfter, metadata,
		e.CreatedAt, e.HourBucket(), since,
	)
	if err != nil {
		return false, fmt.Errorf("insert drift event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert drift event: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sentinel.ErrNotFound
	}
	query := `SELECT ` + eventColumns + ` FROM drift_events WHERE id = $1`
	e, err := scanEvent(execer(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find drift event: %w", err)
	}
	return e, nil
}

func (s *PostgresEventStore) UpdateStatus(ctx context.Context, e *models.Event, from models.EventStatus) error {
	query := `
		UPDATE drift_events
		SET status = $2, resolved_at = $3, resolved_by = $4
		WHERE id = $1 AND status = $5
	`
	res, err := execer(ctx, s.db).ExecContext(ctx, query, e.ID, string(e.Status), e.ResolvedAt, e.ResolvedBy, string(from))
	if err != nil {
		return fmt.Errorf("update drift event status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, findErr := s.FindByID(ctx, e.ID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresEventStore) List(ctx context.Context, filter models.EventFilter) ([]*models.Event, int, error) {
	var where []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.NPI != "" {
		add("npi = $%d", filter.NPI)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Severity != "" {
		add("severity = $%d", string(filter.Severity))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := execer(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM drift_events`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count drift events: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM drift_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		eventColumns, cond, len(args)-1, len(args))
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list drift events: %w", err)
	}
	defer rows.Close()

	out := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan drift event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate drift events: %w", err)
	}
	return out, total, nil
}

func (s *PostgresEventStore) BulkResolve(ctx context.Context, npi, resolvedBy string, now time.Time) ([]*models.Event, error) {
	query := `
		UPDATE drift_events
		SET status = 'resolved', resolved_at = $2, resolved_by = $3
		WHERE npi = $1 AND status = 'new'
		RETURNING id, npi, page_url, category, current_hash
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, npi, now, resolvedBy)
	if err != nil {
		return nil, fmt.Errorf("bulk resolve drift events: %w", err)
	}
	defer rows.Close()

	var closed []*models.Event
	for rows.Next() {
		e := models.Event{Status: models.StatusResolved, ResolvedBy: resolvedBy}
		var category string
		if err := rows.Scan(&e.ID, &e.NPI, &e.PageURL, &category, &e.CurrentHash); err != nil {
			return nil, fmt.Errorf("scan resolved drift event: %w", err)
		}
		e.Category = models.Category(category)
		closed = append(closed, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolved drift events: %w", err)
	}
	return closed, nil
}

func (s *PostgresEventStore) OpenCount(ctx context.Context, npi string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM drift_events WHERE npi = $1 AND status IN ('new', 'acknowledged')`
	if err := execer(ctx, s.db).QueryRowContext(ctx, query, npi).Scan(&n); err != nil {
		return 0, fmt.Errorf("count open drift events: %w", err)
	}
	return n, nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	var category, driftType, severity, status string
	var metadata []byte
	var resolvedAt sql.NullTime
	if err := row.Scan(
		&e.ID, &e.NPI, &e.PageURL, &category, &driftType, &severity, &status,
		&e.PreviousHash, &e.CurrentHash, &e.ContentBefore, &e.ContentAfter, &metadata,
		&e.CreatedAt, &resolvedAt, &e.ResolvedBy,
	); err != nil {
		return nil, err
	}
	e.Category = models.Category(category)
	e.DriftType = models.DriftType(driftType)
	e.Severity = models.Severity(severity)
	e.Status = models.EventStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		e.ResolvedAt = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode drift metadata: %w", err)
		}
	}
	return &e, nil
}

// PostgresHeartbeatStore persists widget_heartbeats.
type PostgresHeartbeatStore struct {
	db *sql.DB
}

func NewPostgresHeartbeatStore(db *sql.DB) *PostgresHeartbeatStore {
	return &PostgresHeartbeatStore{db: db}
}

// Touch counts one page view in a single upsert. The 24h counter restarts
// when its window is older than 24 hours.
func (s *PostgresHeartbeatStore) Touch(ctx context.Context, npi, pageURL, widgetMode string, seen time.Time) (*models.Heartbeat, error) {
	if widgetMode == "" {
		widgetMode = models.DefaultWidgetMode
	}
	query := `
		INSERT INTO widget_heartbeats AS h
			(npi, page_url, widget_mode, last_seen, window_start, page_views_24h, page_views_total)
		VALUES ($1, $2, $3, $4, $4, 1, 1)
		ON CONFLICT (npi, page_url) DO UPDATE SET
			widget_mode = EXCLUDED.widget_mode,
			last_seen = GREATEST(h.last_seen, EXCLUDED.last_seen),
			window_start = CASE
				WHEN EXCLUDED.last_seen - h.window_start >= INTERVAL '24 hours' THEN EXCLUDED.last_seen
				ELSE h.window_start END,
			page_views_24h = CASE
				WHEN EXCLUDED.last_seen - h.window_start >= INTERVAL '24 hours' THEN 1
				ELSE h.page_views_24h + 1 END,
			page_views_total = h.page_views_total + 1
		RETURNING npi, page_url, widget_mode, last_seen, window_start, page_views_24h, page_views_total
	`
	h, err := scanHeartbeat(execer(ctx, s.db).QueryRowContext(ctx, query, npi, pageURL, widgetMode, seen))
	if err != nil {
		return nil, fmt.Errorf("touch heartbeat: %w", err)
	}
	return h, nil
}

func (s *PostgresHeartbeatStore) ListByNPI(ctx context.Context, npi string) ([]*models.Heartbeat, error) {
	query := `
		SELECT npi, page_url, widget_mode, last_seen, window_start, page_views_24h, page_views_total
		FROM widget_heartbeats
		WHERE npi = $1
		ORDER BY last_seen DESC
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, npi)
	if err != nil {
		return nil, fmt.Errorf("list heartbeats: %w", err)
	}
	defer rows.Close()

	var out []*models.Heartbeat
	for rows.Next() {
		h, err := scanHeartbeat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan heartbeat: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heartbeats: %w", err)
	}
	return out, nil
}

func scanHeartbeat(row rowScanner) (*models.Heartbeat, error) {
	var h models.Heartbeat
	if err := row.Scan(&h.NPI, &h.PageURL, &h.WidgetMode, &h.LastSeen, &h.WindowStart, &h.PageViews24h, &h.PageViewsTotal); err != nil {
		return nil, err
	}
	return &h, nil
}
