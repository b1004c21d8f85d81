package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"veritas/pkg/platform/outbox"
	txcontext "veritas/pkg/platform/tx"
)

// Store persists outbox events in the outbox table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL outbox store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes an event; inside tx.Run it commits with the caller's writes.
func (s *Store) Append(ctx context.Context, event outbox.Event) error {
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		event.AggregateType,
		event.AggregateID,
		event.Type,
		event.Payload,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Claim locks up to limit unpublished rows with SKIP LOCKED so concurrent
// relays never publish the same row, then marks the ids publish returns.
func (s *Store) Claim(ctx context.Context, limit int, publish func(ctx context.Context, events []outbox.Event) ([]uuid.UUID, error)) (int, error) {
	var marked int
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		events, err := s.lockPending(ctx, limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids, err := publish(ctx, events)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		res, err := s.execer(ctx).ExecContext(ctx,
			`UPDATE outbox SET published_at = $2 WHERE id = ANY($1)`,
			pq.Array(uuidStrings(ids)), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		marked = int(n)
		return nil
	})
	return marked, err
}

func (s *Store) lockPending(ctx context.Context, limit int) ([]outbox.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox entries: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var e outbox.Event
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return events, nil
}

// Pending counts unpublished rows.
func (s *Store) Pending(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending outbox: %w", err)
	}
	return n, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
