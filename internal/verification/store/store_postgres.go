package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"veritas/internal/verification/models"
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

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// PostgresSessionStore persists scan sessions, site snapshots and check results.
type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) Create(ctx context.Context, session *models.ScanSession) error {
	query := `
		INSERT INTO scan_sessions (id, npi, url, tier, triggered_by, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		session.ID, session.NPI, session.URL, string(session.Tier), string(session.TriggeredBy), session.StartedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert scan session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) SaveSnapshot(ctx context.Context, scanID string, snap *models.SiteSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal site snapshot: %w", err)
	}
	query := `
		INSERT INTO site_snapshots (scan_id, payload, source_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (scan_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			source_hash = EXCLUDED.source_hash
	`
	if _, err := execer(ctx, s.db).ExecContext(ctx, query, scanID, payload, snap.SourceHash); err != nil {
		return fmt.Errorf("save site snapshot: %w", err)
	}
	return nil
}

// SaveResults upserts one row per (scan, check).
func (s *PostgresSessionStore) SaveResults(ctx context.Context, scanID string, results []models.ResultWithCheck) error {
	query := `
		INSERT INTO check_results (
			scan_id, check_id, name, category, tier, severity, statute_ref,
			status, score, title, detail, evidence, remediation_steps
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (scan_id, check_id) DO UPDATE SET
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			title = EXCLUDED.title,
			detail = EXCLUDED.detail,
			evidence = EXCLUDED.evidence,
			remediation_steps = EXCLUDED.remediation_steps
	`
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for _, r := range results {
			evidence, err := json.Marshal(r.Evidence)
			if err != nil {
				return fmt.Errorf("marshal evidence for %s: %w", r.CheckID, err)
			}
			_, err = execer(ctx, s.db).ExecContext(ctx, query,
				scanID, r.CheckID, r.Name, string(r.Category), string(r.Tier), string(r.Severity), r.StatuteRef,
				string(r.Status), r.Score, r.Title, r.Detail, evidence, pq.Array(r.RemediationSteps),
			)
			if err != nil {
				return fmt.Errorf("save check result %s: %w", r.CheckID, err)
			}
		}
		return nil
	})
}

func (s *PostgresSessionStore) Finalize(ctx context.Context, session *models.ScanSession) error {
	query := `
		UPDATE scan_sessions SET
			composite_score = $2,
			risk_level = $3,
			checks_total = $4,
			checks_passed = $5,
			checks_failed = $6,
			checks_warned = $7,
			completed_at = $8
		WHERE id = $1
	`
	res, err := execer(ctx, s.db).ExecContext(ctx, query,
		session.ID, session.CompositeScore, string(session.RiskLevel), session.ChecksTotal,
		session.ChecksPassed, session.ChecksFailed, session.ChecksWarned, session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("finalize scan session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresSessionStore) FindByID(ctx context.Context, id string) (*models.ScanSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sentinel.ErrNotFound
	}
	query := `
		SELECT id, npi, url, tier, triggered_by, composite_score, risk_level,
			checks_total, checks_passed, checks_failed, checks_warned, started_at, completed_at
		FROM scan_sessions
		WHERE id = $1
	`
	var (
		session     models.ScanSession
		tier        string
		trigger     string
		riskLevel   sql.NullString
		completedAt sql.NullTime
	)
	err := execer(ctx, s.db).QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.NPI, &session.URL, &tier, &trigger, &session.CompositeScore, &riskLevel,
		&session.ChecksTotal, &session.ChecksPassed, &session.ChecksFailed, &session.ChecksWarned,
		&session.StartedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find scan session: %w", err)
	}
	session.Tier = models.Tier(tier)
	session.TriggeredBy = models.TriggeredBy(trigger)
	session.RiskLevel = models.RiskLevel(riskLevel.String)
	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}

	results, err := s.listResults(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Results = results
	return &session, nil
}

func (s *PostgresSessionStore) listResults(ctx context.Context, scanID string) ([]models.ResultWithCheck, error) {
	query := `
		SELECT check_id, name, category, tier, severity, statute_ref,
			status, score, title, detail, evidence, remediation_steps
		FROM check_results
		WHERE scan_id = $1
		ORDER BY check_id
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("query check results: %w", err)
	}
	defer rows.Close()

	var results []models.ResultWithCheck
	for rows.Next() {
		var (
			r                               models.ResultWithCheck
			category, tier, severity, state string
			evidence                        []byte
			steps                           []string
		)
		if err := rows.Scan(
			&r.CheckID, &r.Name, &category, &tier, &severity, &r.StatuteRef,
			&state, &r.Score, &r.Title, &r.Detail, &evidence, pq.Array(&steps),
		); err != nil {
			return nil, fmt.Errorf("scan check result: %w", err)
		}
		r.Category = models.Category(category)
		r.Tier = models.Tier(tier)
		r.Severity = models.Severity(severity)
		r.Status = models.Status(state)
		r.RemediationSteps = steps
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &r.Evidence); err != nil {
				return nil, fmt.Errorf("unmarshal evidence for %s: %w", r.CheckID, err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check results: %w", err)
	}
	return results, nil
}

// PostgresAlertStore persists mismatch alerts. The partial unique index
// mismatch_alerts_one_open enforces one open alert per (npi, check_id).
type PostgresAlertStore struct {
	db *sql.DB
}

func NewPostgresAlertStore(db *sql.DB) *PostgresAlertStore {
	return &PostgresAlertStore{db: db}
}

const alertColumns = `id, npi, check_id, dimension, severity, status, occurrence_count,
	npi_value, site_value, delta_detail, risk_score, first_seen, last_seen, resolved_at`

func (s *PostgresAlertStore) FindOpen(ctx context.Context, npi, checkID string) (*models.MismatchAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM mismatch_alerts WHERE npi = $1 AND check_id = $2 AND status = 'open'`
	alert, err := scanAlert(execer(ctx, s.db).QueryRowContext(ctx, query, npi, checkID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find open alert: %w", err)
	}
	return alert, nil
}

// Create inserts a new open alert; a second open alert for the same npi and
// check violates mismatch_alerts_one_open and returns ErrConflict.
func (s *PostgresAlertStore) Create(ctx context.Context, alert *models.MismatchAlert) error {
	query := `INSERT INTO mismatch_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		alert.ID, alert.NPI, alert.CheckID, alert.Dimension, string(alert.Severity), string(alert.Status),
		alert.OccurrenceCount, alert.NPIValue, alert.SiteValue, alert.DeltaDetail, alert.RiskScore,
		alert.FirstSeen, alert.LastSeen, alert.ResolvedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert mismatch alert: %w", err)
	}
	return nil
}

// Bump increments occurrence_count in place and refreshes the evidence, only
// while the alert is open. alert.OccurrenceCount is set to the stored value.
func (s *PostgresAlertStore) Bump(ctx context.Context, alert *models.MismatchAlert) error {
	query := `
		UPDATE mismatch_alerts SET
			occurrence_count = occurrence_count + 1,
			npi_value = $2,
			site_value = $3,
			delta_detail = $4,
			risk_score = $5,
			last_seen = $6
		WHERE id = $1 AND status = 'open'
		RETURNING occurrence_count
	`
	err := execer(ctx, s.db).QueryRowContext(ctx, query,
		alert.ID, alert.NPIValue, alert.SiteValue, alert.DeltaDetail, alert.RiskScore, alert.LastSeen,
	).Scan(&alert.OccurrenceCount)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrInvalidState
	}
	if err != nil {
		return fmt.Errorf("bump mismatch alert: %w", err)
	}
	return nil
}

// Resolve closes the alert if it is still open.
func (s *PostgresAlertStore) Resolve(ctx context.Context, alert *models.MismatchAlert) error {
	res, err := execer(ctx, s.db).ExecContext(ctx,
		`UPDATE mismatch_alerts SET status = 'resolved', resolved_at = $2 WHERE id = $1 AND status = 'open'`,
		alert.ID, alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("resolve mismatch alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve mismatch alert: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresAlertStore) ListByNPI(ctx context.Context, npi string, status models.AlertStatus) ([]*models.MismatchAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM mismatch_alerts
		WHERE npi = $1 AND ($2 = '' OR status = $2)
		ORDER BY last_seen DESC`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, npi, string(status))
	if err != nil {
		return nil, fmt.Errorf("query mismatch alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.MismatchAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mismatch alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mismatch alerts: %w", err)
	}
	return alerts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.MismatchAlert, error) {
	var (
		a                models.MismatchAlert
		severity, status string
		resolvedAt       sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.NPI, &a.CheckID, &a.Dimension, &severity, &status, &a.OccurrenceCount,
		&a.NPIValue, &a.SiteValue, &a.DeltaDetail, &a.RiskScore, &a.FirstSeen, &a.LastSeen, &resolvedAt,
	); err != nil {
		return nil, err
	}
	a.Severity = models.Severity(severity)
	a.Status = models.AlertStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

// PostgresScoreStore persists the provider score projection.
type PostgresScoreStore struct {
	db *sql.DB
}

func NewPostgresScoreStore(db *sql.DB) *PostgresScoreStore {
	return &PostgresScoreStore{db: db}
}

// Upsert keeps the newest scan; an older scan finishing late is ignored.
func (s *PostgresScoreStore) Upsert(ctx context.Context, score *models.ProviderScore) error {
	query := `
		INSERT INTO provider_scores (npi, risk_score, risk_level, last_scan_id, last_scan_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (npi) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			risk_level = EXCLUDED.risk_level,
			last_scan_id = EXCLUDED.last_scan_id,
			last_scan_at = EXCLUDED.last_scan_at
		WHERE provider_scores.last_scan_at <= EXCLUDED.last_scan_at
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		score.NPI, score.RiskScore, string(score.RiskLevel), score.LastScanID, score.LastScanAt,
	)
	if err != nil {
		return fmt.Errorf("upsert provider score: %w", err)
	}
	return nil
}

func (s *PostgresScoreStore) FindByNPI(ctx context.Context, npi string) (*models.ProviderScore, error) {
	query := `SELECT npi, risk_score, risk_level, last_scan_id, last_scan_at FROM provider_scores WHERE npi = $1`
	var (
		score models.ProviderScore
		level string
	)
	err := execer(ctx, s.db).QueryRowContext(ctx, query, npi).Scan(
		&score.NPI, &score.RiskScore, &level, &score.LastScanID, &score.LastScanAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find provider score: %w", err)
	}
	score.RiskLevel = models.RiskLevel(level)
	return &score, nil
}
