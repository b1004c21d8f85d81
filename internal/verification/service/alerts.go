package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"veritas/internal/verification/models"
	"veritas/pkg/platform/outbox"
	"veritas/pkg/platform/sentinel"
)

// reconcileAlerts keeps mismatch alerts in step with the latest npi-integrity
// results: mismatches open or bump, passes resolve, inconclusive results leave
// any open alert untouched.
func (s *Service) reconcileAlerts(ctx context.Context, session *models.ScanSession, results []models.ResultWithCheck) {
	now := *session.CompletedAt
	for _, r := range results {
		if r.Category != models.CategoryNPIIntegrity {
			continue
		}
		var err error
		switch {
		case r.Status.IsMismatch():
			open := func(ctx context.Context) error {
				return s.openOrBump(ctx, session.NPI, r, now)
			}
			err = s.tx.RunInTx(ctx, open)
			if errors.Is(err, sentinel.ErrConflict) {
				// A concurrent scan opened it first; the retry bumps theirs.
				err = s.tx.RunInTx(ctx, open)
			}
		case r.Status == models.StatusPass:
			err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
				return s.resolveOpen(ctx, session.NPI, r.CheckID, now)
			})
		}
		if err != nil {
			s.persistFailed(ctx, "alerts", session.ID, fmt.Errorf("%s: %w", r.CheckID, err))
		}
	}
}

func (s *Service) openOrBump(ctx context.Context, npi string, r models.ResultWithCheck, now time.Time) error {
	existing, err := s.alerts.FindOpen(ctx, npi, r.CheckID)
	switch {
	case err == nil:
		existing.Bump(r, now)
		err = s.alerts.Bump(ctx, existing)
		if !errors.Is(err, sentinel.ErrInvalidState) {
			return err
		}
		// Resolved by a concurrent scan since the read: this mismatch is a
		// regression and gets a fresh alert.
	case !errors.Is(err, sentinel.ErrNotFound):
		return err
	}

	alert := models.NewMismatchAlert(s.newID(), npi, r, now)
	if err := s.alerts.Create(ctx, alert); err != nil {
		return err
	}

	s.metrics.IncrementAlertOpened(alert.Dimension)
	s.publish(ctx, outbox.TypeAlertOpened, "mismatch_alert", alert.ID, alertPayload(alert))
	return nil
}

func (s *Service) resolveOpen(ctx context.Context, npi, checkID string, now time.Time) error {
	existing, err := s.alerts.FindOpen(ctx, npi, checkID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	existing.Resolve(now)
	err = s.alerts.Resolve(ctx, existing)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil
	}
	if err != nil {
		return err
	}
	s.metrics.IncrementAlertResolved(existing.Dimension)
	s.publish(ctx, outbox.TypeAlertResolved, "mismatch_alert", existing.ID, alertPayload(existing))
	return nil
}
