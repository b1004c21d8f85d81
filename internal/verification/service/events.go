package service

import (
	"context"
	"time"

	"veritas/internal/verification/models"
	"veritas/pkg/platform/outbox"
)

type scanCompletedPayload struct {
	ScanID         string    `json:"scan_id"`
	NPI            string    `json:"npi"`
	Tier           string    `json:"tier"`
	TriggeredBy    string    `json:"triggered_by"`
	CompositeScore int       `json:"composite_score"`
	RiskLevel      string    `json:"risk_level"`
	CompletedAt    time.Time `json:"completed_at"`
}

type alertEventPayload struct {
	AlertID         string     `json:"alert_id"`
	NPI             string     `json:"npi"`
	CheckID         string     `json:"check_id"`
	Dimension       string     `json:"dimension"`
	Severity        string     `json:"severity"`
	OccurrenceCount int        `json:"occurrence_count"`
	NPIValue        string     `json:"npi_value,omitempty"`
	SiteValue       string     `json:"site_value,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

func alertPayload(a *models.MismatchAlert) alertEventPayload {
	return alertEventPayload{
		AlertID:         a.ID,
		NPI:             a.NPI,
		CheckID:         a.CheckID,
		Dimension:       a.Dimension,
		Severity:        string(a.Severity),
		OccurrenceCount: a.OccurrenceCount,
		NPIValue:        a.NPIValue,
		SiteValue:       a.SiteValue,
		ResolvedAt:      a.ResolvedAt,
	}
}

// publish appends an outbox event. Publishing is best effort: failures are
// logged and counted, never returned.
func (s *Service) publish(ctx context.Context, eventType, aggregateType, aggregateID string, payload any) {
	if s.outbox == nil {
		return
	}
	event, err := outbox.NewEvent(eventType, aggregateType, aggregateID, payload, s.clock())
	if err == nil {
		err = s.outbox.Append(ctx, event)
	}
	if err != nil {
		s.metrics.IncrementPersistFailure("outbox")
		s.logger.ErrorContext(ctx, "failed to append outbox event",
			"event_type", eventType,
			"aggregate_id", aggregateID,
			"error", err,
		)
	}
}
