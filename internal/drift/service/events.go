package service

import (
	"context"
	"sort"
	"time"

	"github.com/mssola/useragent"

	"veritas/internal/drift/models"
	"veritas/pkg/platform/outbox"
)

type driftAlertPayload struct {
	EventID        string    `json:"event_id"`
	NPI            string    `json:"npi"`
	PageURL        string    `json:"page_url"`
	Category       string    `json:"category"`
	CategoryLabel  string    `json:"category_label"`
	DriftType      string    `json:"drift_type"`
	DriftTypeLabel string    `json:"drift_type_label"`
	Severity       string    `json:"severity"`
	Summary        string    `json:"summary"`
	CreatedAt      time.Time `json:"created_at"`
}

// publishAlert appends a drift.alert event. Delivery is left to consumers of
// the outbox topic; failures here are logged, never returned.
func (s *Service) publishAlert(ctx context.Context, e *models.Event) {
	if s.outbox == nil {
		return
	}
	payload := driftAlertPayload{
		EventID:        e.ID,
		NPI:            e.NPI,
		PageURL:        e.PageURL,
		Category:       string(e.Category),
		CategoryLabel:  e.Category.Label(),
		DriftType:      string(e.DriftType),
		DriftTypeLabel: e.DriftType.Label(),
		Severity:       string(e.Severity),
		Summary:        e.Category.Label() + " " + e.DriftType.Label() + " on " + e.PageURL,
		CreatedAt:      e.CreatedAt,
	}
	event, err := outbox.NewEvent(outbox.TypeDriftAlert, "drift_event", e.ID, payload, s.now(ctx))
	if err == nil {
		err = s.outbox.Append(ctx, event)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to append drift alert",
			"event_id", e.ID,
			"npi", e.NPI,
			"error", err,
		)
		return
	}
	s.logger.WarnContext(ctx, "drift alert raised",
		"npi", e.NPI,
		"category", e.Category,
		"drift_type", e.DriftType,
		"severity", e.Severity,
		"page_url", e.PageURL,
	)
}

// clientMetadata truncates the reporting browser's user agent and parses it
// for display.
func clientMetadata(raw string) models.EventMetadata {
	raw = models.Truncate(raw, models.MaxUserAgentLength)
	meta := models.EventMetadata{UserAgent: raw}
	if raw == "" {
		return meta
	}
	ua := useragent.New(raw)
	meta.Browser, meta.BrowserVersion = ua.Browser()
	meta.OS = ua.OS()
	meta.Mobile = ua.Mobile()
	meta.Bot = ua.Bot()
	return meta
}

func sortedCategories(m map[models.Category]string) []models.Category {
	out := make([]models.Category, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
