package handler

import (
	"time"

	"veritas/internal/verification/models"
)

// ScanResponse is the HTTP response for POST /scans and GET /scans/{id}.
type ScanResponse struct {
	ID             string                   `json:"id"`
	NPI            string                   `json:"npi"`
	URL            string                   `json:"url,omitempty"`
	Tier           string                   `json:"tier"`
	TriggeredBy    string                   `json:"triggered_by"`
	CompositeScore int                      `json:"composite_score"`
	RiskLevel      string                   `json:"risk_level,omitempty"`
	ChecksTotal    int                      `json:"checks_total"`
	ChecksPassed   int                      `json:"checks_passed"`
	ChecksFailed   int                      `json:"checks_failed"`
	ChecksWarned   int                      `json:"checks_warned"`
	Results        []models.ResultWithCheck `json:"results"`
	StartedAt      time.Time                `json:"started_at"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
}

// FromSession converts a scan session to its HTTP response.
func FromSession(s *models.ScanSession) *ScanResponse {
	results := s.Results
	if results == nil {
		results = []models.ResultWithCheck{}
	}
	return &ScanResponse{
		ID:             s.ID,
		NPI:            s.NPI,
		URL:            s.URL,
		Tier:           string(s.Tier),
		TriggeredBy:    string(s.TriggeredBy),
		CompositeScore: s.CompositeScore,
		RiskLevel:      string(s.RiskLevel),
		ChecksTotal:    s.ChecksTotal,
		ChecksPassed:   s.ChecksPassed,
		ChecksFailed:   s.ChecksFailed,
		ChecksWarned:   s.ChecksWarned,
		Results:        results,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
}

// AlertListResponse is the HTTP response for GET /providers/{npi}/alerts.
type AlertListResponse struct {
	NPI    string                  `json:"npi"`
	Alerts []*models.MismatchAlert `json:"alerts"`
	Total  int                     `json:"total"`
}

func FromAlerts(npi string, alerts []*models.MismatchAlert) *AlertListResponse {
	if alerts == nil {
		alerts = []*models.MismatchAlert{}
	}
	return &AlertListResponse{NPI: npi, Alerts: alerts, Total: len(alerts)}
}
