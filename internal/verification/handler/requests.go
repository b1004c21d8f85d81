package handler

import (
	"strings"

	"veritas/internal/verification/models"
	dErrors "veritas/pkg/domain-errors"
)

// RunScanRequest is the HTTP request body for POST /scans.
type RunScanRequest struct {
	NPI         string               `json:"npi"`
	URL         string               `json:"url"`
	Tier        string               `json:"tier"`
	TriggeredBy string               `json:"triggered_by"`
	Snapshot    *models.SiteSnapshot `json:"snapshot,omitempty"`

	parsedTier    models.Tier
	parsedTrigger models.TriggeredBy
}

// Validate implements httputil.Validatable.
func (r *RunScanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.URL) > 2048 {
		return dErrors.New(dErrors.CodeValidation, "url must be at most 2048 characters")
	}

	npi, err := models.ParseNPI(r.NPI)
	if err != nil {
		return err
	}
	r.NPI = npi
	r.URL = strings.TrimSpace(r.URL)

	if strings.TrimSpace(r.Tier) == "" {
		r.Tier = string(models.TierFree)
	}
	tier, err := models.ParseTier(r.Tier)
	if err != nil {
		return err
	}
	r.parsedTier = tier

	trigger, err := models.ParseTriggeredBy(r.TriggeredBy)
	if err != nil {
		return err
	}
	r.parsedTrigger = trigger
	return nil
}

func (r *RunScanRequest) ParsedTier() models.Tier {
	return r.parsedTier
}

func (r *RunScanRequest) ParsedTrigger() models.TriggeredBy {
	return r.parsedTrigger
}
