package handler

import (
	"fmt"
	"strings"
	"time"

	"veritas/internal/drift/models"
	"veritas/internal/drift/service"
	vmodels "veritas/internal/verification/models"
	dErrors "veritas/pkg/domain-errors"
)

const maxPageURLLength = 2048

func validatePage(npi, pageURL *string) error {
	parsed, err := vmodels.ParseNPI(*npi)
	if err != nil {
		return err
	}
	*npi = parsed
	*pageURL = strings.TrimSpace(*pageURL)
	if len(*pageURL) > maxPageURLLength {
		return dErrors.New(dErrors.CodeValidation, "page_url must be at most 2048 characters")
	}
	return nil
}

// BaselineRequest is the body of POST /widget/baseline.
type BaselineRequest struct {
	NPI        string                             `json:"npi"`
	PageURL    string                             `json:"page_url"`
	Framework  string                             `json:"framework"`
	Categories map[string]service.CategoryContent `json:"categories"`
}

func (r *BaselineRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := validatePage(&r.NPI, &r.PageURL); err != nil {
		return err
	}
	if len(r.Categories) == 0 {
		return dErrors.New(dErrors.CodeValidation, "categories are required")
	}
	return nil
}

func (r *BaselineRequest) ToService() service.BaselineRequest {
	categories := make(map[models.Category]service.CategoryContent, len(r.Categories))
	for k, v := range r.Categories {
		categories[models.Category(k)] = v
	}
	return service.BaselineRequest{
		NPI:        r.NPI,
		PageURL:    r.PageURL,
		Framework:  r.Framework,
		Categories: categories,
	}
}

// HeartbeatRequest is the body of POST /widget/heartbeat.
type HeartbeatRequest struct {
	NPI            string            `json:"npi"`
	PageURL        string            `json:"page_url"`
	WidgetMode     string            `json:"widget_mode"`
	CategoryHashes map[string]string `json:"category_hashes"`
	Timestamp      *time.Time        `json:"timestamp"`
}

func (r *HeartbeatRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return validatePage(&r.NPI, &r.PageURL)
}

func (r *HeartbeatRequest) ToService() service.HeartbeatRequest {
	req := service.HeartbeatRequest{
		NPI:        r.NPI,
		PageURL:    r.PageURL,
		WidgetMode: r.WidgetMode,
	}
	if len(r.CategoryHashes) > 0 {
		req.CategoryHashes = make(map[models.Category]string, len(r.CategoryHashes))
		for k, v := range r.CategoryHashes {
			req.CategoryHashes[models.Category(k)] = v
		}
	}
	if r.Timestamp != nil {
		req.Timestamp = r.Timestamp.UTC()
	}
	return req
}

// DriftItem is one entry of a drift report.
type DriftItem struct {
	Category      string `json:"category"`
	DriftType     string `json:"drift_type"`
	PreviousHash  string `json:"previous_hash"`
	CurrentHash   string `json:"current_hash"`
	ContentBefore string `json:"content_before"`
	ContentAfter  string `json:"content_after"`
}

// DriftReportRequest is the body of POST /widget/drift.
type DriftReportRequest struct {
	NPI        string      `json:"npi"`
	PageURL    string      `json:"page_url"`
	WidgetMode string      `json:"widget_mode"`
	UserAgent  string      `json:"user_agent"`
	Timestamp  *time.Time  `json:"timestamp"`
	Drifts     []DriftItem `json:"drifts"`
}

func (r *DriftReportRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := validatePage(&r.NPI, &r.PageURL); err != nil {
		return err
	}
	if len(r.Drifts) == 0 {
		return dErrors.New(dErrors.CodeValidation, "npi and drifts array required")
	}
	for i, d := range r.Drifts {
		if strings.TrimSpace(d.Category) == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("drifts[%d].category is required", i))
		}
	}
	return nil
}

func (r *DriftReportRequest) ToService(fallbackUserAgent string) service.DriftReport {
	report := service.DriftReport{
		NPI:        r.NPI,
		PageURL:    r.PageURL,
		WidgetMode: r.WidgetMode,
		UserAgent:  r.UserAgent,
		Drifts:     make([]service.DriftItem, 0, len(r.Drifts)),
	}
	if report.UserAgent == "" {
		report.UserAgent = fallbackUserAgent
	}
	if r.Timestamp != nil {
		report.Timestamp = r.Timestamp.UTC()
	}
	for _, d := range r.Drifts {
		report.Drifts = append(report.Drifts, service.DriftItem{
			Category:      models.Category(strings.TrimSpace(d.Category)),
			DriftType:     d.DriftType,
			PreviousHash:  d.PreviousHash,
			CurrentHash:   d.CurrentHash,
			ContentBefore: d.ContentBefore,
			ContentAfter:  d.ContentAfter,
		})
	}
	return report
}

// TransitionRequest is the body of PATCH /drift/events/{id}.
type TransitionRequest struct {
	Status     string `json:"status"`
	ResolvedBy string `json:"resolved_by"`

	parsedStatus models.EventStatus
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	if status == models.StatusNew {
		return dErrors.New(dErrors.CodeValidation, "status must be one of: acknowledged, resolved, false_positive")
	}
	r.parsedStatus = status
	r.ResolvedBy = strings.TrimSpace(r.ResolvedBy)
	return nil
}

func (r *TransitionRequest) ParsedStatus() models.EventStatus {
	return r.parsedStatus
}
