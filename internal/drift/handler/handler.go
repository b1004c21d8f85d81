package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"veritas/internal/drift/models"
	"veritas/internal/drift/service"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/drift-mocks.go -package=mocks Service

// Service defines the drift operations the HTTP layer needs.
type Service interface {
	RefreshBaselines(ctx context.Context, req service.BaselineRequest) (int, error)
	GetBaselines(ctx context.Context, npi, pageURL string) (*service.BaselineSet, error)
	RecordHeartbeat(ctx context.Context, req service.HeartbeatRequest) (*service.IngestResult, error)
	ReportDrift(ctx context.Context, report service.DriftReport) (*service.IngestResult, error)
	ListEvents(ctx context.Context, filter models.EventFilter) (*service.EventPage, error)
	TransitionEvent(ctx context.Context, id string, to models.EventStatus, resolvedBy string) (*models.Event, error)
	BulkResolve(ctx context.Context, npi, resolvedBy string) (int, error)
	Dashboard(ctx context.Context, npi string) (*service.Dashboard, error)
}

// Handler serves widget ingestion and drift administration.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterPublic mounts the endpoints the embedded widget calls.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/widget/baseline", h.HandleGetBaselines)
	r.Post("/widget/heartbeat", h.HandleHeartbeat)
	r.Post("/widget/drift", h.HandleReportDrift)
}

// RegisterAdmin mounts operator endpoints. Callers put them behind the admin
// token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/widget/baseline", h.HandleRefreshBaselines)
	r.Get("/drift/events", h.HandleListEvents)
	r.Patch("/drift/events/{id}", h.HandleTransitionEvent)
	r.Post("/drift/providers/{npi}/resolve", h.HandleBulkResolve)
	r.Get("/shield/dashboard", h.HandleDashboard)
}

// HandleGetBaselines handles GET /widget/baseline?npi=&page_url=.
func (h *Handler) HandleGetBaselines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	set, err := h.service.GetBaselines(r.Context(), q.Get("npi"), q.Get("page_url"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if set == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"baselines": nil,
			"message":   "No baseline exists yet",
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, set)
}

// HandleRefreshBaselines handles POST /widget/baseline.
func (h *Handler) HandleRefreshBaselines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BaselineRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	n, err := h.service.RefreshBaselines(ctx, req.ToService())
	if err != nil {
		h.logger.ErrorContext(ctx, "baseline refresh failed",
			"request_id", requestID,
			"npi", req.NPI,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	pageURL := req.PageURL
	if pageURL == "" {
		pageURL = models.DefaultPageURL
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"upserted": n,
		"npi":      req.NPI,
		"page_url": pageURL,
	})
}

// HandleHeartbeat handles POST /widget/heartbeat.
func (h *Handler) HandleHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[HeartbeatRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.RecordHeartbeat(ctx, req.ToService())
	if err != nil {
		h.logger.ErrorContext(ctx, "heartbeat failed",
			"request_id", requestID,
			"npi", req.NPI,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ingestResponse(result))
}

// HandleReportDrift handles POST /widget/drift.
func (h *Handler) HandleReportDrift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DriftReportRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.ReportDrift(ctx, req.ToService(requestcontext.UserAgent(ctx)))
	if err != nil {
		h.logger.ErrorContext(ctx, "drift report failed",
			"request_id", requestID,
			"npi", req.NPI,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ingestResponse(result))
}

func ingestResponse(result *service.IngestResult) map[string]any {
	return map[string]any{
		"ok":           true,
		"inserted":     result.Inserted,
		"deduplicated": result.Deduplicated,
		"ids":          result.IDs,
	}
}

// HandleListEvents handles GET /drift/events?npi=&status=&severity=&limit=&offset=.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.EventFilter{NPI: q.Get("npi")}
	if v := q.Get("status"); v != "" {
		status, err := models.ParseStatus(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	if v := q.Get("severity"); v != "" {
		severity, err := models.ParseSeverity(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Severity = severity
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.ListEvents(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "limit and offset must be non-negative integers")
	}
	return n, nil
}

// HandleTransitionEvent handles PATCH /drift/events/{id}.
func (h *Handler) HandleTransitionEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	event, err := h.service.TransitionEvent(ctx, id, req.ParsedStatus(), req.ResolvedBy)
	if err != nil {
		h.logger.WarnContext(ctx, "drift event transition rejected",
			"request_id", requestID,
			"event_id", id,
			"status", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "event": event})
}

// HandleBulkResolve handles POST /drift/providers/{npi}/resolve?resolved_by=.
func (h *Handler) HandleBulkResolve(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.BulkResolve(r.Context(), chi.URLParam(r, "npi"), r.URL.Query().Get("resolved_by"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "resolved": n})
}

// HandleDashboard handles GET /shield/dashboard?npi=.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context(), r.URL.Query().Get("npi"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dash)
}
