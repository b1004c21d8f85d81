package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veritas/internal/verification/models"
	"veritas/internal/verification/service"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Service defines the interface for scan operations.
type Service interface {
	RunScan(ctx context.Context, req service.ScanRequest) (*models.ScanSession, error)
	GetScan(ctx context.Context, id string) (*models.ScanSession, error)
	ListAlerts(ctx context.Context, npi string, status models.AlertStatus) ([]*models.MismatchAlert, error)
	CurrentScore(ctx context.Context, npi string) (*models.ProviderScore, error)
}

// Handler wires scan endpoints to the scan orchestrator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a scan handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts scan endpoints on the router. Callers mount it behind the
// admin token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/scans", h.HandleRunScan)
	r.Get("/scans/{id}", h.HandleGetScan)
	r.Get("/providers/{npi}/alerts", h.HandleListAlerts)
	r.Get("/providers/{npi}/score", h.HandleCurrentScore)
}

// HandleRunScan handles POST /scans.
func (h *Handler) HandleRunScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RunScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.RunScan(ctx, service.ScanRequest{
		NPI:         req.NPI,
		URL:         req.URL,
		Tier:        req.ParsedTier(),
		TriggeredBy: req.ParsedTrigger(),
		Snapshot:    req.Snapshot,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "scan failed",
			"request_id", requestID,
			"npi", req.NPI,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "scan served",
		"request_id", requestID,
		"scan_id", session.ID,
		"npi", session.NPI,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSession(session))
}

// HandleGetScan handles GET /scans/{id}.
func (h *Handler) HandleGetScan(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetScan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session))
}

// HandleListAlerts handles GET /providers/{npi}/alerts?status=open|resolved.
func (h *Handler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	npi := chi.URLParam(r, "npi")
	status := models.AlertStatus(r.URL.Query().Get("status"))
	alerts, err := h.service.ListAlerts(r.Context(), npi, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAlerts(npi, alerts))
}

// HandleCurrentScore handles GET /providers/{npi}/score.
func (h *Handler) HandleCurrentScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.service.CurrentScore(r.Context(), chi.URLParam(r, "npi"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}
