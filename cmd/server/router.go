package main

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	drifthandler "veritas/internal/drift/handler"
	"veritas/internal/platform/metrics"
	verificationhandler "veritas/internal/verification/handler"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/platform/middleware/admin"
	"veritas/pkg/platform/middleware/metadata"
	request "veritas/pkg/platform/middleware/request"
	"veritas/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

type routerDeps struct {
	adminToken   string
	logger       *slog.Logger
	metrics      *metrics.Metrics
	verification *verificationhandler.Handler
	drift        *drifthandler.Handler
	health       map[string]func(context.Context) error
}

// newRouter mounts public widget routes, admin routes behind the operator
// token, and the health and metrics endpoints.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimw.Recoverer)
	r.Use(d.metrics.Middleware)

	r.Get("/health", healthHandler(d.health))
	r.Handle("/metrics", metrics.Handler())

	d.drift.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(d.adminToken, d.logger))
		d.verification.Register(r)
		d.drift.RegisterAdmin(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
