package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderforge/pricing-api/internal/platform/httpx"
	"github.com/orderforge/pricing-api/internal/repositories"
)

// HealthHandlers exposes liveness and readiness probes.
type HealthHandlers struct {
	checker *repositories.HealthChecker
}

// NewHealthHandlers constructs the health endpoints. A nil checker leaves
// readyz reporting ok, which suits tests and local runs without dependencies.
func NewHealthHandlers(checker *repositories.HealthChecker) *HealthHandlers {
	return &HealthHandlers{checker: checker}
}

// Routes mounts the probes on the router.
func (h *HealthHandlers) Routes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
}

func (h *HealthHandlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandlers) readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checker == nil {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	report := h.checker.Collect(ctx)
	if report.Status == repositories.HealthStatusError {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "dependency checks failed", http.StatusServiceUnavailable).
			WithDetails(map[string]any{"checks": report.Checks}))
		return
	}
	writeJSONResponse(w, http.StatusOK, report)
}
