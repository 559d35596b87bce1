package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/orderforge/pricing-api/internal/platform/httpx"
	"github.com/orderforge/pricing-api/internal/platform/requestctx"
	"github.com/orderforge/pricing-api/internal/repositories"
)

// RuleAdminHandlers exposes internal rule cache management endpoints.
type RuleAdminHandlers struct {
	rules repositories.RuleRepository
}

// NewRuleAdminHandlers constructs the internal rule handlers.
func NewRuleAdminHandlers(rules repositories.RuleRepository) *RuleAdminHandlers {
	return &RuleAdminHandlers{rules: rules}
}

// Routes mounts the internal rule endpoints on the router group.
func (h *RuleAdminHandlers) Routes(r chi.Router) {
	if h == nil {
		return
	}
	r.Post("/rules/refresh", h.refreshRules)
}

type refreshRulesResponse struct {
	PricingRules  int    `json:"pricing_rules"`
	TaxRules      int    `json:"tax_rules"`
	ShippingZones int    `json:"shipping_zones"`
	LoadedAt      string `json:"loaded_at"`
}

// refreshRules drops the cached rule snapshot and loads a fresh one so rule
// edits take effect without waiting for the cache TTL.
func (h *RuleAdminHandlers) refreshRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.rules == nil {
		httpx.WriteError(ctx, w, httpx.NewError("rules_unavailable", "rule repository is unavailable", http.StatusServiceUnavailable))
		return
	}

	h.rules.Invalidate()
	snapshot, err := h.rules.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrSnapshotUnavailable) {
			httpx.WriteError(ctx, w, httpx.NewError("rules_unavailable", "failed to reload pricing rules", http.StatusServiceUnavailable))
			return
		}
		requestctx.Logger(ctx).Error("rule refresh failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to reload pricing rules", http.StatusInternalServerError))
		return
	}

	requestctx.Logger(ctx).Info("rule snapshot refreshed",
		zap.Int("pricing_rules", len(snapshot.PricingRules)),
		zap.Int("tax_rules", len(snapshot.TaxRules)),
		zap.Int("shipping_zones", len(snapshot.ShippingZones)),
	)

	writeJSONResponse(w, http.StatusOK, refreshRulesResponse{
		PricingRules:  len(snapshot.PricingRules),
		TaxRules:      len(snapshot.TaxRules),
		ShippingZones: len(snapshot.ShippingZones),
		LoadedAt:      snapshot.LoadedAt.UTC().Format(time.RFC3339Nano),
	})
}
