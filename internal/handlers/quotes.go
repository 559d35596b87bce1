package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/orderforge/pricing-api/internal/domain"
	"github.com/orderforge/pricing-api/internal/platform/httpx"
	"github.com/orderforge/pricing-api/internal/platform/observability"
	"github.com/orderforge/pricing-api/internal/platform/requestctx"
	"github.com/orderforge/pricing-api/internal/repositories"
	"github.com/orderforge/pricing-api/internal/services"
)

const maxQuoteBodySize = 64 * 1024

// QuoteHandlers exposes the order pricing engine over HTTP.
type QuoteHandlers struct {
	pricing services.OrderPricingService
	rules   repositories.RuleRepository
	idGen   func() string
}

// QuoteOption customises the handlers.
type QuoteOption func(*QuoteHandlers)

// WithQuoteIDGenerator overrides quote id generation, primarily for tests.
func WithQuoteIDGenerator(idGen func() string) QuoteOption {
	return func(h *QuoteHandlers) {
		if idGen != nil {
			h.idGen = idGen
		}
	}
}

// NewQuoteHandlers wires the pricing service and rule repository into HTTP handlers.
func NewQuoteHandlers(pricing services.OrderPricingService, rules repositories.RuleRepository, opts ...QuoteOption) *QuoteHandlers {
	handlers := &QuoteHandlers{
		pricing: pricing,
		rules:   rules,
		idGen:   func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handlers)
		}
	}
	return handlers
}

// Routes mounts the quote endpoints on the router group.
func (h *QuoteHandlers) Routes(r chi.Router) {
	if h == nil {
		return
	}
	r.Post("/quotes", h.createQuote)
}

type quoteCustomerPayload struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Type      string `json:"type"`
}

type quoteDestinationPayload struct {
	CountryCode string `json:"country_code"`
	StateCode   string `json:"state_code"`
	ZipCode     string `json:"zip_code"`
}

type quoteLinePayload struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id"`
	Quantity    int    `json:"quantity"`
	BasePrice   int64  `json:"base_price"`
	WeightGrams int    `json:"weight_grams"`
}

type createQuoteRequest struct {
	Currency    string                  `json:"currency"`
	Customer    quoteCustomerPayload    `json:"customer"`
	Destination quoteDestinationPayload `json:"destination"`
	Lines       []quoteLinePayload      `json:"lines"`
}

type quoteLineItemPayload struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

type quoteTaxLinePayload struct {
	Name   string `json:"name"`
	RateBp int64  `json:"rate_bp"`
	Amount int64  `json:"amount"`
}

type quotePayload struct {
	ID               string                 `json:"id"`
	Currency         string                 `json:"currency"`
	LineItems        []quoteLineItemPayload `json:"line_items"`
	Subtotal         int64                  `json:"subtotal"`
	ShippingCost     int64                  `json:"shipping_cost"`
	ShippingMethodID *string                `json:"shipping_method_id,omitempty"`
	TaxLines         []quoteTaxLinePayload  `json:"tax_lines"`
	TaxTotal         int64                  `json:"tax_total"`
	GrandTotal       int64                  `json:"grand_total"`
	RulesLoadedAt    string                 `json:"rules_loaded_at"`
}

type createQuoteResponse struct {
	Quote quotePayload `json:"quote"`
}

func (h *QuoteHandlers) createQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pricing == nil || h.rules == nil {
		httpx.WriteError(ctx, w, httpx.NewError("pricing_unavailable", "pricing service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxQuoteBodySize)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req createQuoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if err := validateQuoteRequest(req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	snapshot, err := h.rules.LoadSnapshot(ctx)
	if err != nil {
		h.writeQuoteError(ctx, w, err)
		return
	}

	spanCtx, span := observability.StartSpan(ctx, "pricing.price_order",
		attribute.Int("cart.lines", len(req.Lines)),
	)
	result, err := h.pricing.PriceOrder(spanCtx, services.PriceOrderCommand{
		Cart:        buildCart(req),
		Customer:    buildCustomer(req.Customer),
		Destination: buildDestination(req.Destination),
		Snapshot:    snapshot,
	})
	span.End()
	if err != nil {
		h.writeQuoteError(ctx, w, err)
		return
	}

	if result.ShippingMethodID == nil {
		requestctx.Logger(ctx).Info("no shipping rate matched, quoting zero shipping",
			zap.String("country_code", req.Destination.CountryCode),
		)
	}

	writeJSONResponse(w, http.StatusOK, createQuoteResponse{
		Quote: buildQuotePayload(h.idGen(), result, snapshot.LoadedAt),
	})
}

func (h *QuoteHandlers) writeQuoteError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderPricingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, repositories.ErrSnapshotUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("rules_unavailable", "pricing rules are unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_timeout", "request cancelled", http.StatusGatewayTimeout))
	default:
		requestctx.Logger(ctx).Error("quote creation failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_server_error", "failed to create quote", http.StatusInternalServerError))
	}
}

func validateQuoteRequest(req createQuoteRequest) error {
	if len(strings.TrimSpace(req.Currency)) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	if len(req.Lines) == 0 {
		return errors.New("at least one line is required")
	}
	if strings.TrimSpace(req.Destination.CountryCode) == "" {
		return errors.New("destination country code is required")
	}
	customerType := domain.CustomerType(strings.TrimSpace(req.Customer.Type))
	switch customerType {
	case "", domain.CustomerTypeB2C, domain.CustomerTypeB2B:
	default:
		return errors.New("customer type must be b2c or b2b")
	}
	return nil
}

func buildCart(req createQuoteRequest) domain.Cart {
	lines := make([]domain.CartLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, domain.CartLine{
			ProductID:   strings.TrimSpace(line.ProductID),
			VariantID:   strings.TrimSpace(line.VariantID),
			Quantity:    line.Quantity,
			BasePrice:   line.BasePrice,
			WeightGrams: line.WeightGrams,
		})
	}
	return domain.Cart{
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		Lines:    lines,
	}
}

func buildCustomer(payload quoteCustomerPayload) domain.Customer {
	customerType := domain.CustomerType(strings.TrimSpace(payload.Type))
	if customerType == "" {
		customerType = domain.CustomerTypeB2C
	}
	return domain.Customer{
		ID:        strings.TrimSpace(payload.ID),
		CompanyID: strings.TrimSpace(payload.CompanyID),
		Type:      customerType,
	}
}

func buildDestination(payload quoteDestinationPayload) domain.Destination {
	return domain.Destination{
		CountryCode: payload.CountryCode,
		StateCode:   payload.StateCode,
		ZipCode:     payload.ZipCode,
	}
}

func buildQuotePayload(id string, result domain.OrderPricingResult, loadedAt time.Time) quotePayload {
	lineItems := make([]quoteLineItemPayload, 0, len(result.LineItems))
	for _, item := range result.LineItems {
		lineItems = append(lineItems, quoteLineItemPayload{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	taxLines := make([]quoteTaxLinePayload, 0, len(result.TaxLines))
	for _, line := range result.TaxLines {
		taxLines = append(taxLines, quoteTaxLinePayload{
			Name:   line.Name,
			RateBp: line.RateBp,
			Amount: line.Amount,
		})
	}
	return quotePayload{
		ID:               id,
		Currency:         result.Currency,
		LineItems:        lineItems,
		Subtotal:         result.Subtotal,
		ShippingCost:     result.ShippingCost,
		ShippingMethodID: result.ShippingMethodID,
		TaxLines:         taxLines,
		TaxTotal:         result.TaxTotal,
		GrandTotal:       result.GrandTotal,
		RulesLoadedAt:    loadedAt.UTC().Format(time.RFC3339Nano),
	}
}
