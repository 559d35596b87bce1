package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/orderforge/pricing-api/internal/domain"
)

// ErrOrderPricingInvalidInput signals bad request data such as non-positive
// quantities or negative base prices.
var ErrOrderPricingInvalidInput = errors.New("order pricing: invalid input")

// OrderPricingEngine sequences the price, shipping, and tax resolvers into
// one order pricing result. It holds no mutable state: every call operates
// only on the snapshot the caller passes in, so concurrent calls need no
// coordination.
type OrderPricingEngine struct {
	now    func() time.Time
	logger *zap.Logger
}

// OrderPricingEngineDeps collects the injectable collaborators of the engine.
type OrderPricingEngineDeps struct {
	Now    func() time.Time
	Logger *zap.Logger
}

// NewOrderPricingEngine constructs the engine, defaulting the clock to
// time.Now and the logger to a no-op instance.
func NewOrderPricingEngine(deps OrderPricingEngineDeps) (*OrderPricingEngine, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderPricingEngine{
		now:    func() time.Time { return now().UTC() },
		logger: logger,
	}, nil
}

// PriceOrderCommand carries one pricing invocation: the cart to price, who it
// is for, where it ships, and the rule snapshot fetched by the caller.
type PriceOrderCommand struct {
	Cart        domain.Cart
	Customer    domain.Customer
	Destination domain.Destination
	Snapshot    domain.RuleSnapshot
}

// PriceOrder computes the full monetary breakdown of an order: per-line unit
// prices, subtotal, shipping cost, stacked tax, and grand total.
//
// Every lookup degrades to a well-defined default on no match (base price,
// zero shipping, zero tax); the only error condition is malformed cart input.
// The result is assembled fresh per call and owned by the caller.
func (e *OrderPricingEngine) PriceOrder(ctx context.Context, cmd PriceOrderCommand) (domain.OrderPricingResult, error) {
	if err := validateCart(cmd.Cart); err != nil {
		return domain.OrderPricingResult{}, err
	}

	now := e.now()
	lineItems := make([]domain.ResolvedLineItem, 0, len(cmd.Cart.Lines))
	var (
		subtotal    int64
		totalWeight int64
	)
	for _, line := range cmd.Cart.Lines {
		unitPrice := ResolveUnitPrice(PriceRequest{
			ProductID:  line.ProductID,
			VariantID:  line.VariantID,
			BasePrice:  line.BasePrice,
			Quantity:   line.Quantity,
			CustomerID: cmd.Customer.ID,
			CompanyID:  cmd.Customer.CompanyID,
			Now:        now,
		}, cmd.Snapshot.PricingRules)

		quantity := int64(line.Quantity)
		if unitPrice > 0 && unitPrice > math.MaxInt64/quantity {
			return domain.OrderPricingResult{}, fmt.Errorf("%w: line %s total overflow", ErrOrderPricingInvalidInput, line.ProductID)
		}
		lineTotal := unitPrice * quantity
		if subtotal > math.MaxInt64-lineTotal {
			return domain.OrderPricingResult{}, fmt.Errorf("%w: subtotal overflow", ErrOrderPricingInvalidInput)
		}
		subtotal += lineTotal

		weight := int64(line.WeightGrams) * quantity
		if totalWeight > math.MaxInt64-weight {
			totalWeight = math.MaxInt64
		} else {
			totalWeight += weight
		}

		lineItems = append(lineItems, domain.ResolvedLineItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
	}

	var (
		shippingCost     int64
		shippingMethodID *string
	)
	if rate := ResolveShippingRate(cmd.Destination.CountryCode, totalWeight, subtotal, cmd.Snapshot.ShippingZones); rate != nil {
		shippingCost = rate.Cost
		methodID := rate.MethodID
		shippingMethodID = &methodID
	}

	tax := ResolveTax(subtotal, shippingCost, cmd.Destination, cmd.Snapshot.TaxRules)

	e.logger.Debug("order priced",
		zap.Int("lines", len(lineItems)),
		zap.Int64("subtotal", subtotal),
		zap.Int64("shipping", shippingCost),
		zap.Int64("tax", tax.Total),
	)

	return domain.OrderPricingResult{
		Currency:         cmd.Cart.Currency,
		LineItems:        lineItems,
		Subtotal:         subtotal,
		ShippingCost:     shippingCost,
		ShippingMethodID: shippingMethodID,
		TaxLines:         tax.Lines,
		TaxTotal:         tax.Total,
		GrandTotal:       subtotal + shippingCost + tax.Total,
	}, nil
}

func validateCart(cart domain.Cart) error {
	for _, line := range cart.Lines {
		if line.ProductID == "" {
			return fmt.Errorf("%w: line product id is required", ErrOrderPricingInvalidInput)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %s quantity must be positive", ErrOrderPricingInvalidInput, line.ProductID)
		}
		if line.BasePrice < 0 {
			return fmt.Errorf("%w: line %s base price cannot be negative", ErrOrderPricingInvalidInput, line.ProductID)
		}
		if line.WeightGrams < 0 {
			return fmt.Errorf("%w: line %s weight cannot be negative", ErrOrderPricingInvalidInput, line.ProductID)
		}
	}
	return nil
}
