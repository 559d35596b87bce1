package services

import (
	"context"

	"github.com/orderforge/pricing-api/internal/domain"
)

// OrderPricingService prices one order against a caller-supplied rule
// snapshot. Implementations must be safe for concurrent use.
type OrderPricingService interface {
	PriceOrder(ctx context.Context, cmd PriceOrderCommand) (domain.OrderPricingResult, error)
}
