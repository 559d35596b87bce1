package services

import "github.com/orderforge/pricing-api/internal/domain"

// applyBasisPoints computes amount * bp / 10000 with half-up rounding.
// Amounts and rates are expected to be non-negative; callers validate both
// before reaching this point.
func applyBasisPoints(amount, bp int64) int64 {
	if amount <= 0 || bp <= 0 {
		return 0
	}
	return (amount*bp + domain.BasisPointDenominator/2) / domain.BasisPointDenominator
}
