package services

import (
	"math"
	"strings"
	"time"

	"github.com/orderforge/pricing-api/internal/domain"
)

// PriceRequest carries everything needed to resolve one unit price.
// CustomerID and CompanyID are optional; empty values simply disable the
// matching scope.
type PriceRequest struct {
	ProductID  string
	VariantID  string
	BasePrice  int64
	Quantity   int
	CustomerID string
	CompanyID  string
	Now        time.Time
}

// ResolveUnitPrice resolves the effective unit price for one product line
// from the supplied pricing rules.
//
// Candidate rules must match the product (and variant, when the rule names
// one), be active at the request time, and contain the requested quantity in
// their band. The most specific scope with at least one candidate wins
// (customer over company over global); within that scope the narrowest
// quantity band wins, then the most recently created rule. Absence of any
// match is the normal case and yields the base price unchanged.
func ResolveUnitPrice(req PriceRequest, rules []domain.PricingRule) int64 {
	winner, scope, ok := selectPricingRule(req, rules)
	if !ok {
		return req.BasePrice
	}

	switch winner.Mode {
	case domain.PricingModeFixed:
		return winner.UnitPrice
	case domain.PricingModePercentage:
		return req.BasePrice - applyBasisPoints(req.BasePrice, winner.DiscountBp)
	case domain.PricingModeTiered:
		// Volume discounts must never penalise larger orders, even when the
		// configured tiers are inconsistent: the effective price is the
		// cheapest tier already unlocked at this quantity.
		return cheapestUnlockedTier(req, rules, scope, winner.UnitPrice)
	default:
		return req.BasePrice
	}
}

func selectPricingRule(req PriceRequest, rules []domain.PricingRule) (domain.PricingRule, domain.PriceScope, bool) {
	type candidate struct {
		rule  domain.PricingRule
		index int
	}

	var (
		best     []candidate
		bestRank = -1
	)
	for i, rule := range rules {
		if !pricingRuleMatches(req, rule) {
			continue
		}
		rank := scopeRank(rule.Scope, req.CustomerID, req.CompanyID)
		if rank < 0 || rank < bestRank {
			continue
		}
		if rank > bestRank {
			bestRank = rank
			best = best[:0]
		}
		best = append(best, candidate{rule: rule, index: i})
	}
	if len(best) == 0 {
		return domain.PricingRule{}, domain.PriceScope{}, false
	}

	winner := best[0]
	for _, c := range best[1:] {
		switch {
		case quantitySpan(c.rule) < quantitySpan(winner.rule):
			winner = c
		case quantitySpan(c.rule) == quantitySpan(winner.rule):
			if c.rule.CreatedAt.After(winner.rule.CreatedAt) {
				winner = c
			}
		}
	}
	return winner.rule, winner.rule.Scope, true
}

func pricingRuleMatches(req PriceRequest, rule domain.PricingRule) bool {
	if rule.Validate() != nil {
		// Malformed records are rejected at the snapshot boundary; one that
		// still arrives is treated as non-matching rather than fatal.
		return false
	}
	if !productMatches(req, rule) {
		return false
	}
	if !ruleActiveAt(rule, req.Now) {
		return false
	}
	if req.Quantity < rule.MinQuantity {
		return false
	}
	if rule.MaxQuantity != nil && req.Quantity > *rule.MaxQuantity {
		return false
	}
	return true
}

func productMatches(req PriceRequest, rule domain.PricingRule) bool {
	if rule.ProductID != req.ProductID {
		return false
	}
	if rule.VariantID != "" && rule.VariantID != req.VariantID {
		return false
	}
	return true
}

func ruleActiveAt(rule domain.PricingRule, now time.Time) bool {
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return false
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return false
	}
	return true
}

// scopeRank orders scopes by specificity: customer > company > global.
// A negative rank means the scope does not apply to this request at all.
func scopeRank(scope domain.PriceScope, customerID, companyID string) int {
	switch scope.Kind {
	case domain.PriceScopeCustomer:
		if customerID != "" && strings.EqualFold(scope.TargetID, customerID) {
			return 2
		}
	case domain.PriceScopeCompany:
		if companyID != "" && strings.EqualFold(scope.TargetID, companyID) {
			return 1
		}
	case domain.PriceScopeGlobal:
		return 0
	}
	return -1
}

// sameScope matches target ids case-insensitively, mirroring scopeRank, so
// two rules targeting the same company or customer share a scope regardless
// of how their target ids were cased when authored.
func sameScope(a, b domain.PriceScope) bool {
	return a.Kind == b.Kind && strings.EqualFold(a.TargetID, b.TargetID)
}

func quantitySpan(rule domain.PricingRule) int {
	if rule.MaxQuantity == nil {
		return math.MaxInt
	}
	return *rule.MaxQuantity - rule.MinQuantity
}

// cheapestUnlockedTier scans every tier of the winning scope whose minimum
// quantity the request has reached, upper bound ignored, and returns the
// lowest stored price. This keeps unit price non-increasing in quantity.
func cheapestUnlockedTier(req PriceRequest, rules []domain.PricingRule, scope domain.PriceScope, price int64) int64 {
	for _, rule := range rules {
		if rule.Mode != domain.PricingModeTiered || rule.Validate() != nil {
			continue
		}
		if !sameScope(rule.Scope, scope) {
			continue
		}
		if !productMatches(req, rule) || !ruleActiveAt(rule, req.Now) {
			continue
		}
		if req.Quantity >= rule.MinQuantity && rule.UnitPrice < price {
			price = rule.UnitPrice
		}
	}
	return price
}
