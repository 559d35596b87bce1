package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BasisPointDenominator is the fixed-point denominator for all rates: a rate
// of 10000 basis points equals 100%.
const BasisPointDenominator = 10000

// PriceScopeKind enumerates the specificity levels a pricing rule can target.
type PriceScopeKind string

const (
	// PriceScopeGlobal applies to every customer.
	PriceScopeGlobal PriceScopeKind = "global"
	// PriceScopeCompany applies to all customers of one company.
	PriceScopeCompany PriceScopeKind = "company"
	// PriceScopeCustomer applies to a single customer.
	PriceScopeCustomer PriceScopeKind = "customer"
)

// PriceScope identifies whom a pricing rule targets. TargetID is empty for
// the global scope and carries the company or customer id otherwise.
type PriceScope struct {
	Kind     PriceScopeKind
	TargetID string
}

// PricingMode enumerates the closed set of price computation modes.
type PricingMode string

const (
	// PricingModeFixed replaces the base price with a stored unit price.
	PricingModeFixed PricingMode = "fixed"
	// PricingModePercentage discounts the base price by a basis-point rate.
	PricingModePercentage PricingMode = "percentage"
	// PricingModeTiered stores a fixed unit price for a quantity band.
	PricingModeTiered PricingMode = "tiered"
)

// PricingRule describes one negotiated or promotional price for a product.
// Rules are authored by administrative tooling and are read-only here.
type PricingRule struct {
	ID        string
	Scope     PriceScope
	ProductID string
	// VariantID narrows the rule to one variant when set.
	VariantID string
	Mode      PricingMode
	// UnitPrice carries the stored price for fixed and tiered modes, in
	// minor currency units.
	UnitPrice int64
	// DiscountBp carries the percentage-mode discount in basis points.
	DiscountBp int64
	// MinQuantity..MaxQuantity is the inclusive quantity band. A nil
	// MaxQuantity leaves the band unbounded above.
	MinQuantity int
	MaxQuantity *int
	// ValidFrom..ValidUntil is the validity window; nil bounds are open.
	ValidFrom  *time.Time
	ValidUntil *time.Time
	CreatedAt  time.Time
}

// Validate enforces the payload shape for the rule's mode. Snapshot loaders
// call this at the boundary; resolvers treat invalid rules as non-matching.
func (r PricingRule) Validate() error {
	if strings.TrimSpace(r.ProductID) == "" {
		return errors.New("pricing rule: product id is required")
	}
	if r.MinQuantity < 0 {
		return errors.New("pricing rule: min quantity cannot be negative")
	}
	if r.MaxQuantity != nil && *r.MaxQuantity < r.MinQuantity {
		return fmt.Errorf("pricing rule %s: quantity band inverted", r.ID)
	}
	if r.ValidFrom != nil && r.ValidUntil != nil && r.ValidUntil.Before(*r.ValidFrom) {
		return fmt.Errorf("pricing rule %s: validity window inverted", r.ID)
	}
	switch r.Scope.Kind {
	case PriceScopeGlobal:
		if r.Scope.TargetID != "" {
			return fmt.Errorf("pricing rule %s: global scope cannot carry a target", r.ID)
		}
	case PriceScopeCompany, PriceScopeCustomer:
		if strings.TrimSpace(r.Scope.TargetID) == "" {
			return fmt.Errorf("pricing rule %s: %s scope requires a target id", r.ID, r.Scope.Kind)
		}
	default:
		return fmt.Errorf("pricing rule %s: unknown scope %q", r.ID, r.Scope.Kind)
	}
	switch r.Mode {
	case PricingModeFixed, PricingModeTiered:
		if r.UnitPrice < 0 {
			return fmt.Errorf("pricing rule %s: unit price cannot be negative", r.ID)
		}
		if r.DiscountBp != 0 {
			return fmt.Errorf("pricing rule %s: %s mode cannot carry a discount rate", r.ID, r.Mode)
		}
	case PricingModePercentage:
		if r.DiscountBp < 0 || r.DiscountBp > BasisPointDenominator {
			return fmt.Errorf("pricing rule %s: discount must be within 0..10000 bp", r.ID)
		}
		if r.UnitPrice != 0 {
			return fmt.Errorf("pricing rule %s: percentage mode cannot carry a unit price", r.ID)
		}
	default:
		return fmt.Errorf("pricing rule %s: unknown mode %q", r.ID, r.Mode)
	}
	return nil
}

// MatchAllPattern matches any value in tax jurisdiction fields.
const MatchAllPattern = "*"

// TaxRule describes one jurisdiction tax component. Rules stack in priority
// order; lower priority applies first.
type TaxRule struct {
	ID   string
	Name string
	// TaxClass groups rules for reporting. The resolver carries it into the
	// breakdown but does not filter on it: cart lines have no class.
	TaxClass string
	// CountryCode matches exactly or is "*".
	CountryCode string
	// StateCode matches exactly, is "*", or is empty to match any state.
	StateCode string
	// ZipPattern matches exactly, is empty or "*" to match any zip, or ends
	// in "*" to match by prefix (e.g. "100*").
	ZipPattern string
	RateBp     int64
	Priority   int
	// IsCompound taxes a base that includes previously stacked tax.
	IsCompound bool
	// AppliesToShipping widens the rule's base by the shipping amount.
	AppliesToShipping bool
}

// Validate rejects malformed tax rules at the snapshot boundary.
func (r TaxRule) Validate() error {
	if strings.TrimSpace(r.CountryCode) == "" {
		return fmt.Errorf("tax rule %s: country code is required", r.ID)
	}
	if r.RateBp < 0 {
		return fmt.Errorf("tax rule %s: rate cannot be negative", r.ID)
	}
	if r.Priority < 0 {
		return fmt.Errorf("tax rule %s: priority cannot be negative", r.ID)
	}
	return nil
}

// ShippingZone covers a set of destination countries.
type ShippingZone struct {
	ID        string
	Name      string
	Countries []string
	Methods   []ShippingMethod
}

// ShippingMethod is one carrier option within a zone.
type ShippingMethod struct {
	ID       string
	Name     string
	Brackets []ShippingRateBracket
}

// ShippingRateBracket carries one flat rate for a weight and subtotal range.
// Nil bounds are unbounded. Weights are grams, prices minor currency units.
type ShippingRateBracket struct {
	MinWeightGrams *int64
	MaxWeightGrams *int64
	MinPrice       *int64
	MaxPrice       *int64
	Rate           int64
}

// Validate rejects inverted ranges and negative rates at the boundary.
func (b ShippingRateBracket) Validate() error {
	if b.Rate < 0 {
		return errors.New("shipping bracket: rate cannot be negative")
	}
	if b.MinWeightGrams != nil && b.MaxWeightGrams != nil && *b.MaxWeightGrams < *b.MinWeightGrams {
		return errors.New("shipping bracket: weight range inverted")
	}
	if b.MinPrice != nil && b.MaxPrice != nil && *b.MaxPrice < *b.MinPrice {
		return errors.New("shipping bracket: price range inverted")
	}
	return nil
}

// RuleSnapshot is the immutable rule set one resolution call operates on.
// The caller owns it; the engine never mutates or retains it.
type RuleSnapshot struct {
	PricingRules  []PricingRule
	TaxRules      []TaxRule
	ShippingZones []ShippingZone
	// LoadedAt records when the snapshot was materialised.
	LoadedAt time.Time
}

// ResolvedLineItem is one cart line after price resolution.
type ResolvedLineItem struct {
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// TaxLine is one stacked tax component of the final breakdown.
type TaxLine struct {
	Name   string
	RateBp int64
	Amount int64
}

// OrderPricingResult is the sole output contract of the pricing engine.
// It is assembled once per resolution call and immutable afterwards.
type OrderPricingResult struct {
	Currency     string
	LineItems    []ResolvedLineItem
	Subtotal     int64
	ShippingCost int64
	// ShippingMethodID is nil when no zone or bracket matched and the
	// zero-cost fallback applied.
	ShippingMethodID *string
	TaxLines         []TaxLine
	TaxTotal         int64
	GrandTotal       int64
}
