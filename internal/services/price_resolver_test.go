package services

import (
	"testing"
	"time"

	"github.com/orderforge/pricing-api/internal/domain"
)

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

var priceNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestResolveUnitPrice_ScopeSpecificity(t *testing.T) {
	rules := []domain.PricingRule{
		{
			ID:         "global-10off",
			Scope:      domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:  "prod_a",
			Mode:       domain.PricingModePercentage,
			DiscountBp: 1000,
			CreatedAt:  priceNow.Add(-72 * time.Hour),
		},
		{
			ID:        "company-fixed",
			Scope:     domain.PriceScope{Kind: domain.PriceScopeCompany, TargetID: "acme"},
			ProductID: "prod_a",
			Mode:      domain.PricingModeFixed,
			UnitPrice: 8500,
			CreatedAt: priceNow.Add(-48 * time.Hour),
		},
		{
			ID:          "customer-bulk",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeCustomer, TargetID: "cust_1"},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeFixed,
			UnitPrice:   8000,
			MinQuantity: 10,
			CreatedAt:   priceNow.Add(-24 * time.Hour),
		},
	}

	cases := []struct {
		name     string
		quantity int
		want     int64
	}{
		{name: "company wins over global below customer threshold", quantity: 5, want: 8500},
		{name: "customer wins over company at threshold", quantity: 12, want: 8000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveUnitPrice(PriceRequest{
				ProductID:  "prod_a",
				BasePrice:  10000,
				Quantity:   tc.quantity,
				CustomerID: "cust_1",
				CompanyID:  "acme",
				Now:        priceNow,
			}, rules)
			if got != tc.want {
				t.Fatalf("unit price mismatch: want %d, got %d", tc.want, got)
			}
		})
	}
}

func TestResolveUnitPrice_NoMatchReturnsBasePrice(t *testing.T) {
	rules := []domain.PricingRule{
		{
			ID:        "other-product",
			Scope:     domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID: "prod_b",
			Mode:      domain.PricingModeFixed,
			UnitPrice: 100,
		},
	}
	if got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", BasePrice: 4200, Quantity: 1, Now: priceNow}, rules); got != 4200 {
		t.Fatalf("expected base price 4200, got %d", got)
	}
	if got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", BasePrice: 4200, Quantity: 1, Now: priceNow}, nil); got != 4200 {
		t.Fatalf("expected base price with empty rules, got %d", got)
	}
}

func TestResolveUnitPrice_ValidityWindow(t *testing.T) {
	rule := domain.PricingRule{
		ID:         "seasonal",
		Scope:      domain.PriceScope{Kind: domain.PriceScopeGlobal},
		ProductID:  "prod_a",
		Mode:       domain.PricingModePercentage,
		DiscountBp: 2500,
		ValidFrom:  timePtr(priceNow.Add(-time.Hour)),
		ValidUntil: timePtr(priceNow.Add(time.Hour)),
	}

	cases := []struct {
		name string
		now  time.Time
		want int64
	}{
		{name: "inside window", now: priceNow, want: 7500},
		{name: "before window", now: priceNow.Add(-2 * time.Hour), want: 10000},
		{name: "after window", now: priceNow.Add(2 * time.Hour), want: 10000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", BasePrice: 10000, Quantity: 1, Now: tc.now}, []domain.PricingRule{rule})
			if got != tc.want {
				t.Fatalf("want %d, got %d", tc.want, got)
			}
		})
	}
}

func TestResolveUnitPrice_NarrowestSpanWins(t *testing.T) {
	rules := []domain.PricingRule{
		{
			ID:          "wide",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeFixed,
			UnitPrice:   900,
			MinQuantity: 1,
			MaxQuantity: intPtr(100),
			CreatedAt:   priceNow.Add(-time.Hour),
		},
		{
			ID:          "narrow",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeFixed,
			UnitPrice:   850,
			MinQuantity: 5,
			MaxQuantity: intPtr(10),
			CreatedAt:   priceNow.Add(-2 * time.Hour),
		},
		{
			ID:          "unbounded",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeFixed,
			UnitPrice:   800,
			MinQuantity: 1,
			CreatedAt:   priceNow,
		},
	}
	if got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", BasePrice: 1000, Quantity: 7, Now: priceNow}, rules); got != 850 {
		t.Fatalf("expected narrowest band price 850, got %d", got)
	}
}

func TestResolveUnitPrice_MostRecentRuleBreaksSpanTie(t *testing.T) {
	rules := []domain.PricingRule{
		{
			ID:          "older",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeFixed,
			UnitPrice:   700,
			MinQuantity: 1,
			MaxQuantity: intPtr(10),
			CreatedAt:   priceNow.Add(-48 * time.Hour),
		},
		{
			ID:          "newer",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeFixed,
			UnitPrice:   650,
			MinQuantity: 1,
			MaxQuantity: intPtr(10),
			CreatedAt:   priceNow.Add(-time.Hour),
		},
	}
	if got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", BasePrice: 1000, Quantity: 3, Now: priceNow}, rules); got != 650 {
		t.Fatalf("expected most recent rule to win, got %d", got)
	}
}

func TestResolveUnitPrice_TieredMonotonicity(t *testing.T) {
	// Inconsistently configured tiers: the 10+ tier is priced above the 1+
	// tier. The guard must keep larger orders at least as cheap.
	rules := []domain.PricingRule{
		{
			ID:          "tier-1",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeTiered,
			UnitPrice:   900,
			MinQuantity: 1,
			MaxQuantity: intPtr(9),
		},
		{
			ID:          "tier-10",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeTiered,
			UnitPrice:   950,
			MinQuantity: 10,
		},
	}

	var prev int64 = 1 << 60
	for quantity := 1; quantity <= 30; quantity++ {
		got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", BasePrice: 1000, Quantity: quantity, Now: priceNow}, rules)
		if got > prev {
			t.Fatalf("unit price increased from %d to %d at quantity %d", prev, got, quantity)
		}
		prev = got
	}
	if got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", BasePrice: 1000, Quantity: 12, Now: priceNow}, rules); got != 900 {
		t.Fatalf("expected cheapest unlocked tier 900 at quantity 12, got %d", got)
	}
}

func TestResolveUnitPrice_TieredScanIgnoresTargetIDCasing(t *testing.T) {
	// Both tiers target the same company, authored with different casing. The
	// monotonicity scan must treat them as one scope, so quantity 12 still
	// gets the cheaper tier unlocked at quantity 1.
	rules := []domain.PricingRule{
		{
			ID:          "tier-bulk",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeCompany, TargetID: "acme"},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeTiered,
			UnitPrice:   900,
			MinQuantity: 10,
		},
		{
			ID:          "tier-entry",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeCompany, TargetID: "ACME"},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeTiered,
			UnitPrice:   800,
			MinQuantity: 1,
			MaxQuantity: intPtr(5),
		},
	}
	got := ResolveUnitPrice(PriceRequest{
		ProductID: "prod_a",
		BasePrice: 1000,
		Quantity:  12,
		CompanyID: "Acme",
		Now:       priceNow,
	}, rules)
	if got != 800 {
		t.Fatalf("expected cheapest unlocked tier 800 across casings, got %d", got)
	}
}

func TestResolveUnitPrice_VariantScoping(t *testing.T) {
	rules := []domain.PricingRule{
		{
			ID:        "variant-only",
			Scope:     domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID: "prod_a",
			VariantID: "var_red",
			Mode:      domain.PricingModeFixed,
			UnitPrice: 500,
		},
	}
	if got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", VariantID: "var_red", BasePrice: 1000, Quantity: 1, Now: priceNow}, rules); got != 500 {
		t.Fatalf("expected variant rule to apply, got %d", got)
	}
	if got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", VariantID: "var_blue", BasePrice: 1000, Quantity: 1, Now: priceNow}, rules); got != 1000 {
		t.Fatalf("expected variant rule to be skipped, got %d", got)
	}
}

func TestResolveUnitPrice_SkipsMalformedRules(t *testing.T) {
	rules := []domain.PricingRule{
		{
			ID:          "inverted-band",
			Scope:       domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID:   "prod_a",
			Mode:        domain.PricingModeFixed,
			UnitPrice:   1,
			MinQuantity: 10,
			MaxQuantity: intPtr(5),
		},
		{
			ID:        "unknown-mode",
			Scope:     domain.PriceScope{Kind: domain.PriceScopeGlobal},
			ProductID: "prod_a",
			Mode:      domain.PricingMode("bogus"),
		},
	}
	if got := ResolveUnitPrice(PriceRequest{ProductID: "prod_a", BasePrice: 2000, Quantity: 7, Now: priceNow}, rules); got != 2000 {
		t.Fatalf("malformed rules must not apply, got %d", got)
	}
}

func TestResolveUnitPrice_ForeignScopesDoNotApply(t *testing.T) {
	rules := []domain.PricingRule{
		{
			ID:        "someone-elses-deal",
			Scope:     domain.PriceScope{Kind: domain.PriceScopeCustomer, TargetID: "cust_other"},
			ProductID: "prod_a",
			Mode:      domain.PricingModeFixed,
			UnitPrice: 1,
		},
		{
			ID:        "other-company",
			Scope:     domain.PriceScope{Kind: domain.PriceScopeCompany, TargetID: "globex"},
			ProductID: "prod_a",
			Mode:      domain.PricingModeFixed,
			UnitPrice: 2,
		},
	}
	got := ResolveUnitPrice(PriceRequest{
		ProductID:  "prod_a",
		BasePrice:  3000,
		Quantity:   1,
		CustomerID: "cust_1",
		CompanyID:  "acme",
		Now:        priceNow,
	}, rules)
	if got != 3000 {
		t.Fatalf("foreign scopes must not apply, got %d", got)
	}
}
