package services

import (
	"testing"

	"github.com/orderforge/pricing-api/internal/domain"
)

func domesticZone() []domain.ShippingZone {
	return []domain.ShippingZone{
		{
			ID:        "zone_domestic",
			Name:      "Domestic",
			Countries: []string{"US", "NP"},
			Methods: []domain.ShippingMethod{
				{
					ID:   "method_standard",
					Name: "Standard",
					Brackets: []domain.ShippingRateBracket{
						{MinPrice: int64Ptr(0), Rate: 1500},
						{MinPrice: int64Ptr(100000), Rate: 0},
					},
				},
			},
		},
	}
}

func TestResolveShippingRate_BracketSelection(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{name: "small order pays flat rate", subtotal: 5000, want: 1500},
		{name: "large order ships free", subtotal: 120000, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate := ResolveShippingRate("US", 500, tc.subtotal, domesticZone())
			if rate == nil {
				t.Fatalf("expected a rate, got nil")
			}
			if rate.Cost != tc.want {
				t.Fatalf("cost mismatch: want %d, got %d", tc.want, rate.Cost)
			}
			if rate.MethodID != "method_standard" {
				t.Fatalf("unexpected method id %q", rate.MethodID)
			}
		})
	}
}

func TestResolveShippingRate_NoZoneMatch(t *testing.T) {
	if rate := ResolveShippingRate("DE", 500, 5000, domesticZone()); rate != nil {
		t.Fatalf("expected nil for uncovered country, got %+v", rate)
	}
	if rate := ResolveShippingRate("", 500, 5000, domesticZone()); rate != nil {
		t.Fatalf("expected nil for empty country, got %+v", rate)
	}
}

func TestResolveShippingRate_NoBracketMatch(t *testing.T) {
	zones := []domain.ShippingZone{
		{
			ID:        "zone_heavy",
			Countries: []string{"US"},
			Methods: []domain.ShippingMethod{
				{
					ID: "method_freight",
					Brackets: []domain.ShippingRateBracket{
						{MinWeightGrams: int64Ptr(10000), Rate: 9900},
					},
				},
			},
		},
	}
	if rate := ResolveShippingRate("US", 500, 5000, zones); rate != nil {
		t.Fatalf("expected nil when weight is below every bracket, got %+v", rate)
	}
}

func TestResolveShippingRate_WeightBounds(t *testing.T) {
	zones := []domain.ShippingZone{
		{
			ID:        "zone_bands",
			Countries: []string{"JP"},
			Methods: []domain.ShippingMethod{
				{
					ID: "method_parcel",
					Brackets: []domain.ShippingRateBracket{
						{MaxWeightGrams: int64Ptr(1000), Rate: 600},
						{MinWeightGrams: int64Ptr(1001), MaxWeightGrams: int64Ptr(5000), Rate: 1200},
					},
				},
			},
		},
	}
	cases := []struct {
		name   string
		weight int64
		want   int64
	}{
		{name: "light parcel", weight: 800, want: 600},
		{name: "boundary weight stays in light band", weight: 1000, want: 600},
		{name: "heavy parcel", weight: 3000, want: 1200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate := ResolveShippingRate("JP", tc.weight, 5000, zones)
			if rate == nil {
				t.Fatalf("expected a rate, got nil")
			}
			if rate.Cost != tc.want {
				t.Fatalf("cost mismatch: want %d, got %d", tc.want, rate.Cost)
			}
		})
	}
}

func TestResolveShippingRate_CheapestWinsAcrossMethods(t *testing.T) {
	zones := []domain.ShippingZone{
		{
			ID:        "zone_multi",
			Countries: []string{"US"},
			Methods: []domain.ShippingMethod{
				{
					ID:       "method_express",
					Brackets: []domain.ShippingRateBracket{{Rate: 2500}},
				},
				{
					ID:       "method_economy",
					Brackets: []domain.ShippingRateBracket{{Rate: 900}},
				},
			},
		},
	}
	rate := ResolveShippingRate("US", 500, 5000, zones)
	if rate == nil || rate.MethodID != "method_economy" || rate.Cost != 900 {
		t.Fatalf("expected cheapest method to win, got %+v", rate)
	}
}

func TestResolveShippingRate_TieBreaksAreOrderIndependent(t *testing.T) {
	brackets := []domain.ShippingRateBracket{
		{MinPrice: int64Ptr(2000), Rate: 1000},
		{MinPrice: int64Ptr(0), Rate: 1000},
	}
	forward := []domain.ShippingZone{{
		ID: "z", Countries: []string{"US"},
		Methods: []domain.ShippingMethod{{ID: "m", Brackets: brackets}},
	}}
	reversed := []domain.ShippingZone{{
		ID: "z", Countries: []string{"US"},
		Methods: []domain.ShippingMethod{{ID: "m", Brackets: []domain.ShippingRateBracket{brackets[1], brackets[0]}}},
	}}

	a := ResolveShippingRate("US", 500, 5000, forward)
	b := ResolveShippingRate("US", 500, 5000, reversed)
	if a == nil || b == nil {
		t.Fatalf("expected rates, got %+v and %+v", a, b)
	}
	if *a != *b {
		t.Fatalf("tie-break depends on input order: %+v vs %+v", a, b)
	}
	if a.Cost != 1000 {
		t.Fatalf("unexpected cost %d", a.Cost)
	}
	// The lowest minPrice bracket must be the selected one in both orders.
	if eff := effectiveMinPrice(brackets[1]); eff != 0 {
		t.Fatalf("expected winning bracket minPrice 0, got %d", eff)
	}
}

func TestResolveShippingRate_SkipsMalformedBrackets(t *testing.T) {
	zones := []domain.ShippingZone{
		{
			ID:        "zone_bad",
			Countries: []string{"US"},
			Methods: []domain.ShippingMethod{
				{
					ID: "method_bad",
					Brackets: []domain.ShippingRateBracket{
						{MinPrice: int64Ptr(5000), MaxPrice: int64Ptr(100), Rate: 1},
						{Rate: -5},
						{Rate: 700},
					},
				},
			},
		},
	}
	rate := ResolveShippingRate("US", 500, 5000, zones)
	if rate == nil || rate.Cost != 700 {
		t.Fatalf("expected malformed brackets to be skipped, got %+v", rate)
	}
}

func TestResolveShippingRate_CountryMatchIsCaseInsensitive(t *testing.T) {
	rate := ResolveShippingRate("us", 500, 5000, domesticZone())
	if rate == nil || rate.Cost != 1500 {
		t.Fatalf("expected case-insensitive country match, got %+v", rate)
	}
}
