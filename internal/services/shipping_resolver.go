package services

import (
	"math"
	"strings"

	"github.com/orderforge/pricing-api/internal/domain"
)

// ShippingRate is the resolved shipping cost and the method that carries it.
type ShippingRate struct {
	MethodID string
	Cost     int64
}

// ResolveShippingRate resolves the shipping cost for a destination country,
// cart weight (grams), and cart subtotal from the supplied zones.
//
// All brackets of every method in every zone covering the country compete;
// among those whose weight and price ranges contain the inputs, the cheapest
// rate wins. Ties fall to the lowest minimum price, then to insertion order,
// so the outcome never depends on how the snapshot happens to be ordered.
// A nil result means no zone or bracket matched; the caller decides the
// fallback.
func ResolveShippingRate(countryCode string, totalWeightGrams, subtotal int64, zones []domain.ShippingZone) *ShippingRate {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	if country == "" {
		return nil
	}

	type candidate struct {
		methodID string
		bracket  domain.ShippingRateBracket
	}

	var matches []candidate
	for _, zone := range zones {
		if !zoneCoversCountry(zone, country) {
			continue
		}
		for _, method := range zone.Methods {
			for _, bracket := range method.Brackets {
				if bracket.Validate() != nil {
					continue
				}
				if !withinBounds(totalWeightGrams, bracket.MinWeightGrams, bracket.MaxWeightGrams) {
					continue
				}
				if !withinBounds(subtotal, bracket.MinPrice, bracket.MaxPrice) {
					continue
				}
				matches = append(matches, candidate{methodID: method.ID, bracket: bracket})
			}
		}
	}
	if len(matches) == 0 {
		return nil
	}

	winner := matches[0]
	for _, c := range matches[1:] {
		switch {
		case c.bracket.Rate < winner.bracket.Rate:
			winner = c
		case c.bracket.Rate == winner.bracket.Rate:
			if effectiveMinPrice(c.bracket) < effectiveMinPrice(winner.bracket) {
				winner = c
			}
		}
	}
	return &ShippingRate{MethodID: winner.methodID, Cost: winner.bracket.Rate}
}

func zoneCoversCountry(zone domain.ShippingZone, country string) bool {
	for _, c := range zone.Countries {
		if strings.ToUpper(strings.TrimSpace(c)) == country {
			return true
		}
	}
	return false
}

func withinBounds(value int64, min, max *int64) bool {
	if min != nil && value < *min {
		return false
	}
	if max != nil && value > *max {
		return false
	}
	return true
}

// effectiveMinPrice treats an absent lower price bound as unbounded below so
// open brackets win equal-rate ties against constrained ones.
func effectiveMinPrice(bracket domain.ShippingRateBracket) int64 {
	if bracket.MinPrice == nil {
		return math.MinInt64
	}
	return *bracket.MinPrice
}
