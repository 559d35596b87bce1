package firestore

import (
	"errors"
	"time"

	domain "github.com/orderforge/pricing-api/internal/domain"
)

type pricingRuleDocument struct {
	ScopeKind     string     `firestore:"scopeKind"`
	ScopeTargetID string     `firestore:"scopeTargetId"`
	ProductID     string     `firestore:"productId"`
	VariantID     string     `firestore:"variantId"`
	Mode          string     `firestore:"mode"`
	UnitPrice     int64      `firestore:"unitPrice"`
	DiscountBp    int64      `firestore:"discountBp"`
	MinQuantity   int        `firestore:"minQuantity"`
	MaxQuantity   *int       `firestore:"maxQuantity"`
	ValidFrom     *time.Time `firestore:"validFrom"`
	ValidUntil    *time.Time `firestore:"validUntil"`
	CreatedAt     time.Time  `firestore:"createdAt"`
}

func (d pricingRuleDocument) toDomain(id string) domain.PricingRule {
	return domain.PricingRule{
		ID: id,
		Scope: domain.PriceScope{
			Kind:     domain.PriceScopeKind(d.ScopeKind),
			TargetID: d.ScopeTargetID,
		},
		ProductID:   d.ProductID,
		VariantID:   d.VariantID,
		Mode:        domain.PricingMode(d.Mode),
		UnitPrice:   d.UnitPrice,
		DiscountBp:  d.DiscountBp,
		MinQuantity: d.MinQuantity,
		MaxQuantity: d.MaxQuantity,
		ValidFrom:   d.ValidFrom,
		ValidUntil:  d.ValidUntil,
		CreatedAt:   d.CreatedAt,
	}
}

type taxRuleDocument struct {
	Name              string `firestore:"name"`
	TaxClass          string `firestore:"taxClass"`
	CountryCode       string `firestore:"countryCode"`
	StateCode         string `firestore:"stateCode"`
	ZipPattern        string `firestore:"zipPattern"`
	RateBp            int64  `firestore:"rateBp"`
	Priority          int    `firestore:"priority"`
	IsCompound        bool   `firestore:"isCompound"`
	AppliesToShipping bool   `firestore:"appliesToShipping"`
}

func (d taxRuleDocument) toDomain(id string) domain.TaxRule {
	return domain.TaxRule{
		ID:                id,
		Name:              d.Name,
		TaxClass:          d.TaxClass,
		CountryCode:       d.CountryCode,
		StateCode:         d.StateCode,
		ZipPattern:        d.ZipPattern,
		RateBp:            d.RateBp,
		Priority:          d.Priority,
		IsCompound:        d.IsCompound,
		AppliesToShipping: d.AppliesToShipping,
	}
}

type shippingBracketDocument struct {
	MinWeightGrams *int64 `firestore:"minWeightGrams"`
	MaxWeightGrams *int64 `firestore:"maxWeightGrams"`
	MinPrice       *int64 `firestore:"minPrice"`
	MaxPrice       *int64 `firestore:"maxPrice"`
	Rate           int64  `firestore:"rate"`
}

type shippingMethodDocument struct {
	ID       string                    `firestore:"id"`
	Name     string                    `firestore:"name"`
	Brackets []shippingBracketDocument `firestore:"brackets"`
}

type shippingZoneDocument struct {
	Name      string                   `firestore:"name"`
	Countries []string                 `firestore:"countries"`
	Methods   []shippingMethodDocument `firestore:"methods"`
}

// toDomain rejects zones without countries or methods. Individual brackets are
// kept as stored; the resolver skips any that fail validation.
func (d shippingZoneDocument) toDomain(id string) (domain.ShippingZone, error) {
	if len(d.Countries) == 0 {
		return domain.ShippingZone{}, errors.New("shipping zone: at least one country is required")
	}
	if len(d.Methods) == 0 {
		return domain.ShippingZone{}, errors.New("shipping zone: at least one method is required")
	}

	methods := make([]domain.ShippingMethod, 0, len(d.Methods))
	for _, method := range d.Methods {
		if method.ID == "" {
			return domain.ShippingZone{}, errors.New("shipping zone: method id is required")
		}
		brackets := make([]domain.ShippingRateBracket, 0, len(method.Brackets))
		for _, bracket := range method.Brackets {
			brackets = append(brackets, domain.ShippingRateBracket{
				MinWeightGrams: bracket.MinWeightGrams,
				MaxWeightGrams: bracket.MaxWeightGrams,
				MinPrice:       bracket.MinPrice,
				MaxPrice:       bracket.MaxPrice,
				Rate:           bracket.Rate,
			})
		}
		methods = append(methods, domain.ShippingMethod{
			ID:       method.ID,
			Name:     method.Name,
			Brackets: brackets,
		})
	}

	return domain.ShippingZone{
		ID:        id,
		Name:      d.Name,
		Countries: append([]string(nil), d.Countries...),
		Methods:   methods,
	}, nil
}
