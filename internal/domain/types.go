package domain

import "strings"

// CustomerType distinguishes retail and business customers.
type CustomerType string

const (
	// CustomerTypeB2C marks an individual retail customer.
	CustomerTypeB2C CustomerType = "b2c"
	// CustomerTypeB2B marks a business customer attached to a company.
	CustomerTypeB2B CustomerType = "b2b"
)

// Customer identifies who an order is priced for.
type Customer struct {
	ID string
	// CompanyID is set for B2B customers and empty otherwise.
	CompanyID string
	Type      CustomerType
}

// Destination is the shipping target used for zone and jurisdiction matching.
type Destination struct {
	CountryCode string
	StateCode   string
	ZipCode     string
}

// Normalized returns a copy with trimmed, upper-cased country and state and a
// trimmed zip, so matching never depends on input casing or whitespace.
func (d Destination) Normalized() Destination {
	return Destination{
		CountryCode: strings.ToUpper(strings.TrimSpace(d.CountryCode)),
		StateCode:   strings.ToUpper(strings.TrimSpace(d.StateCode)),
		ZipCode:     strings.TrimSpace(d.ZipCode),
	}
}

// CartLine is one entry of the cart supplied by the surrounding system.
// BasePrice is the product's standard unit price in minor currency units;
// WeightGrams is the unit weight used for shipping resolution.
type CartLine struct {
	ProductID   string
	VariantID   string
	Quantity    int
	BasePrice   int64
	WeightGrams int
}

// Cart is the ordered list of lines to price, with the order currency.
type Cart struct {
	Currency string
	Lines    []CartLine
}
