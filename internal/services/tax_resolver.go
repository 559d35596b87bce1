package services

import (
	"sort"
	"strings"

	"github.com/orderforge/pricing-api/internal/domain"
)

// TaxAssessment is the stacked tax owed on a taxable amount, with one line
// per applied rule in application order.
type TaxAssessment struct {
	Total int64
	Lines []domain.TaxLine
}

// ResolveTax resolves the total tax owed on amount for the destination by
// matching jurisdiction rules and stacking them in priority order.
//
// Rules apply when country, state, and zip predicates all match. Stacking is
// priority-ascending with ties preserving input order; a compound rule taxes
// the running total accumulated so far, and a rule with AppliesToShipping set
// includes shippingAmount in its base. No matching jurisdiction is a normal
// outcome and yields zero tax with an empty breakdown.
func ResolveTax(amount, shippingAmount int64, dest domain.Destination, rules []domain.TaxRule) TaxAssessment {
	target := dest.Normalized()

	matched := make([]domain.TaxRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Validate() != nil {
			continue
		}
		if ruleMatchesJurisdiction(rule, target) {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return TaxAssessment{}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})

	var (
		runningTax int64
		lines      = make([]domain.TaxLine, 0, len(matched))
	)
	for _, rule := range matched {
		base := amount
		if rule.AppliesToShipping {
			base += shippingAmount
		}
		if rule.IsCompound {
			base += runningTax
		}
		ruleTax := applyBasisPoints(base, rule.RateBp)
		runningTax += ruleTax
		lines = append(lines, domain.TaxLine{
			Name:   taxLineName(rule),
			RateBp: rule.RateBp,
			Amount: ruleTax,
		})
	}
	return TaxAssessment{Total: runningTax, Lines: lines}
}

func ruleMatchesJurisdiction(rule domain.TaxRule, dest domain.Destination) bool {
	return countryMatches(rule.CountryCode, dest.CountryCode) &&
		stateMatches(rule.StateCode, dest.StateCode) &&
		zipMatches(rule.ZipPattern, dest.ZipCode)
}

func countryMatches(pattern, country string) bool {
	pattern = strings.ToUpper(strings.TrimSpace(pattern))
	return pattern == domain.MatchAllPattern || pattern == country
}

func stateMatches(pattern, state string) bool {
	pattern = strings.ToUpper(strings.TrimSpace(pattern))
	if pattern == "" || pattern == domain.MatchAllPattern {
		return true
	}
	return pattern == state
}

func zipMatches(pattern, zip string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || pattern == domain.MatchAllPattern {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, domain.MatchAllPattern); ok {
		return strings.HasPrefix(zip, prefix)
	}
	return pattern == zip
}

func taxLineName(rule domain.TaxRule) string {
	if name := strings.TrimSpace(rule.Name); name != "" {
		return name
	}
	return rule.ID
}
