package models

import (
	"github.com/shopspring/decimal"
)

// Rules carries the invoicing configuration that drives VAT and due-date
// derivation. It is built once from the environment and passed in explicitly
// so computations stay deterministic under test.
type Rules struct {
	HomeCurrency        string
	PaymentPostponeDays int
	ExemptedCountries   []string
	VATRates            map[string]decimal.Decimal
}

func (r Rules) isExempted(country string) bool {
	for _, c := range r.ExemptedCountries {
		if c == country {
			return true
		}
	}
	return false
}

// VATRateFor returns the configured rate for a country, zero when the
// country has no configured rate.
func (r Rules) VATRateFor(country string) decimal.Decimal {
	if rate, ok := r.VATRates[country]; ok {
		return rate
	}
	return decimal.Zero
}

// ResolveVATRate determines the VAT rate an invoice for this client carries.
// Reverse-charge clients account for VAT themselves, so the rate is zero.
func ResolveVATRate(client *Client, rules Rules) decimal.Decimal {
	if client.ReverseCharge(rules) {
		return decimal.Zero
	}
	return rules.VATRateFor(client.Country)
}
