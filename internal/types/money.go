// README: Common money value object used across modules.
package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency every lane price is quoted in.
const DefaultCurrency = "EUR"

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func EUR(amount decimal.Decimal) Money {
	return Money{Amount: RoundCents(amount), Currency: DefaultCurrency}
}

// RoundCents rounds to two decimal places, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a user or database supplied amount. Empty or malformed
// input yields zero so that a bad value never breaks a price calculation.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return RoundCents(d).StringFixed(2)
}
