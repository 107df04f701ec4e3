// README: Price calculator: rate sheet + selection -> rounded total, with breakdown.
package pricing

import (
	"github.com/shopspring/decimal"

	"lanepricing/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Line is one applied surcharge in a quote.
type Line struct {
	Key      string          `json:"key"`
	Kind     Kind            `json:"kind"`
	Quantity int             `json:"quantity,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

// Quote lines are rounded to cents one by one while Total rounds the exact
// sum. Rounding carries the difference so that base price, lines and
// rounding always add up to Total.
type Quote struct {
	BasePrice decimal.Decimal `json:"base_price"`
	Lines     []Line          `json:"lines"`
	Rounding  decimal.Decimal `json:"rounding"`
	Total     decimal.Decimal `json:"total"`
}

// Calculate returns the total price of sheet under sel, rounded to cents.
func Calculate(sheet RateSheet, sel Selection) decimal.Decimal {
	return Price(sheet, sel).Total
}

// Price applies percentage surcharges, then per-unit, then fixed ones.
// A surcharge applies only when it is included and its raw value is non-zero.
func Price(sheet RateSheet, sel Selection) Quote {
	q := Quote{BasePrice: sheet.BasePrice, Lines: []Line{}}
	total := sheet.BasePrice

	for _, kind := range []Kind{KindPercentage, KindPerUnit, KindFixed} {
		for _, s := range sheet.Surcharges {
			if s.Kind != kind || !s.Offered() || !sel.Included(s.Key) {
				continue
			}
			line := Line{Key: s.Key, Kind: s.Kind}
			switch kind {
			case KindPercentage:
				line.Amount = sheet.BasePrice.Mul(s.RawValue).Div(hundred)
			case KindPerUnit:
				line.Quantity = sel.Quantity(s.Key)
				line.Amount = s.RawValue.Mul(decimal.NewFromInt(int64(line.Quantity)))
			case KindFixed:
				line.Amount = s.RawValue
			}
			total = total.Add(line.Amount)
			line.Amount = types.RoundCents(line.Amount)
			q.Lines = append(q.Lines, line)
		}
	}

	q.Total = types.RoundCents(total)
	q.Rounding = q.Total.Sub(q.BasePrice)
	for _, l := range q.Lines {
		q.Rounding = q.Rounding.Sub(l.Amount)
	}
	return q
}

// Margin is marginPercent of total, rounded to cents.
func Margin(total, marginPercent decimal.Decimal) decimal.Decimal {
	return types.RoundCents(total.Mul(marginPercent).Div(hundred))
}
