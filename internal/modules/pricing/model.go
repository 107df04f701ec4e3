// README: Rate sheet, surcharge definitions and per-candidate selection state.
package pricing

import "github.com/shopspring/decimal"

type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
	KindPerUnit    Kind = "per_unit"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPercentage, KindFixed, KindPerUnit:
		return true
	}
	return false
}

// Surcharge is one optional cost component offered on a rate sheet.
// A zero RawValue means the carrier does not offer it.
type Surcharge struct {
	Key      string          `json:"key"`
	Kind     Kind            `json:"kind"`
	RawValue decimal.Decimal `json:"raw_value"`
}

func (s Surcharge) Offered() bool {
	return !s.RawValue.IsZero()
}

// RateSheet is a carrier's quoted base price for a lane plus its surcharges.
// It is read-only once loaded.
type RateSheet struct {
	BasePrice  decimal.Decimal `json:"base_price"`
	Surcharges []Surcharge     `json:"surcharges"`
}

func (r RateSheet) Surcharge(key string) (Surcharge, bool) {
	for _, s := range r.Surcharges {
		if s.Key == key {
			return s, true
		}
	}
	return Surcharge{}, false
}

type SurchargeState struct {
	Included         bool `json:"included"`
	Quantity         int  `json:"quantity,omitempty"`
	QuantityDisabled bool `json:"quantity_disabled,omitempty"`
}

// Selection holds what the user toggled on for one candidate.
type Selection struct {
	Surcharges map[string]SurchargeState `json:"surcharges"`
	Primary    bool                      `json:"primary"`
}

func (s Selection) State(key string) SurchargeState {
	st := s.Surcharges[key]
	if st.Quantity < 1 {
		st.Quantity = DefaultQuantity(key)
	}
	return st
}

func (s Selection) Included(key string) bool {
	return s.Surcharges[key].Included
}

func (s Selection) Quantity(key string) int {
	return s.State(key).Quantity
}

// With returns a copy of s with key set to st.
func (s Selection) With(key string, st SurchargeState) Selection {
	out := s.Clone()
	out.Surcharges[key] = st
	return out
}

func (s Selection) Clone() Selection {
	out := Selection{Primary: s.Primary, Surcharges: make(map[string]SurchargeState, len(s.Surcharges))}
	for k, v := range s.Surcharges {
		out.Surcharges[k] = v
	}
	return out
}
