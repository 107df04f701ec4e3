// README: Candidate ranking variants used by the comparison board.
package ranking

import (
	"errors"
	"slices"

	"lanepricing/internal/modules/pricing"
)

type Variant string

const (
	// VariantPreferred puts preferred carriers first and keeps the rest in order.
	VariantPreferred Variant = "preferred"
	// VariantSelection orders primary, then preferred, then ascending total.
	VariantSelection Variant = "selection"
	// VariantPreferredBasePrice orders preferred, then ascending base price.
	VariantPreferredBasePrice Variant = "preferred_base_price"
)

var ErrUnknownVariant = errors.New("unknown ranking variant")

func (v Variant) Valid() bool {
	switch v {
	case VariantPreferred, VariantSelection, VariantPreferredBasePrice:
		return true
	}
	return false
}

// Rank returns a ranked, renumbered copy of cands. The input is not modified.
func Rank(cands []pricing.Candidate, v Variant) ([]pricing.Candidate, error) {
	var out []pricing.Candidate
	switch v {
	case VariantPreferred:
		out = ByPreferred(cands)
	case VariantSelection:
		out = BySelection(cands)
	case VariantPreferredBasePrice:
		out = ByPreferredThenBasePrice(cands)
	default:
		return nil, ErrUnknownVariant
	}
	Renumber(out)
	return out, nil
}

func ByPreferred(cands []pricing.Candidate) []pricing.Candidate {
	out := slices.Clone(cands)
	slices.SortStableFunc(out, func(a, b pricing.Candidate) int {
		return flagFirst(a.Preferred, b.Preferred)
	})
	return out
}

func BySelection(cands []pricing.Candidate) []pricing.Candidate {
	out := slices.Clone(cands)
	slices.SortStableFunc(out, func(a, b pricing.Candidate) int {
		if c := flagFirst(a.Selection.Primary, b.Selection.Primary); c != 0 {
			return c
		}
		if c := flagFirst(a.Preferred, b.Preferred); c != 0 {
			return c
		}
		return a.Total.Cmp(b.Total)
	})
	return out
}

func ByPreferredThenBasePrice(cands []pricing.Candidate) []pricing.Candidate {
	out := slices.Clone(cands)
	slices.SortStableFunc(out, func(a, b pricing.Candidate) int {
		if c := flagFirst(a.Preferred, b.Preferred); c != 0 {
			return c
		}
		return a.Sheet.BasePrice.Cmp(b.Sheet.BasePrice)
	})
	return out
}

// Renumber assigns 1-based display indexes in slice order.
func Renumber(cands []pricing.Candidate) {
	for i := range cands {
		cands[i].Index = i + 1
	}
}

func flagFirst(a, b bool) int {
	switch {
	case a && !b:
		return -1
	case !a && b:
		return 1
	}
	return 0
}
