// README: Pure board reducer: (board, action) -> board.
package selection

import (
	"fmt"

	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/modules/ranking"
	"lanepricing/internal/types"
)

// Reduce applies a to a copy of b. The input board is never modified.
// The touched candidate is repriced; the board is re-ranked only for Rank
// actions or when its policy is Resort.
func Reduce(b Board, a Action) (Board, error) {
	out := b.Clone()

	switch act := a.(type) {
	case ToggleSurcharge:
		c, err := out.surcharge(act.CandidateID, act.Key)
		if err != nil {
			return b, err
		}
		st := c.Selection.Surcharges[act.Key]
		st.Included = act.Included
		c.Selection.Surcharges[act.Key] = st
		c.Recalculate()

	case SetQuantity:
		c, err := out.surcharge(act.CandidateID, act.Key)
		if err != nil {
			return b, err
		}
		q := act.Quantity
		if q < 1 {
			q = pricing.DefaultQuantity(act.Key)
		}
		st := c.Selection.Surcharges[act.Key]
		st.Quantity = q
		c.Selection.Surcharges[act.Key] = st
		c.Recalculate()

	case SelectPrimary:
		if out.find(act.CandidateID) < 0 {
			return b, fmt.Errorf("%w: %s", ErrUnknownCandidate, act.CandidateID)
		}
		for i := range out.Candidates {
			out.Candidates[i].Selection.Primary = out.Candidates[i].ID == act.CandidateID
		}

	case SelectAllSurcharges:
		i := out.find(act.CandidateID)
		if i < 0 {
			return b, fmt.Errorf("%w: %s", ErrUnknownCandidate, act.CandidateID)
		}
		c := &out.Candidates[i]
		ensureSurcharges(c)
		for _, s := range c.Sheet.Surcharges {
			st := c.Selection.Surcharges[s.Key]
			st.Included = act.Included
			if s.Kind == pricing.KindPerUnit {
				st.QuantityDisabled = !act.Included
			}
			c.Selection.Surcharges[s.Key] = st
		}
		c.Recalculate()

	case Rank:
		ranked, err := ranking.Rank(out.Candidates, act.Variant)
		if err != nil {
			return b, err
		}
		out.Candidates = ranked
		return out, nil

	default:
		return b, ErrUnknownAction
	}

	if out.Policy == Resort {
		out.Candidates, _ = ranking.Rank(out.Candidates, ranking.VariantSelection)
	}
	return out, nil
}

// Advance moves the board from select to review. A primary selection is
// required; candidates are re-ranked by selection.
func Advance(b Board) (Board, error) {
	if b.Stage != StageSelect {
		return b, ErrInvalidStage
	}
	if _, ok := b.Primary(); !ok {
		return b, ErrNoPrimarySelection
	}
	out := b.Clone()
	out.Stage = StageReview
	out.Candidates, _ = ranking.Rank(out.Candidates, ranking.VariantSelection)
	return out, nil
}

// Back returns the board from review to select, keeping the selection.
func Back(b Board) (Board, error) {
	if b.Stage != StageReview {
		return b, ErrInvalidStage
	}
	out := b.Clone()
	out.Stage = StageSelect
	out.Candidates, _ = ranking.Rank(out.Candidates, ranking.VariantSelection)
	return out, nil
}

func (b *Board) surcharge(id types.ID, key string) (*pricing.Candidate, error) {
	for i := range b.Candidates {
		c := &b.Candidates[i]
		if c.ID != id {
			continue
		}
		if _, ok := c.Sheet.Surcharge(key); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSurcharge, key)
		}
		ensureSurcharges(c)
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
}

func ensureSurcharges(c *pricing.Candidate) {
	if c.Selection.Surcharges == nil {
		c.Selection.Surcharges = map[string]pricing.SurchargeState{}
	}
}
