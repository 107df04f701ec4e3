// README: Selection board state and the actions that mutate it.
package selection

import (
	"errors"

	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/modules/ranking"
	"lanepricing/internal/types"
)

var (
	ErrUnknownCandidate   = errors.New("unknown candidate")
	ErrUnknownSurcharge   = errors.New("surcharge not on rate sheet")
	ErrUnknownAction      = errors.New("unknown action")
	ErrNoPrimarySelection = errors.New("no primary selection")
	ErrInvalidStage       = errors.New("invalid stage transition")
)

// ResortPolicy decides whether a selection change re-ranks the board.
type ResortPolicy string

const (
	KeepOrder ResortPolicy = "keep_order"
	Resort    ResortPolicy = "resort"
)

func (p ResortPolicy) Valid() bool {
	return p == KeepOrder || p == Resort
}

type Stage string

const (
	StageSelect Stage = "select"
	StageReview Stage = "review"
)

type Board struct {
	Stage      Stage               `json:"stage"`
	Policy     ResortPolicy        `json:"policy"`
	Candidates []pricing.Candidate `json:"candidates"`
}

func (b Board) Clone() Board {
	out := b
	out.Candidates = make([]pricing.Candidate, len(b.Candidates))
	for i, c := range b.Candidates {
		out.Candidates[i] = c.Clone()
	}
	return out
}

func (b Board) find(id types.ID) int {
	for i, c := range b.Candidates {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Primary returns the candidate marked as primary selection.
func (b Board) Primary() (pricing.Candidate, bool) {
	for _, c := range b.Candidates {
		if c.Selection.Primary {
			return c, true
		}
	}
	return pricing.Candidate{}, false
}

type Action interface {
	isAction()
}

type ToggleSurcharge struct {
	CandidateID types.ID
	Key         string
	Included    bool
}

type SetQuantity struct {
	CandidateID types.ID
	Key         string
	Quantity    int
}

type SelectPrimary struct {
	CandidateID types.ID
}

type SelectAllSurcharges struct {
	CandidateID types.ID
	Included    bool
}

type Rank struct {
	Variant ranking.Variant
}

func (ToggleSurcharge) isAction()     {}
func (SetQuantity) isAction()         {}
func (SelectPrimary) isAction()       {}
func (SelectAllSurcharges) isAction() {}
func (Rank) isAction()                {}

// Envelope is the wire form of an action.
type Envelope struct {
	Type        string          `json:"type"`
	CandidateID types.ID        `json:"candidate_id"`
	Key         string          `json:"key,omitempty"`
	Included    bool            `json:"included,omitempty"`
	Quantity    int             `json:"quantity,omitempty"`
	Variant     ranking.Variant `json:"variant,omitempty"`
}

func (e Envelope) Action() (Action, error) {
	switch e.Type {
	case "toggle_surcharge":
		return ToggleSurcharge{CandidateID: e.CandidateID, Key: e.Key, Included: e.Included}, nil
	case "set_quantity":
		return SetQuantity{CandidateID: e.CandidateID, Key: e.Key, Quantity: e.Quantity}, nil
	case "select_primary":
		return SelectPrimary{CandidateID: e.CandidateID}, nil
	case "select_all_surcharges":
		return SelectAllSurcharges{CandidateID: e.CandidateID, Included: e.Included}, nil
	case "rank":
		return Rank{Variant: e.Variant}, nil
	}
	return nil, ErrUnknownAction
}
