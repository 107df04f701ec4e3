// README: Priced candidate: one carrier's offer on a board.
package pricing

import (
	"github.com/shopspring/decimal"

	"lanepricing/internal/types"
)

// Scores are the carrier's latest evaluation scores, nil when unknown.
type Scores struct {
	Availability *float64 `json:"availability,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Reliability  *float64 `json:"reliability,omitempty"`
}

// Candidate is keyed by the carrier account id, which is unique per board.
type Candidate struct {
	ID                 types.ID        `json:"id"`
	AccountName        string          `json:"account_name"`
	LanePriceID        types.ID        `json:"lane_price_id,omitempty"`
	LaneID             types.ID        `json:"lane_id,omitempty"`
	LaneName           string          `json:"lane_name,omitempty"`
	TrailerType        string          `json:"trailer_type,omitempty"`
	LoadingPostalCode  string          `json:"loading_postal_code,omitempty"`
	DeliveryPostalCode string          `json:"delivery_postal_code,omitempty"`
	Preferred          bool            `json:"preferred"`
	Sheet              RateSheet       `json:"sheet"`
	Selection          Selection       `json:"selection"`
	Total              decimal.Decimal `json:"total"`
	Index              int             `json:"index"`
	Scores             Scores          `json:"scores"`
}

// Recalculate refreshes Total from the sheet and selection.
func (c *Candidate) Recalculate() {
	c.Total = Calculate(c.Sheet, c.Selection)
}

// Clone copies the candidate including its selection map.
func (c Candidate) Clone() Candidate {
	c.Selection = c.Selection.Clone()
	return c
}
