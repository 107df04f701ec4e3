// README: Comparison board sessions and preferred supplier records.
package comparison

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"lanepricing/internal/modules/lane"
	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/modules/selection"
	"lanepricing/internal/types"
)

var (
	ErrNotFound       = errors.New("board not found")
	ErrConflict       = errors.New("board was modified concurrently")
	ErrNotSpotBoard   = errors.New("price requests can only be sent from a spot board")
	ErrNoCarriers     = errors.New("select at least one carrier")
	ErrUnknownCarrier = errors.New("carrier is not a potential carrier on this board")
)

// Session is a comparison board held between requests.
type Session struct {
	ID        types.ID        `json:"id"`
	Mode      lane.Mode       `json:"mode"`
	Query     lane.Query      `json:"query"`
	LaneName  string          `json:"lane_name"`
	Board     selection.Board `json:"board"`
	Potential []lane.Carrier  `json:"potential_carriers,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Closing is set while a submit or price request owns the board.
	Closing bool `json:"closing,omitempty"`
}

// PreferredSupplier records the carrier chosen at the end of a comparison,
// with the surcharge configuration that produced its total price.
type PreferredSupplier struct {
	ID          types.ID                          `json:"id"`
	AccountID   types.ID                          `json:"account_id"`
	LanePriceID types.ID                          `json:"lane_price_id,omitempty"`
	Query       lane.Query                        `json:"query"`
	TotalPrice  decimal.Decimal                   `json:"total_price"`
	Configs     map[string]pricing.SurchargeState `json:"configs"`
	CreatedAt   time.Time                         `json:"created_at"`
}
