// README: Price request aggregate, stage machine and carrier-facing lane rows.
package pricerequest

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lanepricing/internal/modules/lane"
	"lanepricing/internal/types"
)

type Stage string

const (
	StageNone            Stage = "none"
	StageRequested       Stage = "requested"
	StageAnswerReceived  Stage = "answer_received"
	StageChangeRequested Stage = "change_requested"
	StageCancelled       Stage = "cancelled"
)

const (
	ActorInternal = "internal"
	ActorCarrier  = "carrier"
)

var (
	ErrNotFound      = errors.New("price request not found")
	ErrInvalidStage  = errors.New("invalid stage transition")
	ErrConflict      = errors.New("price request stage conflict")
	ErrLocked        = errors.New("prices have already been submitted; request edit access to make changes")
	ErrNoChanges     = errors.New("there are no changes")
	ErrAccessDenied  = errors.New("access code is not valid")
	ErrNoCarriers    = errors.New("select at least one carrier")
	ErrUnknownCharge = errors.New("unknown additional charge")
)

// AllowedTransitions is the price request stage flow.
var AllowedTransitions = map[Stage][]Stage{
	StageNone:            {StageRequested},
	StageRequested:       {StageAnswerReceived, StageCancelled},
	StageAnswerReceived:  {StageChangeRequested},
	StageChangeRequested: {StageRequested, StageCancelled},
}

func CanTransition(from, to Stage) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type PriceRequest struct {
	ID              types.ID   `json:"id"`
	Name            string     `json:"name"`
	AccountID       types.ID   `json:"account_id"`
	AccountName     string     `json:"account_name"`
	SeasonName      string     `json:"season_name"`
	Query           lane.Query `json:"query"`
	Stage           Stage      `json:"stage"`
	StageVersion    int        `json:"stage_version"`
	RequiredCharges []string   `json:"required_charges"`
	CreatedAt       time.Time  `json:"created_at"`
	AnsweredAt      *time.Time `json:"answered_at,omitempty"`
}

// Editable reports whether the carrier may still change prices.
func (p PriceRequest) Editable() bool {
	return p.Stage == StageRequested
}

type Event struct {
	ID             int64
	PriceRequestID types.ID
	FromStage      Stage
	ToStage        Stage
	ActorType      string
	CreatedAt      time.Time
}

// LaneRow is one lane the carrier is asked to price. FreightPrice is nil
// until a price is entered.
type LaneRow struct {
	ID                     types.ID         `json:"id"`
	LaneName               string           `json:"lane_name"`
	LoadingPostalCode      string           `json:"loading_postal_code"`
	LoadingCountryCode     string           `json:"loading_country_code"`
	DeliveryPostalCode     string           `json:"delivery_postal_code"`
	DeliveryCountryCode    string           `json:"delivery_country_code"`
	TrailerType            string           `json:"trailer_type"`
	FreightPrice           *decimal.Decimal `json:"freight_price"`
	Mandatory              bool             `json:"mandatory"`
	SourcePriceRequestName string           `json:"source_price_request_name,omitempty"`
}

func (r LaneRow) Priced() bool {
	return r.FreightPrice != nil
}

// field returns the text value of a sortable column.
func (r LaneRow) field(name string) (string, bool) {
	switch name {
	case "laneName":
		return r.LaneName, true
	case "loadingPostalCode":
		return r.LoadingPostalCode, true
	case "loadingCountryCode":
		return r.LoadingCountryCode, true
	case "deliveryPostalCode":
		return r.DeliveryPostalCode, true
	case "deliveryCountryCode":
		return r.DeliveryCountryCode, true
	case "trailerType":
		return r.TrailerType, true
	case "sourcePriceRequestName":
		return r.SourcePriceRequestName, true
	case "freightPrice":
		if r.FreightPrice == nil {
			return "", true
		}
		return r.FreightPrice.String(), true
	}
	return "", false
}

func (r LaneRow) matches(search string) bool {
	for _, v := range []string{r.LaneName, r.LoadingPostalCode, r.LoadingCountryCode, r.DeliveryPostalCode, r.DeliveryCountryCode, r.TrailerType} {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}
