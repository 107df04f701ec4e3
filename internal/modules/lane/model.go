// README: Lane lookups, carrier price rows and account history records.
package lane

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/types"
)

const DefaultTrailerType = "Frigo - chilled"

var (
	ErrInvalidQuery     = errors.New("season, trailer type, loading and delivery location are required")
	ErrLocationNotFound = errors.New("location not found")
	ErrUnknownMode      = errors.New("unknown comparison mode")
)

// Mode selects how a board is opened.
type Mode string

const (
	ModeCompare Mode = "compare"
	ModeSpot    Mode = "spot"
)

func (m Mode) Valid() bool {
	return m == ModeCompare || m == ModeSpot
}

type SeasonKind string

const (
	SeasonTender SeasonKind = "tender"
	SeasonSpot   SeasonKind = "spot"
)

type Season struct {
	ID   types.ID   `json:"id"`
	Name string     `json:"name"`
	Kind SeasonKind `json:"kind"`
}

type LocationType string

const (
	LocationLoading  LocationType = "Loading"
	LocationDelivery LocationType = "Delivery"
)

type Location struct {
	ID          types.ID     `json:"id"`
	Name        string       `json:"name"`
	Type        LocationType `json:"type"`
	CountryCode string       `json:"country_code"`
	PostalCode  string       `json:"postal_code"`
}

type Lookups struct {
	TenderSeasons      []Season   `json:"tender_seasons"`
	SpotSeasons        []Season   `json:"spot_seasons"`
	TrailerTypes       []string   `json:"trailer_types"`
	DefaultTrailerType string     `json:"default_trailer_type"`
	LoadingLocations   []Location `json:"loading_locations"`
	DeliveryLocations  []Location `json:"delivery_locations"`
}

// Query identifies a lane: season, trailer type and a location pair.
type Query struct {
	SeasonID           types.ID `json:"season_id"`
	TrailerType        string   `json:"trailer_type"`
	LoadingLocationID  types.ID `json:"loading_location_id"`
	DeliveryLocationID types.ID `json:"delivery_location_id"`
}

func (q Query) Validate() error {
	if q.SeasonID == "" || q.TrailerType == "" || q.LoadingLocationID == "" || q.DeliveryLocationID == "" {
		return ErrInvalidQuery
	}
	return nil
}

// PriceRow is one carrier's quoted price for a lane plus its account surcharges.
type PriceRow struct {
	LanePriceID        types.ID
	LaneID             types.ID
	LaneName           string
	AccountID          types.ID
	AccountName        string
	Preferred          bool
	TrailerType        string
	LoadingPostalCode  string
	DeliveryPostalCode string
	FreightPrice       decimal.Decimal
	Surcharges         map[string]decimal.Decimal
	Scores             pricing.Scores
}

// Carrier is a potential carrier for a spot request: it serves the delivery
// country but has no price for the lane yet.
type Carrier struct {
	AccountID types.ID `json:"account_id"`
	Name      string   `json:"name"`
	Index     int      `json:"index"`
}

// Offer is what a board is opened with.
type Offer struct {
	LaneName   string              `json:"lane_name"`
	Candidates []pricing.Candidate `json:"candidates"`
	Potential  []Carrier           `json:"potential_carriers,omitempty"`
}

type HistoryRow struct {
	LanePriceID      types.ID        `json:"lane_price_id"`
	PriceRequestID   types.ID        `json:"price_request_id,omitempty"`
	PriceRequestName string          `json:"price_request_name,omitempty"`
	LaneName         string          `json:"lane_name"`
	SeasonID         types.ID        `json:"season_id"`
	FreightPrice     decimal.Decimal `json:"freight_price"`
	TrailerType      string          `json:"trailer_type"`
	RequestDate      time.Time       `json:"request_date"`
}

type HistoryFilter struct {
	SeasonID types.ID
	Search   string
	// Shown is how many rows the caller wants; zero means one step.
	Shown int
}

type HistoryPage struct {
	Rows    []HistoryRow `json:"rows"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
}
