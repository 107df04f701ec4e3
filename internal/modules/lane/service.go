// README: Lane service: lookups, candidate loading and account price history.
package lane

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/modules/ranking"
	"lanepricing/internal/types"
)

// Source is the lane data the service reads; *Store implements it.
type Source interface {
	Seasons(ctx context.Context, kind SeasonKind) ([]Season, error)
	TrailerTypes(ctx context.Context) ([]string, error)
	Locations(ctx context.Context) ([]Location, error)
	Location(ctx context.Context, id types.ID) (Location, error)
	Prices(ctx context.Context, q Query) ([]PriceRow, error)
	PotentialCarriers(ctx context.Context, q Query, countryCode string) ([]Carrier, error)
	AccountHistory(ctx context.Context, accountID types.ID) ([]HistoryRow, error)
	ScoreRecords(ctx context.Context, q Query) ([]ranking.ScoreRecord, error)
}

type Service struct {
	src         Source
	catalog     *pricing.Catalog
	historyStep int
	log         *zap.Logger
}

func NewService(src Source, catalog *pricing.Catalog, historyStep int, log *zap.Logger) *Service {
	if catalog == nil {
		catalog = pricing.DefaultCatalog()
	}
	if historyStep <= 0 {
		historyStep = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, catalog: catalog, historyStep: historyStep, log: log}
}

// Lookups loads seasons, trailer types and locations concurrently.
func (s *Service) Lookups(ctx context.Context) (Lookups, error) {
	var out Lookups
	var locations []Location

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TenderSeasons, err = s.src.Seasons(gctx, SeasonTender)
		return err
	})
	g.Go(func() (err error) {
		out.SpotSeasons, err = s.src.Seasons(gctx, SeasonSpot)
		return err
	})
	g.Go(func() (err error) {
		out.TrailerTypes, err = s.src.TrailerTypes(gctx)
		return err
	})
	g.Go(func() (err error) {
		locations, err = s.src.Locations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("load lookups", zap.Error(err))
		return Lookups{}, fmt.Errorf("load lookups: %w", err)
	}

	if slices.Contains(out.TrailerTypes, DefaultTrailerType) {
		out.DefaultTrailerType = DefaultTrailerType
	}
	out.LoadingLocations = []Location{}
	out.DeliveryLocations = []Location{}
	for _, l := range locations {
		switch l.Type {
		case LocationLoading:
			out.LoadingLocations = append(out.LoadingLocations, l)
		case LocationDelivery:
			out.DeliveryLocations = append(out.DeliveryLocations, l)
		}
	}
	return out, nil
}

// Offer loads the candidates a board opens with. Spot mode also lists the
// carriers that could be asked for a price.
func (s *Service) Offer(ctx context.Context, mode Mode, q Query) (Offer, error) {
	if !mode.Valid() {
		return Offer{}, ErrUnknownMode
	}
	if err := q.Validate(); err != nil {
		return Offer{}, err
	}

	var (
		rows      []PriceRow
		loading   Location
		delivery  Location
		potential []Carrier
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows, err = s.src.Prices(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		loading, err = s.src.Location(gctx, q.LoadingLocationID)
		return err
	})
	g.Go(func() (err error) {
		delivery, err = s.src.Location(gctx, q.DeliveryLocationID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("load offer", zap.String("mode", string(mode)), zap.Error(err))
		return Offer{}, fmt.Errorf("load offer: %w", err)
	}

	if mode == ModeSpot {
		var err error
		potential, err = s.src.PotentialCarriers(ctx, q, delivery.CountryCode)
		if err != nil {
			s.log.Error("load potential carriers", zap.Error(err))
			return Offer{}, fmt.Errorf("load potential carriers: %w", err)
		}
		for i := range potential {
			potential[i].Index = i + 1
		}
	}

	return Offer{
		LaneName:   loading.Name + " → " + delivery.Name,
		Candidates: BuildCandidates(s.catalog, mode, rows),
		Potential:  potential,
	}, nil
}

// BuildCandidates turns price rows into ranked candidates with the initial
// selection: fuel surcharge and additional stops are included when the lane
// has a base price, and the first ranked candidate is primary.
func BuildCandidates(catalog *pricing.Catalog, mode Mode, rows []PriceRow) []pricing.Candidate {
	cands := make([]pricing.Candidate, 0, len(rows))
	for _, r := range rows {
		priced := !r.FreightPrice.IsZero()
		c := pricing.Candidate{
			ID:                 r.AccountID,
			AccountName:        r.AccountName,
			LanePriceID:        r.LanePriceID,
			LaneID:             r.LaneID,
			LaneName:           r.LaneName,
			TrailerType:        r.TrailerType,
			LoadingPostalCode:  r.LoadingPostalCode,
			DeliveryPostalCode: r.DeliveryPostalCode,
			Preferred:          r.Preferred,
			Sheet:              catalog.Sheet(types.RoundCents(r.FreightPrice), r.Surcharges),
			Scores:             r.Scores,
			Selection: pricing.Selection{Surcharges: map[string]pricing.SurchargeState{
				pricing.KeyFuelSurcharge:   {Included: priced},
				pricing.KeyAdditionalStops: {Included: priced, Quantity: pricing.DefaultQuantity(pricing.KeyAdditionalStops)},
				pricing.KeyWaitingHour:     {Quantity: pricing.DefaultQuantity(pricing.KeyWaitingHour)},
				pricing.KeyPalletExchange:  {Quantity: pricing.DefaultQuantity(pricing.KeyPalletExchange)},
			}},
		}
		c.Recalculate()
		cands = append(cands, c)
	}

	variant := ranking.VariantPreferred
	if mode == ModeSpot {
		variant = ranking.VariantPreferredBasePrice
	}
	ranked, _ := ranking.Rank(cands, variant)
	if len(ranked) > 0 {
		ranked[0].Selection.Primary = true
	}
	return ranked
}

// History returns the account's lane prices filtered by season and lane name,
// limited to the number of rows the caller has asked to show.
func (s *Service) History(ctx context.Context, accountID types.ID, f HistoryFilter) (HistoryPage, error) {
	rows, err := s.src.AccountHistory(ctx, accountID)
	if err != nil {
		s.log.Error("load account history", zap.String("account_id", string(accountID)), zap.Error(err))
		return HistoryPage{}, fmt.Errorf("load account history: %w", err)
	}
	return FilterHistory(rows, f, s.historyStep), nil
}

func FilterHistory(rows []HistoryRow, f HistoryFilter, step int) HistoryPage {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	filtered := make([]HistoryRow, 0, len(rows))
	for _, r := range rows {
		if f.SeasonID != "" && r.SeasonID != f.SeasonID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.LaneName), search) {
			continue
		}
		filtered = append(filtered, r)
	}

	shown := f.Shown
	if shown <= 0 {
		shown = step
	}
	if shown > len(filtered) {
		shown = len(filtered)
	}
	return HistoryPage{
		Rows:    filtered[:shown],
		Total:   len(filtered),
		HasMore: shown < len(filtered),
	}
}

type ScoreTables struct {
	Reliability  []ranking.Aggregate `json:"reliability"`
	Availability []ranking.Aggregate `json:"availability"`
	PriceLevel   []ranking.Aggregate `json:"price_level"`
}

// Scores aggregates carrier scores for the lanes matching q.
func (s *Service) Scores(ctx context.Context, q Query) (ScoreTables, error) {
	if err := q.Validate(); err != nil {
		return ScoreTables{}, err
	}
	records, err := s.src.ScoreRecords(ctx, q)
	if err != nil {
		s.log.Error("load score records", zap.Error(err))
		return ScoreTables{}, fmt.Errorf("load score records: %w", err)
	}
	aggs := ranking.AggregateScores(records)
	return ScoreTables{
		Reliability:  ranking.TopBy(aggs, ranking.MetricReliability),
		Availability: ranking.TopBy(aggs, ranking.MetricAvailability),
		PriceLevel:   ranking.TopBy(aggs, ranking.MetricPriceLevel),
	}, nil
}
