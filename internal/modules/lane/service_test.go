package lane

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/modules/ranking"
	"lanepricing/internal/types"
)

type fakeSource struct {
	seasons   map[SeasonKind][]Season
	trailers  []string
	locations []Location
	prices    []PriceRow
	potential []Carrier
	history   []HistoryRow
	scores    []ranking.ScoreRecord
	err       error

	potentialCountry string
}

func (f *fakeSource) Seasons(_ context.Context, kind SeasonKind) ([]Season, error) {
	return f.seasons[kind], f.err
}

func (f *fakeSource) TrailerTypes(context.Context) ([]string, error) { return f.trailers, f.err }

func (f *fakeSource) Locations(context.Context) ([]Location, error) { return f.locations, f.err }

func (f *fakeSource) Location(_ context.Context, id types.ID) (Location, error) {
	for _, l := range f.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return Location{}, ErrLocationNotFound
}

func (f *fakeSource) Prices(context.Context, Query) ([]PriceRow, error) { return f.prices, f.err }

func (f *fakeSource) PotentialCarriers(_ context.Context, _ Query, country string) ([]Carrier, error) {
	f.potentialCountry = country
	return f.potential, f.err
}

func (f *fakeSource) AccountHistory(context.Context, types.ID) ([]HistoryRow, error) {
	return f.history, f.err
}

func (f *fakeSource) ScoreRecords(context.Context, Query) ([]ranking.ScoreRecord, error) {
	return f.scores, f.err
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testQuery = Query{SeasonID: "s1", TrailerType: DefaultTrailerType, LoadingLocationID: "lo1", DeliveryLocationID: "de1"}

func testLocations() []Location {
	return []Location{
		{ID: "lo1", Name: "Venlo", Type: LocationLoading, CountryCode: "NL"},
		{ID: "de1", Name: "Milano", Type: LocationDelivery, CountryCode: "IT"},
		{ID: "de2", Name: "Lyon", Type: LocationDelivery, CountryCode: "FR"},
	}
}

func TestService_Lookups(t *testing.T) {
	src := &fakeSource{
		seasons: map[SeasonKind][]Season{
			SeasonTender: {{ID: "t26", Name: "Tender 2026", Kind: SeasonTender}},
			SeasonSpot:   {{ID: "sp26", Name: "Spot 2026", Kind: SeasonSpot}},
		},
		trailers:  []string{"Dual Temp", DefaultTrailerType},
		locations: testLocations(),
	}
	got, err := NewService(src, nil, 0, nil).Lookups(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultTrailerType, got.DefaultTrailerType)
	assert.Len(t, got.TenderSeasons, 1)
	assert.Len(t, got.SpotSeasons, 1)
	assert.Len(t, got.LoadingLocations, 1)
	assert.Len(t, got.DeliveryLocations, 2)

	src.trailers = []string{"Dual Temp"}
	got, err = NewService(src, nil, 0, nil).Lookups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.DefaultTrailerType)

	src.err = errors.New("db down")
	_, err = NewService(src, nil, 0, nil).Lookups(context.Background())
	assert.ErrorIs(t, err, src.err)
}

func TestBuildCandidates_CompareMode(t *testing.T) {
	rows := []PriceRow{
		{AccountID: "a", AccountName: "Alpha", FreightPrice: d("100"), Surcharges: map[string]decimal.Decimal{
			pricing.KeyFuelSurcharge:   d("10"),
			pricing.KeyAdditionalStops: d("5"),
			pricing.KeyTailLift:        d("40"),
		}},
		{AccountID: "b", AccountName: "Bravo", FreightPrice: d("80"), Preferred: true},
		{AccountID: "c", AccountName: "Charlie", FreightPrice: decimal.Zero, Surcharges: map[string]decimal.Decimal{
			pricing.KeyFuelSurcharge: d("10"),
		}},
	}
	cands := BuildCandidates(pricing.DefaultCatalog(), ModeCompare, rows)
	require.Len(t, cands, 3)

	assert.Equal(t, types.ID("b"), cands[0].ID, "preferred first")
	assert.True(t, cands[0].Selection.Primary)
	assert.Equal(t, 1, cands[0].Index)
	assert.Equal(t, []types.ID{"a", "c"}, []types.ID{cands[1].ID, cands[2].ID}, "stable order after preferred")
	assert.False(t, cands[1].Selection.Primary)

	alpha := cands[1]
	// 100 + 10% fuel + 5 * 2 stops; tail lift not included by default
	assert.Equal(t, "120.00", alpha.Total.StringFixed(2))
	assert.Equal(t, 2, alpha.Selection.Quantity(pricing.KeyAdditionalStops))
	assert.Equal(t, 1, alpha.Selection.Quantity(pricing.KeyWaitingHour))

	charlie := cands[2]
	assert.False(t, charlie.Selection.Included(pricing.KeyFuelSurcharge), "no base price, no default surcharges")
	assert.True(t, charlie.Total.IsZero())
}

func TestBuildCandidates_SpotModeSortsByBasePrice(t *testing.T) {
	rows := []PriceRow{
		{AccountID: "a", FreightPrice: d("300")},
		{AccountID: "b", FreightPrice: d("100")},
		{AccountID: "c", FreightPrice: d("500"), Preferred: true},
	}
	cands := BuildCandidates(pricing.DefaultCatalog(), ModeSpot, rows)
	assert.Equal(t, []types.ID{"c", "b", "a"}, []types.ID{cands[0].ID, cands[1].ID, cands[2].ID})
	assert.True(t, cands[0].Selection.Primary)
}

func TestBuildCandidates_Empty(t *testing.T) {
	assert.Empty(t, BuildCandidates(pricing.DefaultCatalog(), ModeCompare, nil))
}

func TestService_Offer(t *testing.T) {
	src := &fakeSource{
		locations: testLocations(),
		prices:    []PriceRow{{AccountID: "a", FreightPrice: d("100")}},
		potential: []Carrier{{AccountID: "p1", Name: "Papa"}, {AccountID: "p2", Name: "Quebec"}},
	}
	svc := NewService(src, nil, 0, nil)

	offer, err := svc.Offer(context.Background(), ModeCompare, testQuery)
	require.NoError(t, err)
	assert.Equal(t, "Venlo → Milano", offer.LaneName)
	assert.Len(t, offer.Candidates, 1)
	assert.Empty(t, offer.Potential)

	offer, err = svc.Offer(context.Background(), ModeSpot, testQuery)
	require.NoError(t, err)
	assert.Equal(t, "IT", src.potentialCountry)
	require.Len(t, offer.Potential, 2)
	assert.Equal(t, 2, offer.Potential[1].Index)

	_, err = svc.Offer(context.Background(), ModeCompare, Query{SeasonID: "s1"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.Offer(context.Background(), Mode("auction"), testQuery)
	assert.ErrorIs(t, err, ErrUnknownMode)

	bad := testQuery
	bad.DeliveryLocationID = "nowhere"
	_, err = svc.Offer(context.Background(), ModeCompare, bad)
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func historyRows(n int) []HistoryRow {
	rows := make([]HistoryRow, 0, n)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		season := types.ID("s1")
		name := "Venlo → Milano"
		if i%3 == 0 {
			season = "s2"
			name = "Venlo → Lyon"
		}
		rows = append(rows, HistoryRow{
			LanePriceID: types.NewID(),
			LaneName:    name,
			SeasonID:    season,
			RequestDate: base.Add(-time.Duration(i) * time.Hour),
		})
	}
	return rows
}

func TestFilterHistory(t *testing.T) {
	rows := historyRows(30)

	page := FilterHistory(rows, HistoryFilter{}, 10)
	assert.Len(t, page.Rows, 10)
	assert.Equal(t, 30, page.Total)
	assert.True(t, page.HasMore)

	page = FilterHistory(rows, HistoryFilter{Shown: 40}, 10)
	assert.Len(t, page.Rows, 30)
	assert.False(t, page.HasMore)

	page = FilterHistory(rows, HistoryFilter{SeasonID: "s2", Shown: 20}, 10)
	assert.Equal(t, 10, page.Total)
	for _, r := range page.Rows {
		assert.Equal(t, types.ID("s2"), r.SeasonID)
	}

	page = FilterHistory(rows, HistoryFilter{Search: "  MILANO "}, 10)
	assert.Equal(t, 20, page.Total)
	assert.Len(t, page.Rows, 10)

	page = FilterHistory(rows, HistoryFilter{Search: "rotterdam"}, 10)
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Rows)
}

func TestService_Scores(t *testing.T) {
	four, two := 4.0, 2.0
	src := &fakeSource{scores: []ranking.ScoreRecord{
		{ID: "x", Product: "Venlo → Milano", Carrier: "Alpha", Samples: []ranking.ScoreSample{{Reliability: &two}}},
		{ID: "y", Product: "Venlo → Milano", Carrier: "Bravo", Samples: []ranking.ScoreSample{{Reliability: &four}}},
	}}
	tables, err := NewService(src, nil, 0, nil).Scores(context.Background(), testQuery)
	require.NoError(t, err)
	require.Len(t, tables.Reliability, 2)
	assert.Equal(t, "Bravo", tables.Reliability[0].Carrier)
}
