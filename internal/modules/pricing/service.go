// README: Pricing service prices a stored lane rate sheet for an account.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"lanepricing/internal/types"
)

var ErrNotFound = errors.New("rate sheet not found")

// SheetSource loads rate sheets; *Store is the production implementation.
type SheetSource interface {
	RateSheet(ctx context.Context, lanePriceID types.ID) (RateSheet, error)
}

type Service struct {
	sheets  SheetSource
	catalog *Catalog
}

func NewService(sheets SheetSource, catalog *Catalog) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{sheets: sheets, catalog: catalog}
}

func (s *Service) Catalog() *Catalog {
	return s.catalog
}

type EstimateCommand struct {
	LanePriceID   types.ID
	Selection     Selection
	MarginPercent decimal.Decimal
}

type Estimate struct {
	Quote      Quote       `json:"quote"`
	Margin     types.Money `json:"margin"`
	SalesPrice types.Money `json:"sales_price"`
}

func (s *Service) Estimate(ctx context.Context, cmd EstimateCommand) (Estimate, error) {
	sheet, err := s.sheets.RateSheet(ctx, cmd.LanePriceID)
	if err != nil {
		return Estimate{}, fmt.Errorf("load rate sheet %s: %w", cmd.LanePriceID, err)
	}
	return EstimateSheet(sheet, cmd.Selection, cmd.MarginPercent), nil
}

// EstimateSheet prices sheet without touching storage.
func EstimateSheet(sheet RateSheet, sel Selection, marginPercent decimal.Decimal) Estimate {
	q := Price(sheet, sel)
	return Estimate{
		Quote:      q,
		Margin:     types.EUR(Margin(q.Total, marginPercent)),
		SalesPrice: types.EUR(q.Total),
	}
}
