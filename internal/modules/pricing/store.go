// README: Pricing store backed by PostgreSQL (lane base price + account surcharges).
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lanepricing/internal/types"
)

type Store struct {
	db      *pgxpool.Pool
	catalog *Catalog
}

func NewStore(db *pgxpool.Pool, catalog *Catalog) *Store {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Store{db: db, catalog: catalog}
}

// RateSheet loads the freight price of a lane price row and the surcharges of
// the carrier account that quoted it.
func (s *Store) RateSheet(ctx context.Context, lanePriceID types.ID) (RateSheet, error) {
	var accountID, freight string
	err := s.db.QueryRow(ctx, `
		SELECT account_id, COALESCE(freight_price, 0)::text
		FROM lane_prices
		WHERE id = $1`, string(lanePriceID),
	).Scan(&accountID, &freight)
	if errors.Is(err, pgx.ErrNoRows) {
		return RateSheet{}, ErrNotFound
	}
	if err != nil {
		return RateSheet{}, err
	}
	values, err := s.AccountSurcharges(ctx, types.ID(accountID))
	if err != nil {
		return RateSheet{}, err
	}
	return s.catalog.Sheet(types.ParseAmount(freight), values), nil
}

func (s *Store) AccountSurcharges(ctx context.Context, accountID types.ID) (map[string]decimal.Decimal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT surcharge_key, value::text
		FROM account_surcharges
		WHERE account_id = $1`, string(accountID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]decimal.Decimal)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		values[key] = types.ParseAmount(raw)
	}
	return values, rows.Err()
}
