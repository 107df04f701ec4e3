// README: Lane store backed by PostgreSQL.
package lane

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lanepricing/internal/modules/ranking"
	"lanepricing/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Seasons(ctx context.Context, kind SeasonKind) ([]Season, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, kind
		FROM seasons
		WHERE kind = $1
		ORDER BY starts_on DESC NULLS LAST, name`, string(kind),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Season, error) {
		var se Season
		err := row.Scan(&se.ID, &se.Name, &se.Kind)
		return se, err
	})
}

func (s *Store) TrailerTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM trailer_types ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) Locations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, location_type, country_code, postal_code
		FROM locations
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanLocation)
}

func (s *Store) Location(ctx context.Context, id types.ID) (Location, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, location_type, country_code, postal_code
		FROM locations
		WHERE id = $1`, string(id))
	if err != nil {
		return Location{}, err
	}
	loc, err := pgx.CollectExactlyOneRow(rows, scanLocation)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, ErrLocationNotFound
	}
	return loc, err
}

func scanLocation(row pgx.CollectableRow) (Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Type, &l.CountryCode, &l.PostalCode)
	return l, err
}

// Prices returns the latest priced lane row per carrier for q.
func (s *Store) Prices(ctx context.Context, q Query) ([]PriceRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT lp.id, l.id, l.name, a.id, a.name, lp.trailer_type,
		       lo.postal_code, de.postal_code, lp.freight_price::text,
		       EXISTS (
		           SELECT 1 FROM preferred_suppliers ps
		           WHERE ps.account_id = a.id
		             AND ps.season_id = l.season_id
		             AND ps.loading_location_id = l.loading_location_id
		             AND ps.delivery_location_id = l.delivery_location_id
		             AND ps.trailer_type = lp.trailer_type
		       ),
		       sc.availability::float8, sc.price_level::float8, sc.reliability::float8
		FROM lane_prices lp
		JOIN lanes l ON l.id = lp.lane_id
		JOIN accounts a ON a.id = lp.account_id
		JOIN locations lo ON lo.id = l.loading_location_id
		JOIN locations de ON de.id = l.delivery_location_id
		LEFT JOIN LATERAL (
		    SELECT availability, price_level, reliability
		    FROM account_scores s
		    WHERE s.account_id = a.id
		    ORDER BY s.recorded_at DESC
		    LIMIT 1
		) sc ON TRUE
		WHERE l.season_id = $1
		  AND lp.trailer_type = $2
		  AND l.loading_location_id = $3
		  AND l.delivery_location_id = $4
		  AND lp.freight_price IS NOT NULL
		ORDER BY a.name, lp.created_at DESC`,
		string(q.SeasonID), q.TrailerType, string(q.LoadingLocationID), string(q.DeliveryLocationID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceRow
	seen := map[types.ID]bool{}
	for rows.Next() {
		var r PriceRow
		var freight string
		if err := rows.Scan(
			&r.LanePriceID, &r.LaneID, &r.LaneName, &r.AccountID, &r.AccountName, &r.TrailerType,
			&r.LoadingPostalCode, &r.DeliveryPostalCode, &freight, &r.Preferred,
			&r.Scores.Availability, &r.Scores.Price, &r.Scores.Reliability,
		); err != nil {
			return nil, err
		}
		if seen[r.AccountID] {
			continue
		}
		seen[r.AccountID] = true
		r.FreightPrice = types.ParseAmount(freight)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i, r := range out {
		ids[i] = string(r.AccountID)
	}
	surcharges, err := s.surcharges(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Surcharges = surcharges[out[i].AccountID]
	}
	return out, nil
}

func (s *Store) surcharges(ctx context.Context, accountIDs []string) (map[types.ID]map[string]decimal.Decimal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT account_id, surcharge_key, value::text
		FROM account_surcharges
		WHERE account_id = ANY($1)`, accountIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[types.ID]map[string]decimal.Decimal{}
	for rows.Next() {
		var id types.ID
		var key, raw string
		if err := rows.Scan(&id, &key, &raw); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = map[string]decimal.Decimal{}
		}
		out[id][key] = types.ParseAmount(raw)
	}
	return out, rows.Err()
}

// PotentialCarriers lists carriers serving countryCode without a price for q.
func (s *Store) PotentialCarriers(ctx context.Context, q Query, countryCode string) ([]Carrier, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.name
		FROM accounts a
		WHERE $1 = ANY(a.delivery_countries)
		  AND NOT EXISTS (
		      SELECT 1
		      FROM lane_prices lp
		      JOIN lanes l ON l.id = lp.lane_id
		      WHERE lp.account_id = a.id
		        AND l.season_id = $2
		        AND lp.trailer_type = $3
		        AND l.loading_location_id = $4
		        AND l.delivery_location_id = $5
		        AND lp.freight_price IS NOT NULL
		  )
		ORDER BY a.name`,
		countryCode, string(q.SeasonID), q.TrailerType, string(q.LoadingLocationID), string(q.DeliveryLocationID),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Carrier, error) {
		var c Carrier
		err := row.Scan(&c.AccountID, &c.Name)
		return c, err
	})
}

func (s *Store) AccountHistory(ctx context.Context, accountID types.ID) ([]HistoryRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT lp.id, COALESCE(pr.id, ''), COALESCE(pr.name, ''), l.name, l.season_id,
		       COALESCE(lp.freight_price, 0)::text, lp.trailer_type, lp.created_at
		FROM lane_prices lp
		JOIN lanes l ON l.id = lp.lane_id
		LEFT JOIN price_requests pr ON pr.id = lp.price_request_id
		WHERE lp.account_id = $1
		ORDER BY lp.created_at DESC, lp.id`, string(accountID),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryRow, error) {
		var h HistoryRow
		var freight string
		err := row.Scan(&h.LanePriceID, &h.PriceRequestID, &h.PriceRequestName, &h.LaneName,
			&h.SeasonID, &freight, &h.TrailerType, &h.RequestDate)
		h.FreightPrice = types.ParseAmount(freight)
		return h, err
	})
}

// ScoreRecords returns every recorded score of the carriers priced on q,
// grouped per lane price row.
func (s *Store) ScoreRecords(ctx context.Context, q Query) ([]ranking.ScoreRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT lp.id, l.name, a.name,
		       sc.availability::float8, sc.price_level::float8, sc.reliability::float8
		FROM lane_prices lp
		JOIN lanes l ON l.id = lp.lane_id
		JOIN accounts a ON a.id = lp.account_id
		JOIN account_scores sc ON sc.account_id = a.id
		WHERE l.season_id = $1
		  AND lp.trailer_type = $2
		  AND l.loading_location_id = $3
		  AND l.delivery_location_id = $4
		ORDER BY lp.id, sc.recorded_at`,
		string(q.SeasonID), q.TrailerType, string(q.LoadingLocationID), string(q.DeliveryLocationID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ranking.ScoreRecord
	for rows.Next() {
		var id, product, carrier string
		var sample ranking.ScoreSample
		if err := rows.Scan(&id, &product, &carrier, &sample.Availability, &sample.PriceLevel, &sample.Reliability); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].ID == id {
			out[n-1].Samples = append(out[n-1].Samples, sample)
			continue
		}
		out = append(out, ranking.ScoreRecord{ID: id, Product: product, Carrier: carrier, Samples: []ranking.ScoreSample{sample}})
	}
	return out, rows.Err()
}
