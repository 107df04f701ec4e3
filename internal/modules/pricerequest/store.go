// README: Price request store backed by PostgreSQL.
package pricerequest

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lanepricing/internal/modules/lane"
	"lanepricing/internal/types"
)

// PriceUpdate is a persisted change to one lane price.
type PriceUpdate struct {
	ID           types.ID
	FreightPrice *decimal.Decimal
	TrailerType  string
}

// Submission is everything a carrier answer writes in one transaction.
// A nil charge value removes the stored surcharge.
type Submission struct {
	Request  *PriceRequest
	Lanes    []PriceUpdate
	Existing []PriceUpdate
	Charges  map[string]*decimal.Decimal
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create inserts the requests with one mandatory lane price each. The lane
// for the query is created when it does not exist yet.
func (s *Store) Create(ctx context.Context, reqs []*PriceRequest, q lane.Query) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		laneID, err := ensureLane(ctx, tx, q)
		if err != nil {
			return err
		}
		for _, pr := range reqs {
			charges := pr.RequiredCharges
			if charges == nil {
				charges = []string{}
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO price_requests (
					id, name, account_id, season_id, trailer_type,
					loading_location_id, delivery_location_id,
					stage, stage_version, required_charges, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				string(pr.ID),
				pr.Name,
				string(pr.AccountID),
				string(q.SeasonID),
				q.TrailerType,
				string(q.LoadingLocationID),
				string(q.DeliveryLocationID),
				string(pr.Stage),
				pr.StageVersion,
				charges,
				pr.CreatedAt,
			)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO lane_prices (id, lane_id, account_id, price_request_id, trailer_type, mandatory, created_at)
				VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
				string(types.NewID()),
				string(laneID),
				string(pr.AccountID),
				string(pr.ID),
				q.TrailerType,
				pr.CreatedAt,
			)
			if err != nil {
				return err
			}
			if err := appendEvent(ctx, tx, &Event{
				PriceRequestID: pr.ID,
				FromStage:      StageNone,
				ToStage:        pr.Stage,
				ActorType:      ActorInternal,
				CreatedAt:      pr.CreatedAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureLane(ctx context.Context, tx pgx.Tx, q lane.Query) (types.ID, error) {
	var id string
	err := tx.QueryRow(ctx, `
		SELECT id FROM lanes
		WHERE season_id = $1 AND loading_location_id = $2 AND delivery_location_id = $3
		ORDER BY id
		LIMIT 1`,
		string(q.SeasonID), string(q.LoadingLocationID), string(q.DeliveryLocationID),
	).Scan(&id)
	if err == nil {
		return types.ID(id), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	id = string(types.NewID())
	tag, err := tx.Exec(ctx, `
		INSERT INTO lanes (id, name, season_id, loading_location_id, delivery_location_id)
		SELECT $1, lo.name || ' → ' || ld.name, $2, lo.id, ld.id
		FROM locations lo, locations ld
		WHERE lo.id = $3 AND ld.id = $4`,
		id, string(q.SeasonID), string(q.LoadingLocationID), string(q.DeliveryLocationID),
	)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return "", lane.ErrLocationNotFound
	}
	return types.ID(id), nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*PriceRequest, error) {
	row := s.db.QueryRow(ctx, `
		SELECT pr.id, pr.name, pr.account_id, a.name, pr.season_id, se.name, pr.trailer_type,
		       COALESCE(pr.loading_location_id, ''), COALESCE(pr.delivery_location_id, ''),
		       pr.stage, pr.stage_version, pr.required_charges, pr.created_at, pr.answered_at
		FROM price_requests pr
		JOIN accounts a ON a.id = pr.account_id
		JOIN seasons se ON se.id = pr.season_id
		WHERE pr.id = $1`, string(id),
	)

	var pr PriceRequest
	err := row.Scan(
		&pr.ID, &pr.Name, &pr.AccountID, &pr.AccountName, &pr.Query.SeasonID, &pr.SeasonName, &pr.Query.TrailerType,
		&pr.Query.LoadingLocationID, &pr.Query.DeliveryLocationID,
		&pr.Stage, &pr.StageVersion, &pr.RequiredCharges, &pr.CreatedAt, &pr.AnsweredAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

const laneRowColumns = `
		lp.id, l.name, lo.postal_code, lo.country_code, ld.postal_code, ld.country_code,
		lp.trailer_type, lp.freight_price::text, lp.mandatory`

func (s *Store) Lanes(ctx context.Context, id types.ID) ([]LaneRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+laneRowColumns+`, ''
		FROM lane_prices lp
		JOIN lanes l ON l.id = lp.lane_id
		JOIN locations lo ON lo.id = l.loading_location_id
		JOIN locations ld ON ld.id = l.delivery_location_id
		WHERE lp.price_request_id = $1
		ORDER BY lp.mandatory DESC, l.name, lp.id`, string(id),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanLaneRow)
}

// ExistingLanes lists the carrier's priced lanes of the same season that
// belong to other requests.
func (s *Store) ExistingLanes(ctx context.Context, pr *PriceRequest) ([]LaneRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+laneRowColumns+`, COALESCE(src.name, '')
		FROM lane_prices lp
		JOIN lanes l ON l.id = lp.lane_id
		JOIN locations lo ON lo.id = l.loading_location_id
		JOIN locations ld ON ld.id = l.delivery_location_id
		LEFT JOIN price_requests src ON src.id = lp.price_request_id
		WHERE lp.account_id = $1
		  AND l.season_id = $2
		  AND lp.price_request_id IS DISTINCT FROM $3
		  AND lp.freight_price IS NOT NULL
		ORDER BY l.name, lp.id`,
		string(pr.AccountID), string(pr.Query.SeasonID), string(pr.ID),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanLaneRow)
}

func scanLaneRow(row pgx.CollectableRow) (LaneRow, error) {
	var r LaneRow
	var price *string
	err := row.Scan(
		&r.ID, &r.LaneName, &r.LoadingPostalCode, &r.LoadingCountryCode,
		&r.DeliveryPostalCode, &r.DeliveryCountryCode,
		&r.TrailerType, &price, &r.Mandatory, &r.SourcePriceRequestName,
	)
	if price != nil {
		r.FreightPrice = parsePrice(*price)
	}
	return r, err
}

func (s *Store) AccountCharges(ctx context.Context, accountID types.ID) (map[string]decimal.Decimal, error) {
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

func (s *Store) CountryNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `SELECT code, name FROM countries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var code, name string
		if err := rows.Scan(&code, &name); err != nil {
			return nil, err
		}
		names[code] = name
	}
	return names, rows.Err()
}

func (s *Store) AccessCode(ctx context.Context, id types.ID) (string, error) {
	var code string
	err := s.db.QueryRow(ctx, `
		SELECT a.access_code
		FROM price_requests pr
		JOIN accounts a ON a.id = pr.account_id
		WHERE pr.id = $1`, string(id),
	).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return code, err
}

// Transition moves the stage when it still matches from and version.
func (s *Store) Transition(ctx context.Context, id types.ID, from, to Stage, version int, actor string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return transition(ctx, tx, id, from, to, version, actor)
	})
}

// Submit writes lane prices and account charges and moves the request to
// answer_received in a single transaction.
func (s *Store) Submit(ctx context.Context, sub *Submission) error {
	pr := sub.Request
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, u := range sub.Lanes {
			if _, err := tx.Exec(ctx, `
				UPDATE lane_prices
				SET freight_price = $1::text::numeric, trailer_type = $2
				WHERE id = $3 AND price_request_id = $4`,
				amountText(u.FreightPrice), u.TrailerType, string(u.ID), string(pr.ID),
			); err != nil {
				return err
			}
		}
		for _, u := range sub.Existing {
			if _, err := tx.Exec(ctx, `
				UPDATE lane_prices
				SET freight_price = $1::text::numeric, trailer_type = $2
				WHERE id = $3 AND account_id = $4`,
				amountText(u.FreightPrice), u.TrailerType, string(u.ID), string(pr.AccountID),
			); err != nil {
				return err
			}
		}
		for key, v := range sub.Charges {
			var err error
			if v == nil {
				_, err = tx.Exec(ctx, `
					DELETE FROM account_surcharges WHERE account_id = $1 AND surcharge_key = $2`,
					string(pr.AccountID), key,
				)
			} else {
				_, err = tx.Exec(ctx, `
					INSERT INTO account_surcharges (account_id, surcharge_key, value)
					VALUES ($1, $2, $3::text::numeric)
					ON CONFLICT (account_id, surcharge_key) DO UPDATE SET value = EXCLUDED.value`,
					string(pr.AccountID), key, v.String(),
				)
			}
			if err != nil {
				return err
			}
		}
		return transition(ctx, tx, pr.ID, pr.Stage, StageAnswerReceived, pr.StageVersion, ActorCarrier)
	})
}

func transition(ctx context.Context, tx pgx.Tx, id types.ID, from, to Stage, version int, actor string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE price_requests
		SET stage = $1,
		    stage_version = stage_version + 1,
		    answered_at = CASE WHEN $1 = 'answer_received' THEN NOW() ELSE answered_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $2 AND stage = $3 AND stage_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrConflict
	}
	return appendEvent(ctx, tx, &Event{
		PriceRequestID: id,
		FromStage:      from,
		ToStage:        to,
		ActorType:      actor,
		CreatedAt:      time.Now().UTC(),
	})
}

func appendEvent(ctx context.Context, tx pgx.Tx, e *Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO price_request_events (price_request_id, from_stage, to_stage, actor_type, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(e.PriceRequestID),
		string(e.FromStage),
		string(e.ToStage),
		e.ActorType,
		e.CreatedAt,
	)
	return err
}

func amountText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	v := d.String()
	return &v
}
