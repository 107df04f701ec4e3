// README: Preferred supplier store backed by PostgreSQL.
package comparison

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SupplierStore struct {
	db *pgxpool.Pool
}

func NewSupplierStore(db *pgxpool.Pool) *SupplierStore {
	return &SupplierStore{db: db}
}

func (s *SupplierStore) Create(ctx context.Context, ps *PreferredSupplier) error {
	configs, err := json.Marshal(ps.Configs)
	if err != nil {
		return err
	}
	var lanePriceID *string
	if ps.LanePriceID != "" {
		v := string(ps.LanePriceID)
		lanePriceID = &v
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO preferred_suppliers (
			id, account_id, lane_price_id, season_id, trailer_type,
			loading_location_id, delivery_location_id, total_price, configs, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, $9, $10)`,
		string(ps.ID),
		string(ps.AccountID),
		lanePriceID,
		string(ps.Query.SeasonID),
		ps.Query.TrailerType,
		string(ps.Query.LoadingLocationID),
		string(ps.Query.DeliveryLocationID),
		ps.TotalPrice.StringFixed(2),
		configs,
		ps.CreatedAt,
	)
	return err
}
