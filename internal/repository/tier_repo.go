package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftstudio/backend/internal/models"
)

// TierRepo reads the seeded subscription catalogs. Writes happen only
// through the startup seed.
type TierRepo struct {
	pool *pgxpool.Pool
}

func NewTierRepo(pool *pgxpool.Pool) *TierRepo {
	return &TierRepo{pool: pool}
}

func (r *TierRepo) ListBuyerTiers(ctx context.Context) ([]*models.BuyerTier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, commissions_per_month, max_fixed_offer, max_hourly_offer, price, stripe_id
		FROM buyer_subscriptions ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.BuyerTier
	for rows.Next() {
		var t models.BuyerTier
		if err := rows.Scan(&t.ID, &t.Name, &t.CommissionsPerMonth, &t.MaxFixedOffer, &t.MaxHourlyOffer, &t.Price, &t.StripeProductID); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (r *TierRepo) ListDeveloperTiers(ctx context.Context) ([]*models.DeveloperTier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, bids_per_month, fixed_offer_limit, hourly_offer_limit, price, stripe_id
		FROM developer_subscriptions ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.DeveloperTier
	for rows.Next() {
		var t models.DeveloperTier
		if err := rows.Scan(&t.ID, &t.Name, &t.BidsPerMonth, &t.FixedOfferLimit, &t.HourlyOfferLimit, &t.Price, &t.StripeProductID); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
