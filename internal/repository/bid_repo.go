package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftstudio/backend/internal/models"
)

type BidRepo struct {
	pool *pgxpool.Pool
}

func NewBidRepo(pool *pgxpool.Pool) *BidRepo {
	return &BidRepo{pool: pool}
}

const bidColumns = `id, commission, bidder, fixed_bid_amount, hourly_bid_amount, creation_time, developer_testimonial, accepted`

// CreateTx inserts a bid inside the caller's transaction (bid creation
// commits together with the quota decrement).
func (r *BidRepo) CreateTx(ctx context.Context, tx pgx.Tx, b *models.Bid) error {
	return tx.QueryRow(ctx, `
		INSERT INTO bids (commission, bidder, fixed_bid_amount, hourly_bid_amount, developer_testimonial)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, creation_time
	`, b.Commission.ID, b.Bidder.ID, b.FixedBidAmount, b.HourlyBidAmount, b.Testimony).Scan(&b.ID, &b.CreationTime)
}

func (r *BidRepo) GetByID(ctx context.Context, id int64) (*models.Bid, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id)
	return scanBid(row)
}

// MarkAcceptedTx flags the winning bid. Call within the accept-bid
// transaction; the partial unique index on (commission) WHERE accepted
// guarantees at most one accepted bid per commission.
func (r *BidRepo) MarkAcceptedTx(ctx context.Context, tx pgx.Tx, bidID int64) error {
	tag, err := tx.Exec(ctx, `UPDATE bids SET accepted = TRUE WHERE id = $1`, bidID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForCommission returns all bids against a commission, oldest
// first.
func (r *BidRepo) ListForCommission(ctx context.Context, commissionID int64) ([]*models.Bid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bidColumns+` FROM bids WHERE commission = $1 ORDER BY creation_time
	`, commissionID)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}

func scanBid(row pgx.Row) (*models.Bid, error) {
	var b models.Bid
	var commissionID, bidderID int64
	err := row.Scan(&b.ID, &commissionID, &bidderID, &b.FixedBidAmount, &b.HourlyBidAmount,
		&b.CreationTime, &b.Testimony, &b.Accepted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.Commission = models.NewCommissionRef(commissionID)
	b.Bidder = models.NewAccountRef(bidderID)
	return &b, nil
}

func collectBids(rows pgx.Rows) ([]*models.Bid, error) {
	defer rows.Close()
	var list []*models.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
