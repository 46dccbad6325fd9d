package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftstudio/backend/internal/models"
)

type BuyerRepo struct {
	pool *pgxpool.Pool
}

func NewBuyerRepo(pool *pgxpool.Pool) *BuyerRepo {
	return &BuyerRepo{pool: pool}
}

const buyerColumns = `id, subscription_type, remaining_commissions, total_commissions, stripe_subscription_id`

// Create inserts a buyer sub-record on the free tier and flips the
// account's buyer flag, atomically.
func (r *BuyerRepo) Create(ctx context.Context, accountID int64, freeTier *models.BuyerTier) (*models.BuyerAccount, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b := &models.BuyerAccount{
		AccountID:            accountID,
		TierID:               freeTier.ID,
		RemainingCommissions: freeTier.CommissionsPerMonth,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO buyer_accounts (id, subscription_type, remaining_commissions, total_commissions)
		VALUES ($1, $2, $3, 0)
	`, accountID, b.TierID, b.RemainingCommissions)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET buyer_data = TRUE WHERE id = $1`, accountID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BuyerRepo) GetByAccountID(ctx context.Context, accountID int64) (*models.BuyerAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyer_accounts WHERE id = $1`, accountID)
	return scanBuyer(row)
}

// GetByAccountIDForUpdate locks the buyer row. Call within a transaction.
func (r *BuyerRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID int64) (*models.BuyerAccount, error) {
	row := tx.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyer_accounts WHERE id = $1 FOR UPDATE`, accountID)
	return scanBuyer(row)
}

// GetBySubscriptionID finds the buyer holding the given external
// subscription reference.
func (r *BuyerRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.BuyerAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyer_accounts WHERE stripe_subscription_id = $1`, subscriptionID)
	return scanBuyer(row)
}

// UpdateSubscription switches the tier and external subscription
// reference. refillTo, when non-nil, also resets remaining_commissions.
func (r *BuyerRepo) UpdateSubscription(ctx context.Context, accountID int64, tierID int, subscriptionID *string, refillTo *int) error {
	var tag pgconn.CommandTag
	var err error
	if refillTo != nil {
		tag, err = r.pool.Exec(ctx, `
			UPDATE buyer_accounts SET subscription_type = $2, stripe_subscription_id = $3, remaining_commissions = $4
			WHERE id = $1
		`, accountID, tierID, subscriptionID, *refillTo)
	} else {
		tag, err = r.pool.Exec(ctx, `
			UPDATE buyer_accounts SET subscription_type = $2, stripe_subscription_id = $3
			WHERE id = $1
		`, accountID, tierID, subscriptionID)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCommissionCountTx sets both counters inside the caller's
// transaction.
func (r *BuyerRepo) UpdateCommissionCountTx(ctx context.Context, tx pgx.Tx, accountID int64, remaining, total int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE buyer_accounts SET remaining_commissions = $2, total_commissions = $3 WHERE id = $1
	`, accountID, remaining, total)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the sub-record and clears the account's buyer flag.
func (r *BuyerRepo) Delete(ctx context.Context, accountID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM buyer_accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET buyer_data = FALSE WHERE id = $1`, accountID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanBuyer(row pgx.Row) (*models.BuyerAccount, error) {
	var b models.BuyerAccount
	err := row.Scan(&b.AccountID, &b.TierID, &b.RemainingCommissions, &b.TotalCommissions, &b.SubscriptionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
