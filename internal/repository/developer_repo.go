package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftstudio/backend/internal/models"
)

type DeveloperRepo struct {
	pool *pgxpool.Pool
}

func NewDeveloperRepo(pool *pgxpool.Pool) *DeveloperRepo {
	return &DeveloperRepo{pool: pool}
}

const developerColumns = `id, subscription_type, remaining_bids, total_bids, stripe_subscription_id`

// Create inserts a developer sub-record on the free tier and flips the
// account's developer flag, atomically.
func (r *DeveloperRepo) Create(ctx context.Context, accountID int64, freeTier *models.DeveloperTier) (*models.DeveloperAccount, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	d := &models.DeveloperAccount{
		AccountID:     accountID,
		TierID:        freeTier.ID,
		RemainingBids: freeTier.BidsPerMonth,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO developer_accounts (id, subscription_type, remaining_bids, total_bids)
		VALUES ($1, $2, $3, 0)
	`, accountID, d.TierID, d.RemainingBids)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET developer_data = TRUE WHERE id = $1`, accountID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DeveloperRepo) GetByAccountID(ctx context.Context, accountID int64) (*models.DeveloperAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+developerColumns+` FROM developer_accounts WHERE id = $1`, accountID)
	return scanDeveloper(row)
}

// GetByAccountIDForUpdate locks the developer row. Call within a
// transaction.
func (r *DeveloperRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID int64) (*models.DeveloperAccount, error) {
	row := tx.QueryRow(ctx, `SELECT `+developerColumns+` FROM developer_accounts WHERE id = $1 FOR UPDATE`, accountID)
	return scanDeveloper(row)
}

// GetBySubscriptionID finds the developer holding the given external
// subscription reference.
func (r *DeveloperRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.DeveloperAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+developerColumns+` FROM developer_accounts WHERE stripe_subscription_id = $1`, subscriptionID)
	return scanDeveloper(row)
}

// UpdateSubscription switches the tier and external subscription
// reference. refillTo, when non-nil, also resets remaining_bids.
func (r *DeveloperRepo) UpdateSubscription(ctx context.Context, accountID int64, tierID int, subscriptionID *string, refillTo *int) error {
	var tag pgconn.CommandTag
	var err error
	if refillTo != nil {
		tag, err = r.pool.Exec(ctx, `
			UPDATE developer_accounts SET subscription_type = $2, stripe_subscription_id = $3, remaining_bids = $4
			WHERE id = $1
		`, accountID, tierID, subscriptionID, *refillTo)
	} else {
		tag, err = r.pool.Exec(ctx, `
			UPDATE developer_accounts SET subscription_type = $2, stripe_subscription_id = $3
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

// UpdateBidCountTx sets both counters inside the caller's transaction.
func (r *DeveloperRepo) UpdateBidCountTx(ctx context.Context, tx pgx.Tx, accountID int64, remaining, total int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE developer_accounts SET remaining_bids = $2, total_bids = $3 WHERE id = $1
	`, accountID, remaining, total)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the sub-record and clears the account's developer flag.
func (r *DeveloperRepo) Delete(ctx context.Context, accountID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM developer_accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET developer_data = FALSE WHERE id = $1`, accountID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanDeveloper(row pgx.Row) (*models.DeveloperAccount, error) {
	var d models.DeveloperAccount
	err := row.Scan(&d.AccountID, &d.TierID, &d.RemainingBids, &d.TotalBids, &d.SubscriptionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}
