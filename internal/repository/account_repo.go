// Package repository holds the pgx-backed stores, one per aggregate.
// Methods suffixed Tx run inside a caller-owned transaction.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftstudio/backend/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, discord_id, username, email, access_token, buyer_data, developer_data, stripe_customer_id`

// Create inserts a new account with a fresh opaque access token and no
// role sub-records.
func (r *AccountRepo) Create(ctx context.Context, discordID, username, email string) (*models.Account, error) {
	a := &models.Account{
		DiscordID:   discordID,
		Username:    username,
		Email:       email,
		AccessToken: uuid.NewString(),
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (discord_id, username, email, access_token)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, discordID, username, email, a.AccessToken).Scan(&a.ID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

func (r *AccountRepo) GetByAccessToken(ctx context.Context, token string) (*models.Account, error) {
	// The access_token column is a UUID; reject non-UUID input here
	// instead of surfacing a scan error from Postgres.
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrNotFound
	}
	return r.getWhere(ctx, `access_token = $1`, token)
}

func (r *AccountRepo) GetByDiscordID(ctx context.Context, discordID string) (*models.Account, error) {
	return r.getWhere(ctx, `discord_id = $1`, discordID)
}

func (r *AccountRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	return r.getWhere(ctx, `stripe_customer_id = $1`, customerID)
}

func (r *AccountRepo) getWhere(ctx context.Context, where string, arg any) (*models.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	return scanAccount(row)
}

// UpdateStripeCustomerID stores the billing-customer reference on the
// account.
func (r *AccountRepo) UpdateStripeCustomerID(ctx context.Context, id int64, customerID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET stripe_customer_id = $2 WHERE id = $1
	`, id, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var hasBuyer, hasDeveloper bool
	err := row.Scan(&a.ID, &a.DiscordID, &a.Username, &a.Email, &a.AccessToken,
		&hasBuyer, &hasDeveloper, &a.StripeCustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if hasBuyer {
		a.Buyer = models.NewBuyerRef(a.ID)
	}
	if hasDeveloper {
		a.Developer = models.NewDeveloperRef(a.ID)
	}
	return &a, nil
}
