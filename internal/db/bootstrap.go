// Package db creates the schema and seeds the subscription catalogs at
// startup.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	discord_id VARCHAR(20) NOT NULL UNIQUE,
	username VARCHAR(32) NOT NULL,
	email VARCHAR(320) NOT NULL,
	access_token UUID NOT NULL UNIQUE,
	buyer_data BOOLEAN NOT NULL DEFAULT FALSE,
	developer_data BOOLEAN NOT NULL DEFAULT FALSE,
	stripe_customer_id VARCHAR(64)
);

CREATE TABLE IF NOT EXISTS buyer_subscriptions (
	id INT PRIMARY KEY,
	name VARCHAR(32) NOT NULL,
	commissions_per_month INT NOT NULL,
	max_fixed_offer INT NOT NULL,
	max_hourly_offer INT NOT NULL,
	price INT NOT NULL,
	stripe_id VARCHAR(255)
);

CREATE TABLE IF NOT EXISTS developer_subscriptions (
	id INT PRIMARY KEY,
	name VARCHAR(32) NOT NULL,
	bids_per_month INT NOT NULL,
	fixed_offer_limit INT NOT NULL,
	hourly_offer_limit INT NOT NULL,
	price INT NOT NULL,
	stripe_id VARCHAR(255)
);

CREATE TABLE IF NOT EXISTS buyer_accounts (
	id BIGINT PRIMARY KEY REFERENCES accounts(id),
	subscription_type INT NOT NULL REFERENCES buyer_subscriptions(id),
	remaining_commissions INT NOT NULL DEFAULT 0,
	total_commissions INT NOT NULL DEFAULT 0,
	stripe_subscription_id VARCHAR(255)
);

CREATE TABLE IF NOT EXISTS developer_accounts (
	id BIGINT PRIMARY KEY REFERENCES accounts(id),
	subscription_type INT NOT NULL REFERENCES developer_subscriptions(id),
	remaining_bids INT NOT NULL DEFAULT 0,
	total_bids INT NOT NULL DEFAULT 0,
	stripe_subscription_id VARCHAR(255)
);

CREATE TABLE IF NOT EXISTS commissions (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	summary VARCHAR(255) NOT NULL,
	requirements VARCHAR(10000) NOT NULL,
	category VARCHAR(64) NOT NULL DEFAULT '',
	fixed_price_amount INT NOT NULL,
	hourly_price_amount INT NOT NULL,
	minimum_reputation INT NOT NULL,
	creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
	expiry_time TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	owner BIGINT NOT NULL REFERENCES accounts(id),
	developer BIGINT REFERENCES accounts(id)
);

CREATE INDEX IF NOT EXISTS ix_commissions_owner ON commissions (owner);
CREATE INDEX IF NOT EXISTS ix_commissions_status ON commissions (status);

CREATE TABLE IF NOT EXISTS bids (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	commission BIGINT NOT NULL REFERENCES commissions(id),
	bidder BIGINT NOT NULL REFERENCES accounts(id),
	fixed_bid_amount INT NOT NULL,
	hourly_bid_amount INT NOT NULL,
	creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
	developer_testimonial VARCHAR(10000),
	accepted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS ix_bids_commission ON bids (commission);
CREATE UNIQUE INDEX IF NOT EXISTS ux_bids_one_accepted ON bids (commission) WHERE accepted;
`

func dollars(d float64) int { return int(d * 100) }

// Bootstrap creates the schema and seeds both tier catalogs if empty.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := seedBuyerTiers(ctx, pool); err != nil {
		return fmt.Errorf("seed buyer tiers: %w", err)
	}
	if err := seedDeveloperTiers(ctx, pool); err != nil {
		return fmt.Errorf("seed developer tiers: %w", err)
	}
	return nil
}

func seedBuyerTiers(ctx context.Context, pool *pgxpool.Pool) error {
	var n int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM buyer_subscriptions`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	rows := []struct {
		id                  int
		commissionsPerMonth int
		maxFixed, maxHourly int
		price               int
		name                string
	}{
		{0, 1, dollars(50), -1, dollars(0), "free"},
		{1, 3, dollars(50), -1, dollars(3.49), "bronze"},
		{2, 3, dollars(200), -1, dollars(6.49), "silver"},
		{3, 10, dollars(1000), -1, dollars(12.99), "gold"},
		{4, -1, -1, -1, dollars(19.99), "unlimited"},
	}
	for _, t := range rows {
		_, err := pool.Exec(ctx, `
			INSERT INTO buyer_subscriptions (id, name, commissions_per_month, max_fixed_offer, max_hourly_offer, price, stripe_id)
			VALUES ($1, $2, $3, $4, $5, $6, NULL)
		`, t.id, t.name, t.commissionsPerMonth, t.maxFixed, t.maxHourly, t.price)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedDeveloperTiers(ctx context.Context, pool *pgxpool.Pool) error {
	var n int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM developer_subscriptions`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	str := func(s string) *string { return &s }
	rows := []struct {
		id                       int
		bidsPerMonth             int
		fixedLimit, hourlyLimit  int
		price                    int
		name                     string
		stripeID                 *string
	}{
		{0, 1, dollars(40), -1, dollars(0), "free", nil},
		{1, 3, dollars(50), -1, dollars(1.99), "bronze", str("prod_OsYRAaRkzeigNb")},
		{2, 5, dollars(300), -1, dollars(4.99), "silver", str("prod_OsYSs9CjSb9iTq")},
		{3, 10, dollars(1000), -1, dollars(8.49), "gold", str("prod_OsYS2jlDjmiEBs")},
		{4, -1, -1, -1, dollars(15.19), "unlimited", str("prod_OsYS8cjWUKt2Jc")},
	}
	for _, t := range rows {
		_, err := pool.Exec(ctx, `
			INSERT INTO developer_subscriptions (id, name, bids_per_month, fixed_offer_limit, hourly_offer_limit, price, stripe_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, t.id, t.name, t.bidsPerMonth, t.fixedLimit, t.hourlyLimit, t.price, t.stripeID)
		if err != nil {
			return err
		}
	}
	return nil
}
