// Package auth resolves inbound requests to an account principal and
// runs the Discord OAuth login exchange.
package auth

import (
	"context"

	"github.com/craftstudio/backend/internal/models"
)

type contextKey string

const ctxAccountKey contextKey = "account"

// AccountFromCtx returns the authenticated account or nil.
func AccountFromCtx(ctx context.Context) *models.Account {
	acc, _ := ctx.Value(ctxAccountKey).(*models.Account)
	return acc
}

// WithAccount returns a context carrying the given account.
func WithAccount(ctx context.Context, acc *models.Account) context.Context {
	return context.WithValue(ctx, ctxAccountKey, acc)
}

// TestAccountID is the id of the synthetic bypass account.
const TestAccountID = -1

// TestAccount is the synthetic principal returned for the configured
// test bypass token. It holds both roles on the free tier and never
// touches the database.
func TestAccount(token string) *models.Account {
	return &models.Account{
		ID:          TestAccountID,
		Username:    "test-account",
		Email:       "example@example.com",
		AccessToken: token,
		Buyer: models.NewBuyerRef(TestAccountID).Prime(&models.BuyerAccount{
			AccountID:            TestAccountID,
			TierID:               0,
			RemainingCommissions: 5,
			TotalCommissions:     5,
		}),
		Developer: models.NewDeveloperRef(TestAccountID).Prime(&models.DeveloperAccount{
			AccountID:     TestAccountID,
			TierID:        0,
			RemainingBids: 5,
			TotalBids:     5,
		}),
	}
}
