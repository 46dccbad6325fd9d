package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/craftstudio/backend/internal/models"
)

// AccountByToken looks up the account owning an opaque access token.
type AccountByToken interface {
	GetByAccessToken(ctx context.Context, token string) (*models.Account, error)
}

// BearerStrategy authenticates Authorization: Bearer tokens against the
// access_token column. The configured TestToken short-circuits to a
// synthetic account so the API can be exercised without an OAuth round
// trip.
type BearerStrategy struct {
	Accounts  AccountByToken
	TestToken string
}

func NewBearerStrategy(accounts AccountByToken, testToken string) *BearerStrategy {
	return &BearerStrategy{Accounts: accounts, TestToken: testToken}
}

func (s *BearerStrategy) Authenticate(ctx context.Context, r *http.Request) Result {
	raw := extractBearer(r)
	if raw == "" {
		return Result{Status: StatusSkipped}
	}

	if s.TestToken != "" && raw == s.TestToken {
		return Result{Status: StatusAuthenticated, Account: TestAccount(raw)}
	}

	account, err := s.Accounts.GetByAccessToken(ctx, raw)
	if err != nil {
		return Result{Status: StatusChallenge, Challenge: func(w http.ResponseWriter, _ *http.Request) {
			writeBearerChallenge(w)
		}}
	}
	return Result{Status: StatusAuthenticated, Account: account}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
