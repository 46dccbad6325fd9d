package auth

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/craftstudio/backend/internal/models"
)

// SessionCookieName is the browser session cookie. It is readable by
// script on purpose: the bundled frontend pulls the token out of it.
const SessionCookieName = "user_session"

const sessionTTL = 7 * 24 * time.Hour

// AccountByID looks up the account a session cookie points at.
type AccountByID interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}

type sessionClaims struct {
	jwt.RegisteredClaims
	// AccessToken pins the cookie to the credential that was current
	// when the session was issued; rotating the token invalidates every
	// outstanding cookie.
	AccessToken string `json:"token"`
}

// SessionStrategy validates the signed user_session cookie. An invalid
// or stale cookie challenges with a redirect to login rather than
// falling through to bearer auth.
type SessionStrategy struct {
	Accounts  AccountByID
	Secret    []byte
	LoginPath string
}

func NewSessionStrategy(accounts AccountByID, secret []byte) *SessionStrategy {
	return &SessionStrategy{Accounts: accounts, Secret: secret, LoginPath: "/auth/login"}
}

func (s *SessionStrategy) Authenticate(ctx context.Context, r *http.Request) Result {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return Result{Status: StatusSkipped}
	}

	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return s.challenge()
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return s.challenge()
	}
	account, err := s.Accounts.GetByID(ctx, id)
	if err != nil || account.AccessToken != claims.AccessToken {
		return s.challenge()
	}
	return Result{Status: StatusAuthenticated, Account: account}
}

func (s *SessionStrategy) challenge() Result {
	return Result{Status: StatusChallenge, Challenge: func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.LoginPath, http.StatusFound)
	}}
}

// IssueCookie mints a session cookie for the account.
func (s *SessionStrategy) IssueCookie(account *models.Account, now time.Time) (*http.Cookie, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
		AccessToken: account.AccessToken,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: false,
	}, nil
}
