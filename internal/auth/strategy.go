package auth

import (
	"context"
	"net/http"

	"github.com/craftstudio/backend/internal/models"
)

// Status classifies the outcome of one authentication strategy.
type Status int

const (
	// StatusSkipped: the request carries no credential of this kind;
	// try the next strategy.
	StatusSkipped Status = iota
	// StatusAuthenticated: a principal was resolved.
	StatusAuthenticated
	// StatusChallenge: a credential was present but invalid; the
	// strategy supplies the challenge response to write.
	StatusChallenge
)

// Result is the typed outcome of a strategy attempt.
type Result struct {
	Status    Status
	Account   *models.Account
	Challenge func(w http.ResponseWriter, r *http.Request)
}

// Strategy authenticates one kind of credential. Strategies never
// write to the response themselves; a Challenge result carries the
// writer to invoke.
type Strategy interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// RequireAccount tries each strategy in order and puts the resolved
// account into the request context. The first non-skip result wins.
// Credential failures never propagate as errors; every denial is an
// HTTP challenge.
func RequireAccount(strategies ...Strategy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, s := range strategies {
				res := s.Authenticate(r.Context(), r)
				switch res.Status {
				case StatusAuthenticated:
					next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), res.Account)))
					return
				case StatusChallenge:
					res.Challenge(w, r)
					return
				}
			}
			writeBearerChallenge(w)
		})
	}
}

func writeBearerChallenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error":"missing or invalid credentials"}`))
}
