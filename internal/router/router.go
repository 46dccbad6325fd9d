package router

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/craftstudio/backend/internal/auth"
	"github.com/craftstudio/backend/internal/handlers"
	"github.com/craftstudio/backend/internal/middleware"
	"github.com/craftstudio/backend/internal/payment"
)

// Deps bundles everything the route table needs.
type Deps struct {
	Auth       *auth.Handler
	Accounts   *handlers.AccountHandler
	Buyers     *handlers.BuyerHandler
	Developers *handlers.DeveloperHandler
	Payments   *payment.Handler

	RequireAccount func(http.Handler) http.Handler
	Limiter        *rate.Limiter
	Logger         *slog.Logger
}

// New assembles the full HTTP surface. Login, the payment callback
// page and the webhook are public; everything else goes through the
// session-or-bearer authenticator.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/login", d.Auth.Login)
	mux.HandleFunc("GET /auth/callback", d.Auth.Callback)
	mux.HandleFunc("GET /payment/callback", d.Payments.Callback)
	mux.HandleFunc("POST /payment/webhook", d.Payments.Webhook)

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, d.RequireAccount(h))
	}
	protected("GET /account/me", d.Accounts.Me)
	protected("GET /account/select-type", d.Accounts.SelectType)

	protected("GET /buyer/list-commissions", d.Buyers.ListCommissions)
	protected("POST /buyer/submit-commission", d.Buyers.SubmitCommission)
	protected("GET /buyer/commission/{id}/bids", d.Buyers.CommissionBids)
	protected("GET /buyer/commission/{id}/accept-bid", d.Buyers.AcceptBid)

	protected("GET /developer/available-commissions", d.Developers.AvailableCommissions)
	protected("GET /developer/in-progress-commissions", d.Developers.InProgressCommissions)
	protected("GET /developer/commission/{id}", d.Developers.GetCommission)
	protected("POST /developer/commission/{id}/submit-bid", d.Developers.SubmitBid)

	protected("GET /payment/create-checkout-session", d.Payments.CreateCheckoutSession)
	protected("GET /payment/create-portal-session", d.Payments.CreatePortalSession)

	var h http.Handler = mux
	h = middleware.Recover(d.Logger)(h)
	if d.Limiter != nil {
		h = middleware.RateLimit(d.Limiter)(h)
	}
	return h
}
