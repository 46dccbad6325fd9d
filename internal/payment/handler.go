package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/craftstudio/backend/internal/auth"
	"github.com/craftstudio/backend/internal/catalog"
)

const maxWebhookBody = 64 << 10

// Handler serves the /payment endpoints.
type Handler struct {
	Gateway       Gateway
	Provisioner   *Provisioner
	Tiers         *catalog.Catalog
	BaseURL       string
	WebhookSecret string
	Logger        *slog.Logger
}

// CreateCheckoutSession handles GET /payment/create-checkout-session.
// The session carries the local account id as client_reference_id so
// the completion webhook can correlate back.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	acc := auth.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	role := r.URL.Query().Get("type")
	plan := r.URL.Query().Get("plan")
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = "usd"
	}

	var productID *string
	switch role {
	case "buyer":
		if !acc.IsBuyer() {
			writeError(w, http.StatusForbidden, "buyer profile required")
			return
		}
		tier, ok := h.Tiers.BuyerTierByName(plan)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown plan")
			return
		}
		productID = tier.StripeProductID
	case "developer":
		if !acc.IsDeveloper() {
			writeError(w, http.StatusForbidden, "developer profile required")
			return
		}
		tier, ok := h.Tiers.DeveloperTierByName(plan)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown plan")
			return
		}
		productID = tier.StripeProductID
	default:
		writeError(w, http.StatusBadRequest, "type must be buyer or developer")
		return
	}
	if productID == nil {
		writeError(w, http.StatusBadRequest, "plan is not purchasable")
		return
	}

	priceID, err := h.Gateway.FirstPriceID(*productID, currency)
	if err != nil {
		if errors.Is(err, ErrNoPrice) {
			writeError(w, http.StatusBadRequest, "no price for plan in requested currency")
			return
		}
		h.Logger.Error("resolve plan price", "product_id", *productID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		ClientReferenceID: stripe.String(strconv.FormatInt(acc.ID, 10)),
		SuccessURL:        stripe.String(h.BaseURL + "/payment/callback?success=true"),
		CancelURL:         stripe.String(h.BaseURL + "/payment/callback?success=false"),
	}
	if acc.StripeCustomerID != nil {
		params.Customer = acc.StripeCustomerID
	} else {
		params.CustomerEmail = stripe.String(acc.Email)
	}

	sess, err := h.Gateway.NewCheckoutSession(params)
	if err != nil {
		h.Logger.Error("create checkout session", "account_id", acc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.Redirect(w, r, sess.URL, http.StatusSeeOther)
}

// CreatePortalSession handles GET /payment/create-portal-session.
func (h *Handler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	acc := auth.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if acc.StripeCustomerID == nil {
		writeError(w, http.StatusBadRequest, "account has no billing customer")
		return
	}
	returnURL := r.URL.Query().Get("return_url")
	if returnURL == "" {
		returnURL = h.BaseURL
	}

	sess, err := h.Gateway.NewPortalSession(&stripe.BillingPortalSessionParams{
		Customer:  acc.StripeCustomerID,
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		h.Logger.Error("create portal session", "account_id", acc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.Redirect(w, r, sess.URL, http.StatusSeeOther)
}

// Callback handles GET /payment/callback, the checkout return page.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("success") == "true" {
		fmt.Fprint(w, "<html><body><p>Payment complete. You can close this window.</p></body></html>")
		return
	}
	fmt.Fprint(w, "<html><body><p>Payment cancelled.</p></body></html>")
}

// Webhook handles POST /payment/webhook. Signature verification stands
// in for user authentication; recognized-but-unhandled events are
// acknowledged so Stripe does not retry them.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	event, err := h.parseEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.Logger.Warn("webhook rejected", "error", err)
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			writeError(w, http.StatusBadRequest, "invalid webhook payload")
			return
		}
		if err := h.Provisioner.HandleCheckoutCompleted(r.Context(), &sess); err != nil {
			h.Logger.Error("checkout completion failed", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case "invoice.paid":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			writeError(w, http.StatusBadRequest, "invalid webhook payload")
			return
		}
		if err := h.Provisioner.ProvisionRenewal(r.Context(), &inv); err != nil {
			h.Logger.Error("renewal failed", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case "customer.subscription.updated", "customer.subscription.deleted", "invoice.payment_failed":
		// Acknowledged without state change; cancellation and dunning
		// handling land here later.
		h.Logger.Info("webhook acknowledged without action", "type", event.Type)
	default:
		h.Logger.Warn("unhandled webhook event", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"success":true}`))
}

// parseEvent verifies the signature when a secret is configured. With
// no secret (local development) the raw payload is trusted as-is.
func (h *Handler) parseEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if h.WebhookSecret != "" {
		return webhook.ConstructEvent(payload, sigHeader, h.WebhookSecret)
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"success":false,"error":%q}`, msg)
}
