// Package payment creates checkout/portal redirects and provisions
// subscriptions from asynchronous Stripe webhook events.
package payment

import (
	"errors"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// ErrNoPrice is returned when a product has no price in the requested
// currency.
var ErrNoPrice = errors.New("no price for product in requested currency")

// Gateway is the slice of the Stripe API this service calls. The
// concrete client is process-scoped; tests substitute a stub.
type Gateway interface {
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	FirstPriceID(productID, currency string) (string, error)
	GetInvoice(id string) (*stripe.Invoice, error)
	GetSubscription(id string) (*stripe.Subscription, error)
	CancelSubscription(id string) error
}

// StripeGateway backs Gateway with a real Stripe client handle.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return g.api.CheckoutSessions.New(params)
}

func (g *StripeGateway) NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return g.api.BillingPortalSessions.New(params)
}

// FirstPriceID resolves a product to its first active price in the
// given currency.
func (g *StripeGateway) FirstPriceID(productID, currency string) (string, error) {
	params := &stripe.PriceListParams{
		Product:  stripe.String(productID),
		Currency: stripe.String(currency),
	}
	iter := g.api.Prices.List(params)
	for iter.Next() {
		return iter.Price().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", err
	}
	return "", ErrNoPrice
}

func (g *StripeGateway) GetInvoice(id string) (*stripe.Invoice, error) {
	return g.api.Invoices.Get(id, nil)
}

func (g *StripeGateway) GetSubscription(id string) (*stripe.Subscription, error) {
	return g.api.Subscriptions.Get(id, nil)
}

func (g *StripeGateway) CancelSubscription(id string) error {
	_, err := g.api.Subscriptions.Cancel(id, nil)
	return err
}
