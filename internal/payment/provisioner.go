package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	stripe "github.com/stripe/stripe-go/v79"

	"github.com/craftstudio/backend/internal/catalog"
	"github.com/craftstudio/backend/internal/models"
	"github.com/craftstudio/backend/internal/repository"
)

var (
	ErrUnknownPlan         = errors.New("plan product matches no tier")
	ErrAmbiguousPlan       = errors.New("plan product matches both a buyer and a developer tier")
	ErrUnknownSubscription = errors.New("subscription matches no account")
	ErrMalformedEvent      = errors.New("event payload is missing required fields")
)

// AccountStore is the account access provisioning needs.
type AccountStore interface {
	UpdateStripeCustomerID(ctx context.Context, accountID int64, customerID string) error
}

// BuyerSubscriptionStore reads and switches buyer subscription state.
type BuyerSubscriptionStore interface {
	GetByAccountID(ctx context.Context, accountID int64) (*models.BuyerAccount, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.BuyerAccount, error)
	UpdateSubscription(ctx context.Context, accountID int64, tierID int, subscriptionID *string, refillTo *int) error
}

// DeveloperSubscriptionStore mirrors BuyerSubscriptionStore.
type DeveloperSubscriptionStore interface {
	GetByAccountID(ctx context.Context, accountID int64) (*models.DeveloperAccount, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.DeveloperAccount, error)
	UpdateSubscription(ctx context.Context, accountID int64, tierID int, subscriptionID *string, refillTo *int) error
}

// Provisioner applies webhook-driven subscription state changes.
type Provisioner struct {
	Accounts   AccountStore
	Buyers     BuyerSubscriptionStore
	Developers DeveloperSubscriptionStore
	Tiers      *catalog.Catalog
	Gateway    Gateway
	Logger     *slog.Logger
}

// HandleCheckoutCompleted correlates the checkout session to the local
// account via the client reference id, records the Stripe customer and
// runs first-time provisioning off the session's invoice.
func (p *Provisioner) HandleCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	accountID, err := strconv.ParseInt(sess.ClientReferenceID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad client reference id %q", ErrMalformedEvent, sess.ClientReferenceID)
	}
	if sess.Customer != nil {
		if err := p.Accounts.UpdateStripeCustomerID(ctx, accountID, sess.Customer.ID); err != nil {
			return fmt.Errorf("store customer id: %w", err)
		}
	}
	if sess.Invoice == nil {
		return fmt.Errorf("%w: checkout session has no invoice", ErrMalformedEvent)
	}
	inv, err := p.Gateway.GetInvoice(sess.Invoice.ID)
	if err != nil {
		return fmt.Errorf("fetch invoice %s: %w", sess.Invoice.ID, err)
	}
	return p.ProvisionFirstTime(ctx, accountID, inv)
}

// ProvisionFirstTime switches the account onto the purchased tier. The
// plan's product id must match exactly one tier catalog. An existing
// subscription of the same role is cancelled first so the account is
// never billed twice. Quota is deliberately left alone; the first
// renewal refills it.
func (p *Provisioner) ProvisionFirstTime(ctx context.Context, accountID int64, inv *stripe.Invoice) error {
	productID, subID, err := invoiceRefs(inv)
	if err != nil {
		return err
	}

	// Provisioning still goes through on a non-active subscription;
	// the status is only worth a warning.
	if sub, err := p.Gateway.GetSubscription(subID); err != nil {
		p.Logger.Warn("retrieve subscription", "subscription_id", subID, "error", err)
	} else if sub.Status != stripe.SubscriptionStatusActive {
		p.Logger.Warn("provisioning a subscription that is not active",
			"subscription_id", subID, "status", sub.Status)
	}

	buyerTier, isBuyerPlan := p.Tiers.BuyerTierByProduct(productID)
	devTier, isDevPlan := p.Tiers.DeveloperTierByProduct(productID)
	switch {
	case isBuyerPlan && isDevPlan:
		return fmt.Errorf("%w: product %s", ErrAmbiguousPlan, productID)
	case isBuyerPlan:
		b, err := p.Buyers.GetByAccountID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("account %d has no buyer profile: %w", accountID, err)
		}
		p.cancelOld(b.SubscriptionID, subID)
		return p.Buyers.UpdateSubscription(ctx, accountID, buyerTier.ID, &subID, nil)
	case isDevPlan:
		d, err := p.Developers.GetByAccountID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("account %d has no developer profile: %w", accountID, err)
		}
		p.cancelOld(d.SubscriptionID, subID)
		return p.Developers.UpdateSubscription(ctx, accountID, devTier.ID, &subID, nil)
	default:
		return fmt.Errorf("%w: product %s", ErrUnknownPlan, productID)
	}
}

// ProvisionRenewal refills the quota of whichever role holds the
// invoice's subscription id.
func (p *Provisioner) ProvisionRenewal(ctx context.Context, inv *stripe.Invoice) error {
	if inv.Subscription == nil {
		return fmt.Errorf("%w: invoice has no subscription", ErrMalformedEvent)
	}
	subID := inv.Subscription.ID

	b, err := p.Buyers.GetBySubscriptionID(ctx, subID)
	if err == nil {
		tier, ok := p.Tiers.BuyerTier(b.TierID)
		if !ok {
			return fmt.Errorf("buyer tier %d missing from catalog", b.TierID)
		}
		refill := tier.CommissionsPerMonth
		return p.Buyers.UpdateSubscription(ctx, b.AccountID, b.TierID, b.SubscriptionID, &refill)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	d, err := p.Developers.GetBySubscriptionID(ctx, subID)
	if err == nil {
		tier, ok := p.Tiers.DeveloperTier(d.TierID)
		if !ok {
			return fmt.Errorf("developer tier %d missing from catalog", d.TierID)
		}
		refill := tier.BidsPerMonth
		return p.Developers.UpdateSubscription(ctx, d.AccountID, d.TierID, d.SubscriptionID, &refill)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s", ErrUnknownSubscription, subID)
}

// cancelOld cancels a superseded subscription. Failures are logged,
// not fatal: the tier switch must still go through.
func (p *Provisioner) cancelOld(old *string, next string) {
	if old == nil || *old == next {
		return
	}
	if err := p.Gateway.CancelSubscription(*old); err != nil {
		p.Logger.Warn("cancel superseded subscription", "subscription_id", *old, "error", err)
	}
}

func invoiceRefs(inv *stripe.Invoice) (productID, subID string, err error) {
	if inv.Subscription == nil {
		return "", "", fmt.Errorf("%w: invoice has no subscription", ErrMalformedEvent)
	}
	if inv.Lines == nil || len(inv.Lines.Data) == 0 ||
		inv.Lines.Data[0].Plan == nil || inv.Lines.Data[0].Plan.Product == nil {
		return "", "", fmt.Errorf("%w: invoice has no plan line", ErrMalformedEvent)
	}
	return inv.Lines.Data[0].Plan.Product.ID, inv.Subscription.ID, nil
}
