// Package catalog caches the subscription tier catalogs in memory.
// The catalog is loaded once at startup and can be refreshed
// explicitly; tiers are static configuration, so nothing refreshes it
// in normal operation.
package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/craftstudio/backend/internal/models"
)

const freeTierID = 0

// ErrNotLoaded is returned by lookups before the first Refresh.
var ErrNotLoaded = errors.New("tier catalog not loaded")

// TierSource is the persistent view the catalog reads through.
type TierSource interface {
	ListBuyerTiers(ctx context.Context) ([]*models.BuyerTier, error)
	ListDeveloperTiers(ctx context.Context) ([]*models.DeveloperTier, error)
}

// Catalog is a process-scoped handle; construct once in main and pass
// to the components that need tier lookups.
type Catalog struct {
	source TierSource

	mu             sync.RWMutex
	loaded         bool
	buyerByID      map[int]*models.BuyerTier
	buyerByName    map[string]*models.BuyerTier
	buyerByProduct map[string]*models.BuyerTier
	devByID        map[int]*models.DeveloperTier
	devByName      map[string]*models.DeveloperTier
	devByProduct   map[string]*models.DeveloperTier
}

func New(source TierSource) *Catalog {
	return &Catalog{source: source}
}

// Refresh reloads both catalogs from the source. Safe to call
// concurrently with lookups.
func (c *Catalog) Refresh(ctx context.Context) error {
	buyers, err := c.source.ListBuyerTiers(ctx)
	if err != nil {
		return err
	}
	developers, err := c.source.ListDeveloperTiers(ctx)
	if err != nil {
		return err
	}

	buyerByID := make(map[int]*models.BuyerTier, len(buyers))
	buyerByName := make(map[string]*models.BuyerTier, len(buyers))
	buyerByProduct := make(map[string]*models.BuyerTier)
	for _, t := range buyers {
		buyerByID[t.ID] = t
		buyerByName[t.Name] = t
		if t.StripeProductID != nil {
			buyerByProduct[*t.StripeProductID] = t
		}
	}
	devByID := make(map[int]*models.DeveloperTier, len(developers))
	devByName := make(map[string]*models.DeveloperTier, len(developers))
	devByProduct := make(map[string]*models.DeveloperTier)
	for _, t := range developers {
		devByID[t.ID] = t
		devByName[t.Name] = t
		if t.StripeProductID != nil {
			devByProduct[*t.StripeProductID] = t
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.buyerByID, c.buyerByName, c.buyerByProduct = buyerByID, buyerByName, buyerByProduct
	c.devByID, c.devByName, c.devByProduct = devByID, devByName, devByProduct
	return nil
}

func (c *Catalog) BuyerTier(id int) (*models.BuyerTier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.buyerByID[id]
	return t, ok
}

func (c *Catalog) BuyerTierByName(name string) (*models.BuyerTier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.buyerByName[name]
	return t, ok
}

func (c *Catalog) BuyerTierByProduct(productID string) (*models.BuyerTier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.buyerByProduct[productID]
	return t, ok
}

func (c *Catalog) DeveloperTier(id int) (*models.DeveloperTier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.devByID[id]
	return t, ok
}

func (c *Catalog) DeveloperTierByName(name string) (*models.DeveloperTier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.devByName[name]
	return t, ok
}

func (c *Catalog) DeveloperTierByProduct(productID string) (*models.DeveloperTier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.devByProduct[productID]
	return t, ok
}

// FreeBuyerTier returns the seeded free tier. Panics if the catalog was
// never loaded; startup refreshes before serving.
func (c *Catalog) FreeBuyerTier() *models.BuyerTier {
	t, ok := c.BuyerTier(freeTierID)
	if !ok {
		panic(ErrNotLoaded)
	}
	return t
}

// FreeDeveloperTier returns the seeded free tier.
func (c *Catalog) FreeDeveloperTier() *models.DeveloperTier {
	t, ok := c.DeveloperTier(freeTierID)
	if !ok {
		panic(ErrNotLoaded)
	}
	return t
}
