package models

import "context"

// Cross-entity references carry only the foreign id. Callers resolve
// them explicitly against a store; the resolved value is cached for the
// lifetime of the in-memory ref, never persisted or invalidated.

// AccountGetter loads an account by id.
type AccountGetter interface {
	GetByID(ctx context.Context, id int64) (*Account, error)
}

// BuyerGetter loads a buyer sub-record by account id.
type BuyerGetter interface {
	GetByAccountID(ctx context.Context, accountID int64) (*BuyerAccount, error)
}

// DeveloperGetter loads a developer sub-record by account id.
type DeveloperGetter interface {
	GetByAccountID(ctx context.Context, accountID int64) (*DeveloperAccount, error)
}

// CommissionGetter loads a commission by id.
type CommissionGetter interface {
	GetByID(ctx context.Context, id int64) (*Commission, error)
}

// AccountRef is a two-phase handle to an Account.
type AccountRef struct {
	ID       int64 `json:"id"`
	resolved *Account
}

// NewAccountRef returns an unresolved handle.
func NewAccountRef(id int64) AccountRef { return AccountRef{ID: id} }

// ResolvedAccountRef returns a handle pre-populated with a snapshot.
func ResolvedAccountRef(a *Account) AccountRef {
	return AccountRef{ID: a.ID, resolved: a}
}

// Resolve fetches the full account on first call and caches it.
func (r *AccountRef) Resolve(ctx context.Context, store AccountGetter) (*Account, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	a, err := store.GetByID(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.resolved = a
	return a, nil
}

// BuyerRef is a two-phase handle to a BuyerAccount keyed by account id.
type BuyerRef struct {
	AccountID int64
	resolved  *BuyerAccount
}

// NewBuyerRef returns an unresolved handle.
func NewBuyerRef(accountID int64) *BuyerRef { return &BuyerRef{AccountID: accountID} }

// Resolve fetches the buyer sub-record on first call and caches it.
func (r *BuyerRef) Resolve(ctx context.Context, store BuyerGetter) (*BuyerAccount, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	b, err := store.GetByAccountID(ctx, r.AccountID)
	if err != nil {
		return nil, err
	}
	r.resolved = b
	return b, nil
}

// Prime seeds the cache. Used for synthetic accounts that have no row.
func (r *BuyerRef) Prime(b *BuyerAccount) *BuyerRef {
	r.resolved = b
	return r
}

// DeveloperRef is a two-phase handle to a DeveloperAccount.
type DeveloperRef struct {
	AccountID int64
	resolved  *DeveloperAccount
}

// NewDeveloperRef returns an unresolved handle.
func NewDeveloperRef(accountID int64) *DeveloperRef { return &DeveloperRef{AccountID: accountID} }

// Resolve fetches the developer sub-record on first call and caches it.
func (r *DeveloperRef) Resolve(ctx context.Context, store DeveloperGetter) (*DeveloperAccount, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	d, err := store.GetByAccountID(ctx, r.AccountID)
	if err != nil {
		return nil, err
	}
	r.resolved = d
	return d, nil
}

// Prime seeds the cache. Used for synthetic accounts that have no row.
func (r *DeveloperRef) Prime(d *DeveloperAccount) *DeveloperRef {
	r.resolved = d
	return r
}

// CommissionRef is a two-phase handle to a Commission.
type CommissionRef struct {
	ID       int64 `json:"id"`
	resolved *Commission
}

// NewCommissionRef returns an unresolved handle.
func NewCommissionRef(id int64) CommissionRef { return CommissionRef{ID: id} }

// Resolve fetches the full commission on first call and caches it.
func (r *CommissionRef) Resolve(ctx context.Context, store CommissionGetter) (*Commission, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	c, err := store.GetByID(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.resolved = c
	return c, nil
}
