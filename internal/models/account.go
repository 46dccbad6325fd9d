package models

// Account is the root identity row. Role data lives in optional
// sub-records reached through BuyerRef/DeveloperRef handles; an account
// may hold zero, one, or both.
type Account struct {
	ID               int64   `json:"id"`
	DiscordID        string  `json:"discordId"`
	Username         string  `json:"username"`
	Email            string  `json:"email"`
	AccessToken      string  `json:"-"`
	StripeCustomerID *string `json:"-"`

	Buyer     *BuyerRef     `json:"-"`
	Developer *DeveloperRef `json:"-"`
}

// IsBuyer reports whether a buyer sub-record exists for this account.
func (a *Account) IsBuyer() bool { return a.Buyer != nil }

// IsDeveloper reports whether a developer sub-record exists.
func (a *Account) IsDeveloper() bool { return a.Developer != nil }

// BuyerAccount is the buyer role sub-record, 1:1 with Account.
type BuyerAccount struct {
	AccountID            int64   `json:"accountId"`
	TierID               int     `json:"tierId"`
	RemainingCommissions int     `json:"remainingCommissions"`
	TotalCommissions     int     `json:"totalCommissions"`
	SubscriptionID       *string `json:"-"`
}

// DeveloperAccount is the developer role sub-record, 1:1 with Account.
type DeveloperAccount struct {
	AccountID      int64   `json:"accountId"`
	TierID         int     `json:"tierId"`
	RemainingBids  int     `json:"remainingBids"`
	TotalBids      int     `json:"totalBids"`
	SubscriptionID *string `json:"-"`
}
