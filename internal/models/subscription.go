package models

// Tier ceilings and quotas use -1 to mean unlimited.
const Unlimited = -1

// BuyerTier is a buyer subscription plan. Price and offer ceilings are
// in cents. StripeProductID correlates webhook payloads to a tier.
type BuyerTier struct {
	ID                  int     `json:"id"`
	Name                string  `json:"name"`
	CommissionsPerMonth int     `json:"commissionsPerMonth"`
	MaxFixedOffer       int     `json:"maxFixedOffer"`
	MaxHourlyOffer      int     `json:"maxHourlyOffer"`
	Price               int     `json:"price"`
	StripeProductID     *string `json:"-"`
}

// DeveloperTier is a developer subscription plan.
type DeveloperTier struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	BidsPerMonth     int     `json:"bidsPerMonth"`
	FixedOfferLimit  int     `json:"fixedOfferLimit"`
	HourlyOfferLimit int     `json:"hourlyOfferLimit"`
	Price            int     `json:"price"`
	StripeProductID  *string `json:"-"`
}

// AllowsOffer reports whether a commission with the given amounts is
// within this tier's price ceilings. A commission qualifies when either
// its fixed or its hourly offer fits.
func (t *DeveloperTier) AllowsOffer(fixed, hourly int) bool {
	fixedOK := t.FixedOfferLimit == Unlimited || fixed <= t.FixedOfferLimit
	hourlyOK := t.HourlyOfferLimit == Unlimited || hourly <= t.HourlyOfferLimit
	return fixedOK || hourlyOK
}
