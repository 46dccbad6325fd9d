package models

import "time"

// Commission status lifecycle:
// draft -> submitted -> bidding -> accepted -> expired, with archived as
// the true terminal state. An accepted commission could in principle
// regress to submitted within a re-edit grace window; that transition is
// deliberately not implemented yet.
type CommissionStatus string

const (
	CommissionStatusDraft     CommissionStatus = "draft"
	CommissionStatusSubmitted CommissionStatus = "submitted"
	CommissionStatusBidding   CommissionStatus = "bidding"
	CommissionStatusAccepted  CommissionStatus = "accepted"
	CommissionStatusExpired   CommissionStatus = "expired"
	CommissionStatusArchived  CommissionStatus = "archived"
)

// Valid reports whether s is a known status.
func (s CommissionStatus) Valid() bool {
	switch s {
	case CommissionStatusDraft, CommissionStatusSubmitted, CommissionStatusBidding,
		CommissionStatusAccepted, CommissionStatusExpired, CommissionStatusArchived:
		return true
	}
	return false
}

// Commission is a buyer's job posting. Amounts are in minor currency
// units (cents). Developer is non-nil iff status is accepted or later.
type Commission struct {
	ID                int64            `json:"commissionId"`
	Title             string           `json:"title"`
	Summary           string           `json:"summary"`
	Requirements      string           `json:"requirements"`
	Category          string           `json:"category"`
	FixedPriceAmount  int              `json:"fixedPriceAmount"`
	HourlyPriceAmount int              `json:"hourlyPriceAmount"`
	MinimumReputation int              `json:"minimumReputation"`
	CreationTime      time.Time        `json:"creationTime"`
	ExpiryTime        time.Time        `json:"expiryTime"`
	Status            CommissionStatus `json:"status"`
	Owner             AccountRef       `json:"owner"`
	Developer         *AccountRef      `json:"developer,omitempty"`
}

// DaysRemaining is the whole number of days until expiry.
func (c *Commission) DaysRemaining(now time.Time) int {
	return int(c.ExpiryTime.Sub(now).Hours() / 24)
}

// Expired reports whether the commission is past its expiry time.
func (c *Commission) Expired(now time.Time) bool {
	return now.After(c.ExpiryTime)
}

// CommissionSort names the supported orderings for browsing available
// commissions. The default direction is descending.
type CommissionSort string

const (
	SortDateCreated CommissionSort = "DATE_CREATED"
	SortDateExpiry  CommissionSort = "DATE_EXPIRY"
	SortFixedPrice  CommissionSort = "FIXED_PRICE"
	SortHourlyPrice CommissionSort = "HOURLY_PRICE"
	SortReputation  CommissionSort = "REPUTATION"
)

// ParseCommissionSort returns the sort for name, or SortDateCreated for
// anything unrecognized.
func ParseCommissionSort(name string) CommissionSort {
	switch CommissionSort(name) {
	case SortDateExpiry, SortFixedPrice, SortHourlyPrice, SortReputation:
		return CommissionSort(name)
	}
	return SortDateCreated
}
