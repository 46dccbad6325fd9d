package models

import "time"

// Bid is a developer's offer against a commission. At most one bid per
// commission may be accepted.
type Bid struct {
	ID              int64         `json:"bidId"`
	Commission      CommissionRef `json:"commission"`
	Bidder          AccountRef    `json:"bidder"`
	FixedBidAmount  int           `json:"fixedBidAmount"`
	HourlyBidAmount int           `json:"hourlyBidAmount"`
	Testimony       *string       `json:"testimony,omitempty"`
	CreationTime    time.Time     `json:"creationTime"`
	Accepted        bool          `json:"accepted"`
}
