package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusExpired   OfferStatus = "expired"
	OfferStatusCancelled OfferStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted. Every
// offer status except pending is terminal.
func (s OfferStatus) IsTerminal() bool {
	return s != OfferStatusPending
}

type Offer struct {
	ID       string          `json:"id"`
	ItemID   string          `json:"item_id"`
	BuyerID  string          `json:"buyer_id"`
	SellerID string          `json:"seller_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   OfferStatus     `json:"status"`
	Note     string          `json:"note,omitempty"`

	// Version is the optimistic-concurrency stamp; it starts at 1 and
	// increases by one on every committed update.
	Version int64 `json:"version"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether a pending offer's TTL has passed. Offers without
// an ExpiresAt never expire.
func (o *Offer) Expired(now time.Time) bool {
	return o.Status == OfferStatusPending && o.ExpiresAt != nil && !o.ExpiresAt.After(now)
}
