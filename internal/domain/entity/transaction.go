package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusPaid      TransactionStatus = "paid"
	TransactionStatusShipped   TransactionStatus = "shipped"
	TransactionStatusDelivered TransactionStatus = "delivered"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusDisputed  TransactionStatus = "disputed"
)

// IsTerminal reports whether the transaction has reached a final state.
// Disputed is not terminal: an administrator can still refund, release, or
// cancel it.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusCancelled, TransactionStatusRefunded:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

type DeliveryStatus string

const (
	DeliveryStatusPending        DeliveryStatus = "pending"
	DeliveryStatusReadyForPickup DeliveryStatus = "ready_for_pickup"
	DeliveryStatusInTransit      DeliveryStatus = "in_transit"
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
	DeliveryStatusFailed         DeliveryStatus = "failed"
)

type Transaction struct {
	ID       string `json:"id"`
	OfferID  string `json:"offer_id,omitempty"`
	ItemID   string `json:"item_id"`
	BuyerID  string `json:"buyer_id"`
	SellerID string `json:"seller_id"`

	// Amount is fixed at creation from the accepted offer (or the listing
	// price for a direct purchase) and never changes afterwards.
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	Status        TransactionStatus `json:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status"`

	DeliveryMethod         DeliveryMethod `json:"delivery_method"`
	DeliveryStatus         DeliveryStatus `json:"delivery_status"`
	DeliveryAddress        string         `json:"delivery_address,omitempty"`
	DeliveryTrackingNumber string         `json:"delivery_tracking_number,omitempty"`
	DeliveryProofImages    []string       `json:"delivery_proof_images,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`
	DisputeReason      string `json:"dispute_reason,omitempty"`

	Version int64 `json:"version"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time `json:"refunded_at,omitempty"`
	AutoCompleteAt *time.Time `json:"auto_complete_at,omitempty"`
}

// StatusForDelivery maps a delivery status the seller sets to the
// transaction status it advances to. A failed delivery attempt leaves the
// transaction status where it was.
func StatusForDelivery(current TransactionStatus, ds DeliveryStatus) TransactionStatus {
	switch ds {
	case DeliveryStatusReadyForPickup, DeliveryStatusInTransit:
		return TransactionStatusShipped
	case DeliveryStatusDelivered:
		return TransactionStatusDelivered
	}
	return current
}

// ValidDeliveryUpdate reports whether the seller may set ds on a transaction
// using the given delivery method. Pending is never set by hand, and the
// pickup/courier branches each have their own progress marker.
func ValidDeliveryUpdate(method DeliveryMethod, ds DeliveryStatus) bool {
	switch ds {
	case DeliveryStatusReadyForPickup:
		return method == DeliveryMethodPickup
	case DeliveryStatusInTransit:
		return method == DeliveryMethodDelivery
	case DeliveryStatusDelivered, DeliveryStatusFailed:
		return true
	}
	return false
}
