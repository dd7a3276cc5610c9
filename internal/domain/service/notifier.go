package service

import "context"

// Event types emitted by the offer engine and the transaction state machine.
const (
	EventOfferReceived  = "offer_received"
	EventOfferAccepted  = "offer_accepted"
	EventOfferRejected  = "offer_rejected"
	EventOfferCancelled = "offer_cancelled"
	EventOfferExpired   = "offer_expired"

	EventTransactionCreated   = "transaction_created"
	EventTransactionPaid      = "transaction_paid"
	EventDeliveryUpdated      = "delivery_updated"
	EventTransactionCompleted = "transaction_completed"
	EventTransactionCancelled = "transaction_cancelled"
	EventTransactionDisputed  = "transaction_disputed"
	EventTransactionRefunded  = "transaction_refunded"

	EventMessageReceived = "message_received"
	EventEvidenceAdded   = "evidence_added"
)

type NotificationEvent struct {
	Type          string                 `json:"type"`
	OfferID       string                 `json:"offer_id,omitempty"`
	TransactionID string                 `json:"transaction_id,omitempty"`
	RecipientID   string                 `json:"recipient_id"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// Notifier is the external notification boundary. Emit is fire-and-forget:
// implementations must not block the caller and a failed delivery never
// rolls back a committed state transition.
type Notifier interface {
	Emit(ctx context.Context, event NotificationEvent)
}
