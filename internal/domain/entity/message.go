package entity

import "time"

type SenderType string

const (
	SenderTypeBuyer  SenderType = "buyer"
	SenderTypeSeller SenderType = "seller"
	SenderTypeSystem SenderType = "system"
)

// Message is an append-only ledger entry on a transaction. System messages
// annotate state transitions and are written atomically with them.
type Message struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transaction_id"`
	SenderID      string     `json:"sender_id,omitempty"`
	SenderType    SenderType `json:"sender_type"`
	Body          string     `json:"body"`
	CreatedAt     time.Time  `json:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
}
