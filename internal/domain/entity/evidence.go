package entity

import "time"

type EvidenceKind string

const (
	EvidenceKindReceipt       EvidenceKind = "receipt"
	EvidenceKindDeliveryProof EvidenceKind = "delivery_proof"
)

// Evidence links a stored proof artifact (payment receipt, delivery photo)
// to a transaction. Ref is an opaque object-storage reference; the bytes
// themselves live in the evidence storage backend.
type Evidence struct {
	ID            string       `json:"id"`
	TransactionID string       `json:"transaction_id"`
	Kind          EvidenceKind `json:"kind"`
	Ref           string       `json:"ref"`
	AddedBy       string       `json:"added_by"`
	CreatedAt     time.Time    `json:"created_at"`
}
