package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"unimarket/internal/domain/entity"
	"unimarket/pkg/errors"
)

// Firestore collection names. Messages and evidence are child collections
// of a transaction in the data model but live in top-level collections
// keyed by transactionId, which keeps cross-document transactional writes
// simple.
const (
	offersCollection       = "offers"
	transactionsCollection = "transactions"
	messagesCollection     = "transaction_messages"
	evidenceCollection     = "transaction_evidence"
	usersCollection        = "users"
)

// Monetary amounts persist as strings so they round-trip through
// fixed-point decimals without floating-point drift.

type offerDoc struct {
	ID        string     `firestore:"id"`
	ItemID    string     `firestore:"itemId"`
	BuyerID   string     `firestore:"buyerId"`
	SellerID  string     `firestore:"sellerId"`
	Amount    string     `firestore:"amount"`
	Currency  string     `firestore:"currency"`
	Status    string     `firestore:"status"`
	Note      string     `firestore:"note,omitempty"`
	Version   int64      `firestore:"version"`
	CreatedAt time.Time  `firestore:"createdAt"`
	UpdatedAt time.Time  `firestore:"updatedAt"`
	ExpiresAt *time.Time `firestore:"expiresAt,omitempty"`
}

func toOfferDoc(o *entity.Offer) *offerDoc {
	return &offerDoc{
		ID:        o.ID,
		ItemID:    o.ItemID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		Amount:    o.Amount.String(),
		Currency:  o.Currency,
		Status:    string(o.Status),
		Note:      o.Note,
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		ExpiresAt: o.ExpiresAt,
	}
}

func (d *offerDoc) toEntity() (*entity.Offer, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, errors.Internal("Failed to parse offer amount", err)
	}
	return &entity.Offer{
		ID:        d.ID,
		ItemID:    d.ItemID,
		BuyerID:   d.BuyerID,
		SellerID:  d.SellerID,
		Amount:    amount,
		Currency:  d.Currency,
		Status:    entity.OfferStatus(d.Status),
		Note:      d.Note,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		ExpiresAt: d.ExpiresAt,
	}, nil
}

type transactionDoc struct {
	ID       string `firestore:"id"`
	OfferID  string `firestore:"offerId,omitempty"`
	ItemID   string `firestore:"itemId"`
	BuyerID  string `firestore:"buyerId"`
	SellerID string `firestore:"sellerId"`

	Amount   string `firestore:"amount"`
	Currency string `firestore:"currency"`

	Status        string `firestore:"status"`
	PaymentStatus string `firestore:"paymentStatus"`

	DeliveryMethod         string   `firestore:"deliveryMethod"`
	DeliveryStatus         string   `firestore:"deliveryStatus"`
	DeliveryAddress        string   `firestore:"deliveryAddress,omitempty"`
	DeliveryTrackingNumber string   `firestore:"deliveryTrackingNumber,omitempty"`
	DeliveryProofImages    []string `firestore:"deliveryProofImages,omitempty"`

	CancellationReason string `firestore:"cancellationReason,omitempty"`
	DisputeReason      string `firestore:"disputeReason,omitempty"`

	Version int64 `firestore:"version"`

	CreatedAt      time.Time  `firestore:"createdAt"`
	UpdatedAt      time.Time  `firestore:"updatedAt"`
	PaidAt         *time.Time `firestore:"paidAt,omitempty"`
	DeliveredAt    *time.Time `firestore:"deliveredAt,omitempty"`
	CompletedAt    *time.Time `firestore:"completedAt,omitempty"`
	CancelledAt    *time.Time `firestore:"cancelledAt,omitempty"`
	RefundedAt     *time.Time `firestore:"refundedAt,omitempty"`
	AutoCompleteAt *time.Time `firestore:"autoCompleteAt,omitempty"`
}

func toTransactionDoc(t *entity.Transaction) *transactionDoc {
	return &transactionDoc{
		ID:                     t.ID,
		OfferID:                t.OfferID,
		ItemID:                 t.ItemID,
		BuyerID:                t.BuyerID,
		SellerID:               t.SellerID,
		Amount:                 t.Amount.String(),
		Currency:               t.Currency,
		Status:                 string(t.Status),
		PaymentStatus:          string(t.PaymentStatus),
		DeliveryMethod:         string(t.DeliveryMethod),
		DeliveryStatus:         string(t.DeliveryStatus),
		DeliveryAddress:        t.DeliveryAddress,
		DeliveryTrackingNumber: t.DeliveryTrackingNumber,
		DeliveryProofImages:    t.DeliveryProofImages,
		CancellationReason:     t.CancellationReason,
		DisputeReason:          t.DisputeReason,
		Version:                t.Version,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
		PaidAt:                 t.PaidAt,
		DeliveredAt:            t.DeliveredAt,
		CompletedAt:            t.CompletedAt,
		CancelledAt:            t.CancelledAt,
		RefundedAt:             t.RefundedAt,
		AutoCompleteAt:         t.AutoCompleteAt,
	}
}

type messageDoc struct {
	ID            string     `firestore:"id"`
	TransactionID string     `firestore:"transactionId"`
	SenderID      string     `firestore:"senderId,omitempty"`
	SenderType    string     `firestore:"senderType"`
	Body          string     `firestore:"body"`
	CreatedAt     time.Time  `firestore:"createdAt"`
	ReadAt        *time.Time `firestore:"readAt,omitempty"`
}

func toMessageDoc(m *entity.Message) *messageDoc {
	return &messageDoc{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		SenderID:      m.SenderID,
		SenderType:    string(m.SenderType),
		Body:          m.Body,
		CreatedAt:     m.CreatedAt,
		ReadAt:        m.ReadAt,
	}
}

func (d *messageDoc) toEntity() *entity.Message {
	return &entity.Message{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		SenderID:      d.SenderID,
		SenderType:    entity.SenderType(d.SenderType),
		Body:          d.Body,
		CreatedAt:     d.CreatedAt,
		ReadAt:        d.ReadAt,
	}
}

type evidenceDoc struct {
	ID            string    `firestore:"id"`
	TransactionID string    `firestore:"transactionId"`
	Kind          string    `firestore:"kind"`
	Ref           string    `firestore:"ref"`
	AddedBy       string    `firestore:"addedBy"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

func toEvidenceDoc(e *entity.Evidence) *evidenceDoc {
	return &evidenceDoc{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		Kind:          string(e.Kind),
		Ref:           e.Ref,
		AddedBy:       e.AddedBy,
		CreatedAt:     e.CreatedAt,
	}
}

func (d *evidenceDoc) toEntity() *entity.Evidence {
	return &entity.Evidence{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		Kind:          entity.EvidenceKind(d.Kind),
		Ref:           d.Ref,
		AddedBy:       d.AddedBy,
		CreatedAt:     d.CreatedAt,
	}
}

func (d *transactionDoc) toEntity() (*entity.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, errors.Internal("Failed to parse transaction amount", err)
	}
	return &entity.Transaction{
		ID:                     d.ID,
		OfferID:                d.OfferID,
		ItemID:                 d.ItemID,
		BuyerID:                d.BuyerID,
		SellerID:               d.SellerID,
		Amount:                 amount,
		Currency:               d.Currency,
		Status:                 entity.TransactionStatus(d.Status),
		PaymentStatus:          entity.PaymentStatus(d.PaymentStatus),
		DeliveryMethod:         entity.DeliveryMethod(d.DeliveryMethod),
		DeliveryStatus:         entity.DeliveryStatus(d.DeliveryStatus),
		DeliveryAddress:        d.DeliveryAddress,
		DeliveryTrackingNumber: d.DeliveryTrackingNumber,
		DeliveryProofImages:    d.DeliveryProofImages,
		CancellationReason:     d.CancellationReason,
		DisputeReason:          d.DisputeReason,
		Version:                d.Version,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
		PaidAt:                 d.PaidAt,
		DeliveredAt:            d.DeliveredAt,
		CompletedAt:            d.CompletedAt,
		CancelledAt:            d.CancelledAt,
		RefundedAt:             d.RefundedAt,
		AutoCompleteAt:         d.AutoCompleteAt,
	}, nil
}
