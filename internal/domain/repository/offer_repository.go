package repository

import (
	"context"
	"time"

	"unimarket/internal/domain/entity"
)

type OfferRepository interface {
	// Create inserts a new offer with Version 1. When supersede is non-nil
	// it is marked cancelled in the same atomic write, under its version
	// precondition, so a buyer never holds two pending offers on one item.
	Create(ctx context.Context, offer *entity.Offer, supersede *entity.Offer) error

	GetByID(ctx context.Context, id string) (*entity.Offer, error)

	// Update writes the offer if its stored version still equals
	// expectedVersion, bumping Version by one. A concurrent writer having
	// won the race surfaces as a VERSION_CONFLICT error.
	Update(ctx context.Context, offer *entity.Offer, expectedVersion int64) error

	// GetPendingByItemAndBuyer returns the buyer's pending offer on an item,
	// or (nil, nil) when there is none.
	GetPendingByItemAndBuyer(ctx context.Context, itemID, buyerID string) (*entity.Offer, error)

	ListByUserID(ctx context.Context, userID, role string, status entity.OfferStatus, limit, offset int) ([]*entity.Offer, int64, error)

	// ListExpired returns pending offers whose ExpiresAt is at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Offer, error)

	// Accept atomically marks the offer accepted (under its version
	// precondition) and creates the transaction it resolves into, together
	// with the transaction's initial system message. No observer ever sees
	// one side of the pair without the other.
	Accept(ctx context.Context, offer *entity.Offer, expectedVersion int64, txn *entity.Transaction, msg *entity.Message) error
}
