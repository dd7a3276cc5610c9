package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

type firestoreOfferRepository struct {
	client *firestore.Client
}

func NewFirestoreOfferRepository(client *firestore.Client) repository.OfferRepository {
	return &firestoreOfferRepository{client: client}
}

func (r *firestoreOfferRepository) Create(ctx context.Context, offer *entity.Offer, supersede *entity.Offer) error {
	offer.Version = 1

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if supersede != nil {
			ref := r.client.Collection(offersCollection).Doc(supersede.ID)
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return errors.NotFound("Offer", err)
				}
				return err
			}
			var stored offerDoc
			if err := snap.DataTo(&stored); err != nil {
				return errors.Internal("Failed to parse offer data", err)
			}
			if stored.Version != supersede.Version {
				return errors.VersionConflict("offer")
			}
			cancelled := supersede
			cancelled.Status = entity.OfferStatusCancelled
			cancelled.Version = stored.Version + 1
			cancelled.UpdatedAt = offer.CreatedAt
			if err := tx.Set(ref, toOfferDoc(cancelled)); err != nil {
				return err
			}
		}
		return tx.Create(r.client.Collection(offersCollection).Doc(offer.ID), toOfferDoc(offer))
	})

	return wrapStoreError("Failed to create offer", err)
}

func (r *firestoreOfferRepository) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	snap, err := r.client.Collection(offersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Offer", err)
		}
		return nil, errors.Unavailable("Failed to get offer", err)
	}

	var doc offerDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse offer data", err)
	}
	return doc.toEntity()
}

func (r *firestoreOfferRepository) Update(ctx context.Context, offer *entity.Offer, expectedVersion int64) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.client.Collection(offersCollection).Doc(offer.ID)
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Offer", err)
			}
			return err
		}
		var stored offerDoc
		if err := snap.DataTo(&stored); err != nil {
			return errors.Internal("Failed to parse offer data", err)
		}
		if stored.Version != expectedVersion {
			return errors.VersionConflict("offer")
		}
		offer.Version = expectedVersion + 1
		return tx.Set(ref, toOfferDoc(offer))
	})

	return wrapStoreError("Failed to update offer", err)
}

func (r *firestoreOfferRepository) GetPendingByItemAndBuyer(ctx context.Context, itemID, buyerID string) (*entity.Offer, error) {
	iter := r.client.Collection(offersCollection).
		Where("itemId", "==", itemID).
		Where("buyerId", "==", buyerID).
		Where("status", "==", string(entity.OfferStatusPending)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Unavailable("Failed to query offers", err)
	}

	var doc offerDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse offer data", err)
	}
	return doc.toEntity()
}

func (r *firestoreOfferRepository) ListByUserID(ctx context.Context, userID, role string, statusFilter entity.OfferStatus, limit, offset int) ([]*entity.Offer, int64, error) {
	field := "buyerId"
	if role == "seller" {
		field = "sellerId"
	}

	query := r.client.Collection(offersCollection).Where(field, "==", userID)
	if statusFilter != "" {
		query = query.Where("status", "==", string(statusFilter))
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Unavailable("Failed to count offers", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var offers []*entity.Offer
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Unavailable("Failed to iterate offers", err)
		}

		var doc offerDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, 0, errors.Internal("Failed to parse offer data", err)
		}
		offer, err := doc.toEntity()
		if err != nil {
			return nil, 0, err
		}
		offers = append(offers, offer)
	}

	return offers, total, nil
}

func (r *firestoreOfferRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Offer, error) {
	query := r.client.Collection(offersCollection).
		Where("status", "==", string(entity.OfferStatusPending)).
		Where("expiresAt", "<=", now)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var offers []*entity.Offer
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Unavailable("Failed to iterate expired offers", err)
		}

		var doc offerDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Internal("Failed to parse offer data", err)
		}
		offer, err := doc.toEntity()
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}

	return offers, nil
}

// Accept marks the offer accepted and creates the transaction plus its
// initial system message in one Firestore transaction, so both writes
// become visible together or not at all.
func (r *firestoreOfferRepository) Accept(ctx context.Context, offer *entity.Offer, expectedVersion int64, txn *entity.Transaction, msg *entity.Message) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.client.Collection(offersCollection).Doc(offer.ID)
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Offer", err)
			}
			return err
		}
		var stored offerDoc
		if err := snap.DataTo(&stored); err != nil {
			return errors.Internal("Failed to parse offer data", err)
		}
		if stored.Version != expectedVersion {
			return errors.VersionConflict("offer")
		}

		offer.Version = expectedVersion + 1
		if err := tx.Set(ref, toOfferDoc(offer)); err != nil {
			return err
		}

		txn.Version = 1
		if err := tx.Create(r.client.Collection(transactionsCollection).Doc(txn.ID), toTransactionDoc(txn)); err != nil {
			return err
		}
		if msg != nil {
			if err := tx.Create(r.client.Collection(messagesCollection).Doc(msg.ID), toMessageDoc(msg)); err != nil {
				return err
			}
		}
		return nil
	})

	return wrapStoreError("Failed to accept offer", err)
}

// wrapStoreError passes AppErrors through and treats anything else as
// storage unavailability: the transactional write was rolled back, nothing
// was persisted, and the caller may retry.
func wrapStoreError(message string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if e, ok := err.(*errors.AppError); ok {
		appErr = e
	}
	if appErr != nil {
		return appErr
	}
	return errors.Unavailable(message, err)
}
