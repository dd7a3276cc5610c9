package repository

import (
	"context"
	"sort"
	"time"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

type memoryOfferRepository struct {
	store *MemoryStore
}

func NewMemoryOfferRepository(store *MemoryStore) repository.OfferRepository {
	return &memoryOfferRepository{store: store}
}

func (r *memoryOfferRepository) Create(ctx context.Context, offer *entity.Offer, supersede *entity.Offer) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if supersede != nil {
		stored, ok := s.offers[supersede.ID]
		if !ok {
			return errors.NotFound("Offer", nil)
		}
		if stored.Version != supersede.Version {
			return errors.VersionConflict("offer")
		}
		cancelled := cloneOffer(supersede)
		cancelled.Status = entity.OfferStatusCancelled
		cancelled.Version = stored.Version + 1
		cancelled.UpdatedAt = offer.CreatedAt
		s.offers[cancelled.ID] = cancelled
	}

	offer.Version = 1
	s.offers[offer.ID] = cloneOffer(offer)
	return nil
}

func (r *memoryOfferRepository) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[id]
	if !ok {
		return nil, errors.NotFound("Offer", nil)
	}
	return cloneOffer(offer), nil
}

func (r *memoryOfferRepository) Update(ctx context.Context, offer *entity.Offer, expectedVersion int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.offers[offer.ID]
	if !ok {
		return errors.NotFound("Offer", nil)
	}
	if stored.Version != expectedVersion {
		return errors.VersionConflict("offer")
	}

	offer.Version = expectedVersion + 1
	s.offers[offer.ID] = cloneOffer(offer)
	return nil
}

func (r *memoryOfferRepository) GetPendingByItemAndBuyer(ctx context.Context, itemID, buyerID string) (*entity.Offer, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, offer := range s.offers {
		if offer.ItemID == itemID && offer.BuyerID == buyerID && offer.Status == entity.OfferStatusPending {
			return cloneOffer(offer), nil
		}
	}
	return nil, nil
}

func (r *memoryOfferRepository) ListByUserID(ctx context.Context, userID, role string, status entity.OfferStatus, limit, offset int) ([]*entity.Offer, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entity.Offer
	for _, offer := range s.offers {
		if role == "buyer" && offer.BuyerID != userID {
			continue
		}
		if role == "seller" && offer.SellerID != userID {
			continue
		}
		if status != "" && offer.Status != status {
			continue
		}
		matched = append(matched, cloneOffer(offer))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	matched = paginate(matched, limit, offset)
	return matched, total, nil
}

func (r *memoryOfferRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Offer, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*entity.Offer
	for _, offer := range s.offers {
		if offer.Expired(now) {
			expired = append(expired, cloneOffer(offer))
			if limit > 0 && len(expired) >= limit {
				break
			}
		}
	}
	return expired, nil
}

func (r *memoryOfferRepository) Accept(ctx context.Context, offer *entity.Offer, expectedVersion int64, txn *entity.Transaction, msg *entity.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.offers[offer.ID]
	if !ok {
		return errors.NotFound("Offer", nil)
	}
	if stored.Version != expectedVersion {
		return errors.VersionConflict("offer")
	}

	offer.Version = expectedVersion + 1
	s.offers[offer.ID] = cloneOffer(offer)

	txn.Version = 1
	s.transactions[txn.ID] = cloneTransaction(txn)
	if msg != nil {
		s.messages[txn.ID] = append(s.messages[txn.ID], cloneMessage(msg))
	}
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
