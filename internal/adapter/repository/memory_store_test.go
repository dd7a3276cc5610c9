package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimarket/internal/domain/entity"
	"unimarket/pkg/errors"
)

func newTestOffer(itemID, buyerID string) *entity.Offer {
	now := time.Now()
	expires := now.Add(time.Hour)
	return &entity.Offer{
		ID:        uuid.New().String(),
		ItemID:    itemID,
		BuyerID:   buyerID,
		SellerID:  "seller-1",
		Amount:    decimal.RequireFromString("50"),
		Currency:  "USD",
		Status:    entity.OfferStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: &expires,
	}
}

func TestOfferUpdateVersionCheck(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryOfferRepository(store)
	ctx := context.Background()

	offer := newTestOffer("item-1", "buyer-1")
	require.NoError(t, repo.Create(ctx, offer, nil))
	assert.Equal(t, int64(1), offer.Version)

	first, err := repo.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, offer.ID)
	require.NoError(t, err)

	first.Status = entity.OfferStatusRejected
	require.NoError(t, repo.Update(ctx, first, first.Version))
	assert.Equal(t, int64(2), first.Version)

	// The stale writer loses.
	second.Status = entity.OfferStatusCancelled
	err = repo.Update(ctx, second, second.Version)
	assert.True(t, errors.Is(err, "VERSION_CONFLICT"))

	// The committed state is the winner's.
	stored, err := repo.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusRejected, stored.Status)
}

func TestOfferAcceptCommitsAsUnit(t *testing.T) {
	store := NewMemoryStore()
	offerRepo := NewMemoryOfferRepository(store)
	txnRepo := NewMemoryTransactionRepository(store)
	ctx := context.Background()

	offer := newTestOffer("item-1", "buyer-1")
	require.NoError(t, offerRepo.Create(ctx, offer, nil))

	offer.Status = entity.OfferStatusAccepted
	txn := &entity.Transaction{
		ID:       uuid.New().String(),
		OfferID:  offer.ID,
		ItemID:   offer.ItemID,
		BuyerID:  offer.BuyerID,
		SellerID: offer.SellerID,
		Amount:   offer.Amount,
		Currency: offer.Currency,
		Status:   entity.TransactionStatusPending,
	}
	msg := &entity.Message{
		ID:            uuid.New().String(),
		TransactionID: txn.ID,
		SenderType:    entity.SenderTypeSystem,
		Body:          "Offer accepted",
		CreatedAt:     time.Now(),
	}

	require.NoError(t, offerRepo.Accept(ctx, offer, 1, txn, msg))

	storedTxn, err := txnRepo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), storedTxn.Version)
	assert.True(t, storedTxn.Amount.Equal(offer.Amount))

	msgs, total, err := txnRepo.ListMessagesByTransactionID(ctx, txn.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, msg.ID, msgs[0].ID)

	// A second accept against the consumed version fails and writes nothing.
	err = offerRepo.Accept(ctx, offer, 1, &entity.Transaction{ID: "txn-dup"}, nil)
	assert.True(t, errors.Is(err, "VERSION_CONFLICT"))
	_, err = txnRepo.GetByID(ctx, "txn-dup")
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestConcurrentUpdatesSingleWinner(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryOfferRepository(store)
	ctx := context.Background()

	offer := newTestOffer("item-1", "buyer-1")
	require.NoError(t, repo.Create(ctx, offer, nil))

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	conflicts := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := repo.GetByID(ctx, offer.ID)
			if err != nil {
				return
			}
			o.Status = entity.OfferStatusCancelled
			if err := repo.Update(ctx, o, 1); err != nil {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly one writer advanced version 1 to 2.
	assert.Equal(t, writers-1, conflicts)

	stored, err := repo.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
}

func TestSupersedeOnCreate(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryOfferRepository(store)
	ctx := context.Background()

	prior := newTestOffer("item-1", "buyer-1")
	require.NoError(t, repo.Create(ctx, prior, nil))

	replacement := newTestOffer("item-1", "buyer-1")
	superseded, err := repo.GetPendingByItemAndBuyer(ctx, "item-1", "buyer-1")
	require.NoError(t, err)
	require.NotNil(t, superseded)

	require.NoError(t, repo.Create(ctx, replacement, superseded))

	old, err := repo.GetByID(ctx, prior.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusCancelled, old.Status)
	assert.Equal(t, int64(2), old.Version)

	pending, err := repo.GetPendingByItemAndBuyer(ctx, "item-1", "buyer-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, replacement.ID, pending.ID)
}

func TestDeleteEvidenceMissingRowWritesNothing(t *testing.T) {
	store := NewMemoryStore()
	txnRepo := NewMemoryTransactionRepository(store)
	ctx := context.Background()

	txn := &entity.Transaction{
		ID:       uuid.New().String(),
		ItemID:   "item-1",
		BuyerID:  "buyer-1",
		SellerID: "seller-1",
		Amount:   decimal.RequireFromString("10"),
		Status:   entity.TransactionStatusDisputed,
	}
	require.NoError(t, txnRepo.Create(ctx, txn, nil))

	ev := &entity.Evidence{
		ID:            uuid.New().String(),
		TransactionID: txn.ID,
		Ref:           "gs://b/present",
		AddedBy:       "buyer-1",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, txnRepo.CreateEvidence(ctx, ev, nil, 0))

	// Deleting a ref that does not exist fails without bumping the
	// transaction version.
	missing := &entity.Evidence{TransactionID: txn.ID, Ref: "gs://b/missing"}
	err := txnRepo.DeleteEvidence(ctx, missing, txn, txn.Version)
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	stored, err := txnRepo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)

	// The real row still deletes cleanly afterwards.
	require.NoError(t, txnRepo.DeleteEvidence(ctx, ev, stored, stored.Version))
	rows, err := txnRepo.ListEvidenceByTransactionID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClonesAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	txnRepo := NewMemoryTransactionRepository(store)
	ctx := context.Background()

	txn := &entity.Transaction{
		ID:                  uuid.New().String(),
		ItemID:              "item-1",
		BuyerID:             "buyer-1",
		SellerID:            "seller-1",
		Amount:              decimal.RequireFromString("10"),
		Status:              entity.TransactionStatusPaid,
		DeliveryProofImages: []string{"gs://b/one"},
	}
	require.NoError(t, txnRepo.Create(ctx, txn, nil))

	read, err := txnRepo.GetByID(ctx, txn.ID)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	read.DeliveryProofImages[0] = "gs://b/tampered"
	read.Status = entity.TransactionStatusCompleted

	again, err := txnRepo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "gs://b/one", again.DeliveryProofImages[0])
	assert.Equal(t, entity.TransactionStatusPaid, again.Status)
}
