package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimarket/internal/domain/entity"
	"unimarket/pkg/errors"
)

func TestAddReceiptEvidence(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()
	txn := f.makeTransaction(t, "item-1", "buyer-1", "seller-1")

	// The seller cannot attach a receipt.
	_, err := f.evidence.AddEvidence(ctx, "seller-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindReceipt,
		File:        strings.NewReader("receipt bytes"),
		ContentType: "image/png",
	})
	assert.True(t, errors.Is(err, "NOT_AUTHORIZED"))

	ev, err := f.evidence.AddEvidence(ctx, "buyer-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindReceipt,
		File:        strings.NewReader("receipt bytes"),
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.EvidenceKindReceipt, ev.Kind)
	assert.Equal(t, "buyer-1", ev.AddedBy)
	assert.Contains(t, ev.Ref, "evidence/"+txn.ID)

	// Once payment is recorded, the receipt window closes.
	_, err = f.transactions.MarkPaid(ctx, "buyer-1", txn.ID)
	require.NoError(t, err)
	_, err = f.evidence.AddEvidence(ctx, "buyer-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindReceipt,
		File:        strings.NewReader("late receipt"),
		ContentType: "image/png",
	})
	assert.True(t, errors.Is(err, "INVALID_STATE"))
}

func TestAddDeliveryProofEvidence(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()
	txn := f.makeTransaction(t, "item-1", "buyer-1", "seller-1")

	// Delivery proof needs a paid transaction.
	_, err := f.evidence.AddEvidence(ctx, "seller-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindDeliveryProof,
		File:        strings.NewReader("photo"),
		ContentType: "image/jpeg",
	})
	assert.True(t, errors.Is(err, "INVALID_STATE"))

	_, err = f.transactions.MarkPaid(ctx, "buyer-1", txn.ID)
	require.NoError(t, err)

	// Only the seller attaches delivery proof.
	_, err = f.evidence.AddEvidence(ctx, "buyer-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindDeliveryProof,
		File:        strings.NewReader("photo"),
		ContentType: "image/jpeg",
	})
	assert.True(t, errors.Is(err, "NOT_AUTHORIZED"))

	ev, err := f.evidence.AddEvidence(ctx, "seller-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindDeliveryProof,
		File:        strings.NewReader("photo"),
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	// The proof reference also lands on the transaction, in upload order.
	updated, err := f.transactions.GetTransaction(ctx, "seller-1", txn.ID)
	require.NoError(t, err)
	require.Len(t, updated.DeliveryProofImages, 1)
	assert.Equal(t, ev.Ref, updated.DeliveryProofImages[0])
}

func TestAddEvidenceStorageFailure(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()
	txn := f.makeTransaction(t, "item-1", "buyer-1", "seller-1")

	_, err := f.transactions.MarkPaid(ctx, "buyer-1", txn.ID)
	require.NoError(t, err)

	f.storage.failPut = true
	_, err = f.evidence.AddEvidence(ctx, "seller-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindDeliveryProof,
		File:        strings.NewReader("photo"),
		ContentType: "image/jpeg",
	})
	assert.True(t, errors.Is(err, "UNAVAILABLE"))

	// No evidence row exists after the failed upload.
	items, err := f.evidence.ListEvidence(ctx, "seller-1", txn.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRemoveEvidence(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	f.seedUser("admin-1", "admin")
	ctx := context.Background()
	txn := f.makeTransaction(t, "item-1", "buyer-1", "seller-1")

	_, err := f.transactions.MarkPaid(ctx, "buyer-1", txn.ID)
	require.NoError(t, err)

	ev, err := f.evidence.AddEvidence(ctx, "seller-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindDeliveryProof,
		File:        strings.NewReader("photo"),
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	// Neither the counterparty nor a stranger can remove it.
	err = f.evidence.RemoveEvidence(ctx, "buyer-1", txn.ID, ev.Ref)
	assert.True(t, errors.Is(err, "NOT_AUTHORIZED"))

	require.NoError(t, f.evidence.RemoveEvidence(ctx, "seller-1", txn.ID, ev.Ref))

	// The proof reference leaves the transaction and the object is deleted.
	updated, err := f.transactions.GetTransaction(ctx, "seller-1", txn.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.DeliveryProofImages)
	assert.Contains(t, f.storage.deleted, ev.Ref)

	items, err := f.evidence.ListEvidence(ctx, "seller-1", txn.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAdminCanRemoveEvidence(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	f.seedUser("admin-1", "admin")
	ctx := context.Background()
	txn := f.makeTransaction(t, "item-1", "buyer-1", "seller-1")

	ev, err := f.evidence.AddEvidence(ctx, "buyer-1", txn.ID, AddEvidenceInput{
		Kind:        entity.EvidenceKindReceipt,
		File:        strings.NewReader("receipt"),
		ContentType: "image/png",
	})
	require.NoError(t, err)

	require.NoError(t, f.evidence.RemoveEvidence(ctx, "admin-1", txn.ID, ev.Ref))

	items, err := f.evidence.ListEvidence(ctx, "admin-1", txn.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
