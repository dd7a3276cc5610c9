package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/service"
	"unimarket/pkg/errors"
)

func TestCreateOffer(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	offer, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85.50"),
		Note:   "would pick up tomorrow",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.OfferStatusPending, offer.Status)
	assert.Equal(t, "seller-1", offer.SellerID)
	assert.Equal(t, "USD", offer.Currency)
	assert.Equal(t, int64(1), offer.Version)
	require.NotNil(t, offer.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), *offer.ExpiresAt, time.Minute)

	events := f.notifier.eventsOfType(service.EventOfferReceived)
	require.Len(t, events, 1)
	assert.Equal(t, "seller-1", events[0].RecipientID)
}

func TestCreateOfferRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	for _, amount := range []string{"0", "-5"} {
		_, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
			ItemID: "item-1",
			Amount: decimal.RequireFromString(amount),
		})
		assert.True(t, errors.Is(err, "INVALID_AMOUNT"), "amount %s: got %v", amount, err)
	}
}

func TestCreateOfferRejectsSelfDealing(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)

	_, err := f.offers.CreateOffer(context.Background(), "seller-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	assert.True(t, errors.Is(err, "SELF_DEALING"))
}

func TestCreateOfferRejectsInactiveListing(t *testing.T) {
	f := newFixture()
	l := f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	l.Active = false
	f.listings.put(l)

	_, err := f.offers.CreateOffer(context.Background(), "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	assert.True(t, errors.Is(err, "INVALID_STATE"))
}

func TestCreateOfferRateLimited(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	// Each create supersedes the previous pending offer, so only the
	// limiter caps the burst.
	for i := 0; i < 5; i++ {
		_, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
			ItemID: "item-1",
			Amount: decimal.RequireFromString("85"),
		})
		require.NoError(t, err)
	}

	_, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	assert.True(t, errors.Is(err, "TOO_MANY_REQUESTS"))

	// Other buyers have their own bucket.
	_, err = f.offers.CreateOffer(ctx, "buyer-2", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	assert.NoError(t, err)
}

func TestCreateOfferSupersedesPriorPending(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	first, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("80"),
	})
	require.NoError(t, err)

	second, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("90"),
	})
	require.NoError(t, err)

	prior, err := f.offers.GetOffer(ctx, "buyer-1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusCancelled, prior.Status)

	// At most one pending offer per (item, buyer).
	pending, total, err := f.offers.ListOffers(ctx, "buyer-1", "buyer", entity.OfferStatusPending, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}

func TestAcceptOfferCreatesTransactionAtomically(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodDelivery)
	ctx := context.Background()

	offer, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85.50"),
	})
	require.NoError(t, err)

	result, err := f.offers.RespondToOffer(ctx, "seller-1", offer.ID, "accept")
	require.NoError(t, err)

	assert.Equal(t, entity.OfferStatusAccepted, result.Offer.Status)
	require.NotNil(t, result.Transaction)

	txn, err := f.transactions.GetTransaction(ctx, "buyer-1", result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, offer.ID, txn.OfferID)
	assert.True(t, txn.Amount.Equal(offer.Amount), "transaction amount %s != offer amount %s", txn.Amount, offer.Amount)
	assert.Equal(t, entity.TransactionStatusPending, txn.Status)
	assert.Equal(t, entity.DeliveryMethodDelivery, txn.DeliveryMethod)

	// Acceptance seeds the message ledger with a system message.
	msgs, _, err := f.messages.ListMessages(ctx, "buyer-1", txn.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.SenderTypeSystem, msgs[0].SenderType)
}

func TestAcceptOfferRejectsInactiveListing(t *testing.T) {
	f := newFixture()
	l := f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	offer, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	require.NoError(t, err)

	// Listing went away between offer and acceptance.
	l.Active = false
	f.listings.put(l)

	_, err = f.offers.RespondToOffer(ctx, "seller-1", offer.ID, "accept")
	assert.True(t, errors.Is(err, "INVALID_STATE"))

	// The offer is untouched by the failed acceptance.
	unchanged, err := f.offers.GetOffer(ctx, "seller-1", offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusPending, unchanged.Status)
}

func TestRespondToOfferAuthorization(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	offer, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	require.NoError(t, err)

	_, err = f.offers.RespondToOffer(ctx, "buyer-1", offer.ID, "accept")
	assert.True(t, errors.Is(err, "NOT_AUTHORIZED"))

	_, err = f.offers.RespondToOffer(ctx, "someone-else", offer.ID, "reject")
	assert.True(t, errors.Is(err, "NOT_AUTHORIZED"))
}

func TestRejectOffer(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	offer, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	require.NoError(t, err)

	result, err := f.offers.RespondToOffer(ctx, "seller-1", offer.ID, "reject")
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusRejected, result.Offer.Status)
	assert.Nil(t, result.Transaction)

	// Rejection is terminal.
	_, err = f.offers.RespondToOffer(ctx, "seller-1", offer.ID, "accept")
	assert.True(t, errors.Is(err, "INVALID_STATE"))
}

func TestCancelThenAcceptFails(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	offer, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	require.NoError(t, err)

	cancelled, err := f.offers.CancelOffer(ctx, "buyer-1", offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusCancelled, cancelled.Status)

	_, err = f.offers.RespondToOffer(ctx, "seller-1", offer.ID, "accept")
	assert.True(t, errors.Is(err, "INVALID_STATE"))
}

func TestCancelOfferSellerForbidden(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	offer, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
	})
	require.NoError(t, err)

	_, err = f.offers.CancelOffer(ctx, "seller-1", offer.ID)
	assert.True(t, errors.Is(err, "NOT_AUTHORIZED"))
}

func TestSweepExpired(t *testing.T) {
	f := newFixture()
	f.seedListing("item-1", "seller-1", "100", entity.DeliveryMethodPickup)
	ctx := context.Background()

	offer, err := f.offers.CreateOffer(ctx, "buyer-1", CreateOfferInput{
		ItemID: "item-1",
		Amount: decimal.RequireFromString("85"),
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	// Before the TTL the sweep is a no-op.
	count, err := f.offers.SweepExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	later := time.Now().Add(2 * time.Hour)
	count, err = f.offers.SweepExpired(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expired, err := f.offers.GetOffer(ctx, "buyer-1", offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusExpired, expired.Status)

	// The sweep is idempotent.
	count, err = f.offers.SweepExpired(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// An expired offer can no longer be accepted.
	_, err = f.offers.RespondToOffer(ctx, "seller-1", offer.ID, "accept")
	assert.True(t, errors.Is(err, "INVALID_STATE"))
}
