package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionStatusIsTerminal(t *testing.T) {
	terminal := []TransactionStatus{
		TransactionStatusCompleted,
		TransactionStatusCancelled,
		TransactionStatusRefunded,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}

	open := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusPaid,
		TransactionStatusShipped,
		TransactionStatusDelivered,
		TransactionStatusDisputed,
	}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestStatusForDelivery(t *testing.T) {
	assert.Equal(t, TransactionStatusShipped, StatusForDelivery(TransactionStatusPaid, DeliveryStatusReadyForPickup))
	assert.Equal(t, TransactionStatusShipped, StatusForDelivery(TransactionStatusPaid, DeliveryStatusInTransit))
	assert.Equal(t, TransactionStatusDelivered, StatusForDelivery(TransactionStatusShipped, DeliveryStatusDelivered))

	// A failed attempt leaves the status alone.
	assert.Equal(t, TransactionStatusShipped, StatusForDelivery(TransactionStatusShipped, DeliveryStatusFailed))
}

func TestValidDeliveryUpdate(t *testing.T) {
	assert.True(t, ValidDeliveryUpdate(DeliveryMethodPickup, DeliveryStatusReadyForPickup))
	assert.False(t, ValidDeliveryUpdate(DeliveryMethodDelivery, DeliveryStatusReadyForPickup))

	assert.True(t, ValidDeliveryUpdate(DeliveryMethodDelivery, DeliveryStatusInTransit))
	assert.False(t, ValidDeliveryUpdate(DeliveryMethodPickup, DeliveryStatusInTransit))

	for _, method := range []DeliveryMethod{DeliveryMethodPickup, DeliveryMethodDelivery} {
		assert.True(t, ValidDeliveryUpdate(method, DeliveryStatusDelivered))
		assert.True(t, ValidDeliveryUpdate(method, DeliveryStatusFailed))
		assert.False(t, ValidDeliveryUpdate(method, DeliveryStatusPending))
	}
}

func TestOfferExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Offer{Status: OfferStatusPending, ExpiresAt: &past}).Expired(now))
	assert.False(t, (&Offer{Status: OfferStatusPending, ExpiresAt: &future}).Expired(now))
	assert.False(t, (&Offer{Status: OfferStatusPending}).Expired(now))

	// Terminal offers never expire, whatever their timestamp says.
	assert.False(t, (&Offer{Status: OfferStatusAccepted, ExpiresAt: &past}).Expired(now))
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	paidAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	txn := Transaction{
		ID:            "txn-1",
		OfferID:       "offer-1",
		ItemID:        "item-1",
		BuyerID:       "buyer-1",
		SellerID:      "seller-1",
		Amount:        decimal.RequireFromString("85.50"),
		Currency:      "USD",
		Status:        TransactionStatusPaid,
		PaymentStatus: PaymentStatusPaid,
		Version:       3,
		PaidAt:        &paidAt,
	}

	data, err := json.Marshal(txn)
	require.NoError(t, err)

	var decoded Transaction
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, txn.ID, decoded.ID)
	assert.Equal(t, txn.Version, decoded.Version)
	assert.True(t, txn.Amount.Equal(decoded.Amount))
	require.NotNil(t, decoded.PaidAt)
	assert.True(t, decoded.PaidAt.Equal(paidAt))
	assert.Nil(t, decoded.CompletedAt)
}
