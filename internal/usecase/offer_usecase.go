package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/domain/service"
	"unimarket/internal/infrastructure/ratelimit"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type OfferUseCase struct {
	offerRepo   repository.OfferRepository
	listings    service.ListingService
	notifier    service.Notifier
	rateLimiter *ratelimit.RateLimiter
	defaultTTL  time.Duration
}

func NewOfferUseCase(
	offerRepo repository.OfferRepository,
	listings service.ListingService,
	notifier service.Notifier,
	rateLimiter *ratelimit.RateLimiter,
	defaultTTL time.Duration,
) *OfferUseCase {
	return &OfferUseCase{
		offerRepo:   offerRepo,
		listings:    listings,
		notifier:    notifier,
		rateLimiter: rateLimiter,
		defaultTTL:  defaultTTL,
	}
}

type CreateOfferInput struct {
	ItemID string
	Amount decimal.Decimal
	Note   string
	TTL    time.Duration
}

func (uc *OfferUseCase) CreateOffer(ctx context.Context, buyerID string, input CreateOfferInput) (*entity.Offer, error) {
	if !input.Amount.IsPositive() {
		return nil, errors.InvalidAmount("offer amount must be greater than zero")
	}

	listing, err := uc.listings.Get(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}

	if listing.SellerID == buyerID {
		return nil, errors.SelfDealing("you cannot make an offer on your own listing")
	}
	if !listing.Active {
		return nil, errors.InvalidState("listing is no longer available")
	}

	if allowed, wait := uc.rateLimiter.Allow(buyerID, "create_offer"); !allowed {
		return nil, errors.TooManyRequests(fmt.Sprintf("too many offers, retry in %s", wait.Round(time.Second)))
	}

	// A new offer from the same buyer on the same item supersedes any prior
	// pending one; the cancellation and the insert commit together.
	prior, err := uc.offerRepo.GetPendingByItemAndBuyer(ctx, input.ItemID, buyerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ttl := input.TTL
	if ttl <= 0 {
		ttl = uc.defaultTTL
	}
	expiresAt := now.Add(ttl)

	offer := &entity.Offer{
		ID:        uuid.New().String(),
		ItemID:    input.ItemID,
		BuyerID:   buyerID,
		SellerID:  listing.SellerID,
		Amount:    input.Amount,
		Currency:  listing.Currency,
		Status:    entity.OfferStatusPending,
		Note:      input.Note,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: &expiresAt,
	}

	if prior != nil {
		prior.Status = entity.OfferStatusCancelled
	}
	if err := uc.offerRepo.Create(ctx, offer, prior); err != nil {
		return nil, err
	}

	uc.notifier.Emit(ctx, service.NotificationEvent{
		Type:        service.EventOfferReceived,
		OfferID:     offer.ID,
		RecipientID: offer.SellerID,
		Payload: map[string]interface{}{
			"item_id": offer.ItemID,
			"amount":  offer.Amount.String(),
		},
	})

	return offer, nil
}

type RespondToOfferResult struct {
	Offer       *entity.Offer       `json:"offer"`
	Transaction *entity.Transaction `json:"transaction,omitempty"`
}

// RespondToOffer lets the seller accept or reject a pending offer.
// Acceptance resolves the offer into a transaction; the offer's accepted
// mark and the transaction creation commit as one atomic unit.
func (uc *OfferUseCase) RespondToOffer(ctx context.Context, actingUserID, offerID, action string) (*RespondToOfferResult, error) {
	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.SellerID != actingUserID {
		return nil, errors.NotAuthorized("only the seller can respond to this offer")
	}
	if offer.Status != entity.OfferStatusPending {
		return nil, errors.InvalidState(fmt.Sprintf("offer already %s", offer.Status))
	}

	switch action {
	case "accept":
		return uc.acceptOffer(ctx, offer)
	case "reject":
		return uc.rejectOffer(ctx, offer)
	default:
		return nil, errors.Validation("action must be accept or reject")
	}
}

func (uc *OfferUseCase) acceptOffer(ctx context.Context, offer *entity.Offer) (*RespondToOfferResult, error) {
	listing, err := uc.listings.Get(ctx, offer.ItemID)
	if err != nil {
		return nil, err
	}
	if !listing.Active {
		return nil, errors.InvalidState("listing is no longer available")
	}

	expectedVersion := offer.Version
	now := time.Now()
	offer.Status = entity.OfferStatusAccepted
	offer.UpdatedAt = now

	txn := &entity.Transaction{
		ID:             uuid.New().String(),
		OfferID:        offer.ID,
		ItemID:         offer.ItemID,
		BuyerID:        offer.BuyerID,
		SellerID:       offer.SellerID,
		Amount:         offer.Amount,
		Currency:       offer.Currency,
		Status:         entity.TransactionStatusPending,
		PaymentStatus:  entity.PaymentStatusPending,
		DeliveryMethod: listing.DeliveryMethod,
		DeliveryStatus: entity.DeliveryStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	msg := systemMessage(txn.ID, fmt.Sprintf("Offer of %s %s accepted, transaction created", offer.Amount.String(), offer.Currency))

	if err := uc.offerRepo.Accept(ctx, offer, expectedVersion, txn, msg); err != nil {
		return nil, err
	}

	uc.notifier.Emit(ctx, service.NotificationEvent{
		Type:          service.EventOfferAccepted,
		OfferID:       offer.ID,
		TransactionID: txn.ID,
		RecipientID:   offer.BuyerID,
		Payload: map[string]interface{}{
			"item_id": offer.ItemID,
			"amount":  offer.Amount.String(),
		},
	})

	return &RespondToOfferResult{Offer: offer, Transaction: txn}, nil
}

func (uc *OfferUseCase) rejectOffer(ctx context.Context, offer *entity.Offer) (*RespondToOfferResult, error) {
	expectedVersion := offer.Version
	offer.Status = entity.OfferStatusRejected
	offer.UpdatedAt = time.Now()

	if err := uc.offerRepo.Update(ctx, offer, expectedVersion); err != nil {
		return nil, err
	}

	uc.notifier.Emit(ctx, service.NotificationEvent{
		Type:        service.EventOfferRejected,
		OfferID:     offer.ID,
		RecipientID: offer.BuyerID,
		Payload:     map[string]interface{}{"item_id": offer.ItemID},
	})

	return &RespondToOfferResult{Offer: offer}, nil
}

func (uc *OfferUseCase) CancelOffer(ctx context.Context, actingUserID, offerID string) (*entity.Offer, error) {
	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.BuyerID != actingUserID {
		return nil, errors.NotAuthorized("only the buyer can cancel this offer")
	}
	if offer.Status != entity.OfferStatusPending {
		return nil, errors.InvalidState(fmt.Sprintf("offer already %s", offer.Status))
	}

	expectedVersion := offer.Version
	offer.Status = entity.OfferStatusCancelled
	offer.UpdatedAt = time.Now()

	if err := uc.offerRepo.Update(ctx, offer, expectedVersion); err != nil {
		return nil, err
	}

	uc.notifier.Emit(ctx, service.NotificationEvent{
		Type:        service.EventOfferCancelled,
		OfferID:     offer.ID,
		RecipientID: offer.SellerID,
		Payload:     map[string]interface{}{"item_id": offer.ItemID},
	})

	return offer, nil
}

func (uc *OfferUseCase) GetOffer(ctx context.Context, actingUserID, offerID string) (*entity.Offer, error) {
	offer, err := uc.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != actingUserID && offer.SellerID != actingUserID {
		return nil, errors.NotAuthorized("you are not a party to this offer")
	}
	return offer, nil
}

func (uc *OfferUseCase) ListOffers(ctx context.Context, userID, role string, status entity.OfferStatus, page, pageSize int) ([]*entity.Offer, int64, error) {
	if role != "buyer" && role != "seller" {
		role = "buyer"
	}
	offset := (page - 1) * pageSize
	return uc.offerRepo.ListByUserID(ctx, userID, role, status, pageSize, offset)
}

// SweepExpired marks pending offers whose TTL has passed as expired. It is
// idempotent and safe to run concurrently with user actions: a concurrent
// accept/reject/cancel simply wins the version race and that offer is
// skipped.
func (uc *OfferUseCase) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := uc.offerRepo.ListExpired(ctx, now, 200)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, offer := range expired {
		expectedVersion := offer.Version
		offer.Status = entity.OfferStatusExpired
		offer.UpdatedAt = now

		if err := uc.offerRepo.Update(ctx, offer, expectedVersion); err != nil {
			if errors.Is(err, "VERSION_CONFLICT") {
				continue
			}
			return count, err
		}
		count++

		uc.notifier.Emit(ctx, service.NotificationEvent{
			Type:        service.EventOfferExpired,
			OfferID:     offer.ID,
			RecipientID: offer.BuyerID,
			Payload:     map[string]interface{}{"item_id": offer.ItemID},
		})
	}

	return count, nil
}

// StartExpirySweeper runs SweepExpired on a fixed interval until ctx is done.
func (uc *OfferUseCase) StartExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				count, err := uc.SweepExpired(ctx, time.Now())
				if err != nil {
					logger.Error("Offer expiry sweep failed: %v", err)
				} else if count > 0 {
					logger.Info("Offer expiry sweep: %d offers expired", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("Offer expiry sweeper started (every %s)", interval)
}
