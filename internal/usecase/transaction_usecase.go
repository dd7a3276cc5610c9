package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/domain/service"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

// TransactionUseCase owns the authoritative transaction state machine.
// Every accepted transition commits the entity update and a system message
// in one atomic write under the version precondition, then emits
// fire-and-forget notification events.
type TransactionUseCase struct {
	transactionRepo   repository.TransactionRepository
	userRepo          repository.UserRepository
	listings          service.ListingService
	notifier          service.Notifier
	autoCompleteAfter time.Duration
}

func NewTransactionUseCase(
	transactionRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	listings service.ListingService,
	notifier service.Notifier,
	autoCompleteAfter time.Duration,
) *TransactionUseCase {
	return &TransactionUseCase{
		transactionRepo:   transactionRepo,
		userRepo:          userRepo,
		listings:          listings,
		notifier:          notifier,
		autoCompleteAfter: autoCompleteAfter,
	}
}

func systemMessage(transactionID, body string) *entity.Message {
	return &entity.Message{
		ID:            uuid.New().String(),
		TransactionID: transactionID,
		SenderType:    entity.SenderTypeSystem,
		Body:          body,
		CreatedAt:     time.Now(),
	}
}

type CreateTransactionInput struct {
	ItemID          string
	DeliveryAddress string
}

// CreateTransaction is the direct-purchase path: no offer involved, amount
// fixed from the listing price.
func (uc *TransactionUseCase) CreateTransaction(ctx context.Context, buyerID string, input CreateTransactionInput) (*entity.Transaction, error) {
	listing, err := uc.listings.Get(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}

	if listing.SellerID == buyerID {
		return nil, errors.SelfDealing("you cannot buy your own listing")
	}
	if !listing.Active {
		return nil, errors.InvalidState("listing is no longer available")
	}
	if listing.DeliveryMethod == entity.DeliveryMethodDelivery && input.DeliveryAddress == "" {
		return nil, errors.Validation("delivery address is required for courier delivery")
	}

	now := time.Now()
	txn := &entity.Transaction{
		ID:              uuid.New().String(),
		ItemID:          input.ItemID,
		BuyerID:         buyerID,
		SellerID:        listing.SellerID,
		Amount:          listing.Price,
		Currency:        listing.Currency,
		Status:          entity.TransactionStatusPending,
		PaymentStatus:   entity.PaymentStatusPending,
		DeliveryMethod:  listing.DeliveryMethod,
		DeliveryStatus:  entity.DeliveryStatusPending,
		DeliveryAddress: input.DeliveryAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	msg := systemMessage(txn.ID, fmt.Sprintf("Transaction created for %s %s", txn.Amount.String(), txn.Currency))
	if err := uc.transactionRepo.Create(ctx, txn, msg); err != nil {
		return nil, err
	}

	uc.notifyParties(ctx, txn, service.EventTransactionCreated, buyerID, nil)

	return txn, nil
}

func (uc *TransactionUseCase) GetTransaction(ctx context.Context, actingUserID, transactionID string) (*entity.Transaction, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.BuyerID != actingUserID && txn.SellerID != actingUserID {
		if admin, _ := uc.isAdmin(ctx, actingUserID); !admin {
			return nil, errors.NotAuthorized("you are not a party to this transaction")
		}
	}
	return txn, nil
}

func (uc *TransactionUseCase) ListTransactions(ctx context.Context, userID, role string, status entity.TransactionStatus, page, pageSize int) ([]*entity.Transaction, int64, error) {
	if role != "buyer" && role != "seller" {
		role = "buyer"
	}
	offset := (page - 1) * pageSize
	return uc.transactionRepo.ListByUserID(ctx, userID, role, status, pageSize, offset)
}

func (uc *TransactionUseCase) ListAdminTransactions(ctx context.Context, adminID string, filter map[string]interface{}, page, pageSize int) ([]*entity.Transaction, int64, error) {
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * pageSize
	return uc.transactionRepo.List(ctx, filter, pageSize, offset)
}

// MarkPaid records payment receipt: pending -> paid.
func (uc *TransactionUseCase) MarkPaid(ctx context.Context, actingUserID, transactionID string) (*entity.Transaction, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.BuyerID != actingUserID {
		return nil, errors.NotAuthorized("only the buyer can record payment")
	}
	if txn.PaymentStatus == entity.PaymentStatusPaid {
		return nil, errors.InvalidState("payment has already been recorded")
	}
	if txn.Status != entity.TransactionStatusPending {
		return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, payment can only be recorded while pending", txn.Status))
	}

	expectedVersion := txn.Version
	now := time.Now()
	txn.PaymentStatus = entity.PaymentStatusPaid
	txn.Status = entity.TransactionStatusPaid
	txn.PaidAt = &now
	txn.UpdatedAt = now

	msg := systemMessage(txn.ID, "Payment recorded")
	if err := uc.transactionRepo.Update(ctx, txn, expectedVersion, msg); err != nil {
		return nil, err
	}

	uc.notifyParties(ctx, txn, service.EventTransactionPaid, actingUserID, nil)

	return txn, nil
}

type SetDeliveryStatusInput struct {
	DeliveryStatus entity.DeliveryStatus
	TrackingNumber string
}

// SetDeliveryStatus is the seller's delivery progress update. Setting
// ready_for_pickup or in_transit advances the transaction to shipped;
// delivered advances it to delivered and arms the auto-complete timer.
func (uc *TransactionUseCase) SetDeliveryStatus(ctx context.Context, actingUserID, transactionID string, input SetDeliveryStatusInput) (*entity.Transaction, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.SellerID != actingUserID {
		return nil, errors.NotAuthorized("only the seller can update delivery status")
	}
	if txn.Status != entity.TransactionStatusPaid && txn.Status != entity.TransactionStatusShipped {
		return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, delivery can only be updated after payment", txn.Status))
	}
	if !entity.ValidDeliveryUpdate(txn.DeliveryMethod, input.DeliveryStatus) {
		return nil, errors.Validation(fmt.Sprintf("delivery status %s is not valid for %s transactions", input.DeliveryStatus, txn.DeliveryMethod))
	}

	expectedVersion := txn.Version
	now := time.Now()
	txn.DeliveryStatus = input.DeliveryStatus
	txn.Status = entity.StatusForDelivery(txn.Status, input.DeliveryStatus)
	txn.UpdatedAt = now

	if input.DeliveryStatus == entity.DeliveryStatusInTransit && input.TrackingNumber != "" {
		txn.DeliveryTrackingNumber = input.TrackingNumber
	}
	if input.DeliveryStatus == entity.DeliveryStatusDelivered {
		txn.DeliveredAt = &now
		autoCompleteAt := now.Add(uc.autoCompleteAfter)
		txn.AutoCompleteAt = &autoCompleteAt
	}

	msg := systemMessage(txn.ID, fmt.Sprintf("Delivery status updated to %s", input.DeliveryStatus))
	if err := uc.transactionRepo.Update(ctx, txn, expectedVersion, msg); err != nil {
		return nil, err
	}

	uc.notifyParties(ctx, txn, service.EventDeliveryUpdated, actingUserID, map[string]interface{}{
		"delivery_status": string(input.DeliveryStatus),
	})

	return txn, nil
}

// Complete confirms receipt: delivered -> completed. CompletedAt is set
// exactly once; a second call fails with INVALID_STATE.
func (uc *TransactionUseCase) Complete(ctx context.Context, actingUserID, transactionID string) (*entity.Transaction, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.BuyerID != actingUserID {
		return nil, errors.NotAuthorized("only the buyer can complete the transaction")
	}

	return uc.complete(ctx, txn, "Transaction completed by buyer")
}

func (uc *TransactionUseCase) complete(ctx context.Context, txn *entity.Transaction, note string) (*entity.Transaction, error) {
	if txn.Status != entity.TransactionStatusDelivered {
		return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, only a delivered transaction can be completed", txn.Status))
	}

	expectedVersion := txn.Version
	now := time.Now()
	txn.Status = entity.TransactionStatusCompleted
	txn.CompletedAt = &now
	txn.AutoCompleteAt = nil
	txn.UpdatedAt = now

	msg := systemMessage(txn.ID, note)
	if err := uc.transactionRepo.Update(ctx, txn, expectedVersion, msg); err != nil {
		return nil, err
	}

	uc.notifyParties(ctx, txn, service.EventTransactionCompleted, "", nil)

	return txn, nil
}

// Cancel aborts a non-terminal transaction. A disputed transaction can only
// be cancelled by an administrator.
func (uc *TransactionUseCase) Cancel(ctx context.Context, actingUserID, transactionID, reason string) (*entity.Transaction, error) {
	if reason == "" {
		return nil, errors.Validation("a cancellation reason is required")
	}

	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	admin, err := uc.isAdmin(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	if txn.BuyerID != actingUserID && txn.SellerID != actingUserID && !admin {
		return nil, errors.NotAuthorized("you are not a party to this transaction")
	}

	if txn.Status.IsTerminal() {
		return nil, errors.InvalidState(fmt.Sprintf("transaction already %s", txn.Status))
	}
	if txn.Status == entity.TransactionStatusDisputed && !admin {
		return nil, errors.InvalidState("transaction is disputed, only an administrator can cancel it")
	}

	expectedVersion := txn.Version
	now := time.Now()
	txn.Status = entity.TransactionStatusCancelled
	txn.CancellationReason = reason
	txn.CancelledAt = &now
	txn.AutoCompleteAt = nil
	txn.UpdatedAt = now

	msg := systemMessage(txn.ID, fmt.Sprintf("Transaction cancelled: %s", reason))
	if err := uc.transactionRepo.Update(ctx, txn, expectedVersion, msg); err != nil {
		return nil, err
	}

	uc.notifyParties(ctx, txn, service.EventTransactionCancelled, actingUserID, map[string]interface{}{
		"reason": reason,
	})

	return txn, nil
}

// ReportProblem raises a dispute from paid, shipped or delivered. Payment
// and delivery statuses keep their values; only the transaction status moves.
func (uc *TransactionUseCase) ReportProblem(ctx context.Context, actingUserID, transactionID, description string) (*entity.Transaction, error) {
	if description == "" {
		return nil, errors.Validation("a problem description is required")
	}

	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.BuyerID != actingUserID && txn.SellerID != actingUserID {
		return nil, errors.NotAuthorized("you are not a party to this transaction")
	}

	switch txn.Status {
	case entity.TransactionStatusPaid, entity.TransactionStatusShipped, entity.TransactionStatusDelivered:
	default:
		return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, a problem can only be reported after payment", txn.Status))
	}

	expectedVersion := txn.Version
	now := time.Now()
	txn.Status = entity.TransactionStatusDisputed
	txn.DisputeReason = description
	txn.AutoCompleteAt = nil
	txn.UpdatedAt = now

	msg := systemMessage(txn.ID, fmt.Sprintf("Problem reported: %s", description))
	if err := uc.transactionRepo.Update(ctx, txn, expectedVersion, msg); err != nil {
		return nil, err
	}

	uc.notifyParties(ctx, txn, service.EventTransactionDisputed, actingUserID, map[string]interface{}{
		"description": description,
	})

	return txn, nil
}

// Refund resolves a dispute in the buyer's favor: disputed -> refunded.
func (uc *TransactionUseCase) Refund(ctx context.Context, adminID, transactionID string) (*entity.Transaction, error) {
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != entity.TransactionStatusDisputed {
		return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, only a disputed transaction can be refunded", txn.Status))
	}

	expectedVersion := txn.Version
	now := time.Now()
	txn.Status = entity.TransactionStatusRefunded
	txn.PaymentStatus = entity.PaymentStatusRefunded
	txn.RefundedAt = &now
	txn.UpdatedAt = now

	msg := systemMessage(txn.ID, "Dispute resolved: payment refunded to buyer")
	if err := uc.transactionRepo.Update(ctx, txn, expectedVersion, msg); err != nil {
		return nil, err
	}

	uc.notifyParties(ctx, txn, service.EventTransactionRefunded, "", nil)

	return txn, nil
}

// ResolveDispute closes a dispute with outcome "release" (seller keeps the
// payment, transaction completes) or "refund".
func (uc *TransactionUseCase) ResolveDispute(ctx context.Context, adminID, transactionID, outcome string) (*entity.Transaction, error) {
	switch outcome {
	case "refund":
		return uc.Refund(ctx, adminID, transactionID)
	case "release":
	default:
		return nil, errors.Validation("outcome must be release or refund")
	}

	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != entity.TransactionStatusDisputed {
		return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, only a disputed transaction can be resolved", txn.Status))
	}

	expectedVersion := txn.Version
	now := time.Now()
	txn.Status = entity.TransactionStatusCompleted
	txn.CompletedAt = &now
	txn.UpdatedAt = now

	msg := systemMessage(txn.ID, "Dispute resolved: payment released to seller")
	if err := uc.transactionRepo.Update(ctx, txn, expectedVersion, msg); err != nil {
		return nil, err
	}

	uc.notifyParties(ctx, txn, service.EventTransactionCompleted, "", nil)

	return txn, nil
}

// ProcessAutoComplete completes delivered transactions whose confirmation
// window has passed without the buyer completing or disputing. Losing a
// version race to a concurrent buyer action is fine; that transaction is
// simply skipped.
func (uc *TransactionUseCase) ProcessAutoComplete(ctx context.Context, now time.Time) (int, error) {
	due, err := uc.transactionRepo.ListAutoCompletable(ctx, now, 100)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, txn := range due {
		if _, err := uc.complete(ctx, txn, "Transaction auto-completed after confirmation window"); err != nil {
			if errors.Is(err, "VERSION_CONFLICT") || errors.Is(err, "INVALID_STATE") {
				continue
			}
			return count, err
		}
		count++
	}

	return count, nil
}

// StartAutoCompleteJob runs ProcessAutoComplete on a fixed interval until
// ctx is done.
func (uc *TransactionUseCase) StartAutoCompleteJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				count, err := uc.ProcessAutoComplete(ctx, time.Now())
				if err != nil {
					logger.Error("Auto-complete job failed: %v", err)
				} else if count > 0 {
					logger.Info("Auto-complete job: %d transactions completed", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("Auto-complete job started (every %s)", interval)
}

func (uc *TransactionUseCase) isAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin(), nil
}

func (uc *TransactionUseCase) requireAdmin(ctx context.Context, userID string) error {
	admin, err := uc.isAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !admin {
		return errors.NotAuthorized("administrator privileges required")
	}
	return nil
}

// notifyParties emits one event per counterparty, skipping the actor.
func (uc *TransactionUseCase) notifyParties(ctx context.Context, txn *entity.Transaction, eventType, actorID string, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["status"] = string(txn.Status)

	for _, recipient := range []string{txn.BuyerID, txn.SellerID} {
		if recipient == actorID {
			continue
		}
		uc.notifier.Emit(ctx, service.NotificationEvent{
			Type:          eventType,
			TransactionID: txn.ID,
			RecipientID:   recipient,
			Payload:       payload,
		})
	}
}
