package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/domain/service"
	"unimarket/internal/infrastructure/ratelimit"
	"unimarket/pkg/errors"
)

// MessageUseCase is the per-transaction message ledger. Human messages are
// rejected once the transaction is terminal; system messages are appended
// by the state machine through the repository's atomic update path.
type MessageUseCase struct {
	transactionRepo repository.TransactionRepository
	notifier        service.Notifier
	rateLimiter     *ratelimit.RateLimiter
}

func NewMessageUseCase(
	transactionRepo repository.TransactionRepository,
	notifier service.Notifier,
	rateLimiter *ratelimit.RateLimiter,
) *MessageUseCase {
	return &MessageUseCase{
		transactionRepo: transactionRepo,
		notifier:        notifier,
		rateLimiter:     rateLimiter,
	}
}

func (uc *MessageUseCase) PostMessage(ctx context.Context, senderID, transactionID, body string) (*entity.Message, error) {
	if body == "" {
		return nil, errors.Validation("message body is required")
	}

	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var senderType entity.SenderType
	switch senderID {
	case txn.BuyerID:
		senderType = entity.SenderTypeBuyer
	case txn.SellerID:
		senderType = entity.SenderTypeSeller
	default:
		return nil, errors.NotAuthorized("you are not a party to this transaction")
	}

	if txn.Status.IsTerminal() {
		return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, messaging is closed", txn.Status))
	}

	if allowed, wait := uc.rateLimiter.Allow(senderID, "post_message"); !allowed {
		return nil, errors.TooManyRequests(fmt.Sprintf("too many messages, retry in %s", wait.Round(time.Second)))
	}

	msg := &entity.Message{
		ID:            uuid.New().String(),
		TransactionID: transactionID,
		SenderID:      senderID,
		SenderType:    senderType,
		Body:          body,
		CreatedAt:     time.Now(),
	}

	if err := uc.transactionRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	recipient := txn.SellerID
	if senderType == entity.SenderTypeSeller {
		recipient = txn.BuyerID
	}
	uc.notifier.Emit(ctx, service.NotificationEvent{
		Type:          service.EventMessageReceived,
		TransactionID: transactionID,
		RecipientID:   recipient,
		Payload:       map[string]interface{}{"sender_id": senderID},
	})

	return msg, nil
}

// ListMessages returns the ledger in forward-chronological order. Listing
// is a pure read and can be repeated freely.
func (uc *MessageUseCase) ListMessages(ctx context.Context, actingUserID, transactionID string, page, pageSize int) ([]*entity.Message, int64, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, 0, err
	}
	if txn.BuyerID != actingUserID && txn.SellerID != actingUserID {
		return nil, 0, errors.NotAuthorized("you are not a party to this transaction")
	}

	offset := (page - 1) * pageSize
	return uc.transactionRepo.ListMessagesByTransactionID(ctx, transactionID, pageSize, offset)
}

// MarkRead stamps ReadAt on the counterparty's unread messages.
func (uc *MessageUseCase) MarkRead(ctx context.Context, actingUserID, transactionID string) error {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.BuyerID != actingUserID && txn.SellerID != actingUserID {
		return errors.NotAuthorized("you are not a party to this transaction")
	}

	return uc.transactionRepo.MarkMessagesRead(ctx, transactionID, actingUserID)
}
