package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/domain/service"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type EvidenceUseCase struct {
	transactionRepo repository.TransactionRepository
	userRepo        repository.UserRepository
	storage         service.EvidenceStorage
	notifier        service.Notifier
}

func NewEvidenceUseCase(
	transactionRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	storage service.EvidenceStorage,
	notifier service.Notifier,
) *EvidenceUseCase {
	return &EvidenceUseCase{
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		storage:         storage,
		notifier:        notifier,
	}
}

type AddEvidenceInput struct {
	Kind        entity.EvidenceKind
	File        io.Reader
	ContentType string
}

// AddEvidence uploads the artifact and links its reference to the
// transaction. Receipts are the buyer's while payment is outstanding;
// delivery proofs are the seller's from payment to delivery.
func (uc *EvidenceUseCase) AddEvidence(ctx context.Context, actingUserID, transactionID string, input AddEvidenceInput) (*entity.Evidence, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	switch input.Kind {
	case entity.EvidenceKindReceipt:
		if txn.BuyerID != actingUserID {
			return nil, errors.NotAuthorized("only the buyer can attach a receipt")
		}
		if txn.Status != entity.TransactionStatusPending {
			return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, receipts can only be attached while payment is pending", txn.Status))
		}
	case entity.EvidenceKindDeliveryProof:
		if txn.SellerID != actingUserID {
			return nil, errors.NotAuthorized("only the seller can attach delivery proof")
		}
		switch txn.Status {
		case entity.TransactionStatusPaid, entity.TransactionStatusShipped, entity.TransactionStatusDelivered:
		default:
			return nil, errors.InvalidState(fmt.Sprintf("transaction is %s, delivery proof can only be attached between payment and delivery", txn.Status))
		}
	default:
		return nil, errors.Validation("evidence kind must be receipt or delivery_proof")
	}

	ref, err := uc.storage.Put(ctx, input.File, input.ContentType, fmt.Sprintf("evidence/%s", transactionID))
	if err != nil {
		return nil, err
	}

	ev := &entity.Evidence{
		ID:            uuid.New().String(),
		TransactionID: transactionID,
		Kind:          input.Kind,
		Ref:           ref,
		AddedBy:       actingUserID,
		CreatedAt:     time.Now(),
	}

	// Delivery proofs also appear on the transaction itself, in upload
	// order; that append rides the same atomic write as the evidence row.
	var txnUpdate *entity.Transaction
	expectedVersion := txn.Version
	if input.Kind == entity.EvidenceKindDeliveryProof {
		txn.DeliveryProofImages = append(txn.DeliveryProofImages, ref)
		txn.UpdatedAt = ev.CreatedAt
		txnUpdate = txn
	}

	if err := uc.transactionRepo.CreateEvidence(ctx, ev, txnUpdate, expectedVersion); err != nil {
		if delErr := uc.storage.Delete(ctx, ref); delErr != nil {
			logger.Warn("Failed to clean up orphaned evidence object %s: %v", ref, delErr)
		}
		return nil, err
	}

	recipient := txn.SellerID
	if actingUserID == txn.SellerID {
		recipient = txn.BuyerID
	}
	uc.notifier.Emit(ctx, service.NotificationEvent{
		Type:          service.EventEvidenceAdded,
		TransactionID: transactionID,
		RecipientID:   recipient,
		Payload:       map[string]interface{}{"kind": string(input.Kind)},
	})

	return ev, nil
}

// RemoveEvidence detaches and deletes an artifact. Only the original adder
// or an administrator may remove it.
func (uc *EvidenceUseCase) RemoveEvidence(ctx context.Context, actingUserID, transactionID, ref string) error {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}

	ev, err := uc.transactionRepo.GetEvidenceByRef(ctx, transactionID, ref)
	if err != nil {
		return err
	}

	if ev.AddedBy != actingUserID {
		admin, err := uc.isAdmin(ctx, actingUserID)
		if err != nil {
			return err
		}
		if !admin {
			return errors.NotAuthorized("only the user who added this evidence can remove it")
		}
	}

	var txnUpdate *entity.Transaction
	expectedVersion := txn.Version
	if ev.Kind == entity.EvidenceKindDeliveryProof {
		images := txn.DeliveryProofImages[:0]
		for _, img := range txn.DeliveryProofImages {
			if img != ref {
				images = append(images, img)
			}
		}
		txn.DeliveryProofImages = images
		txn.UpdatedAt = time.Now()
		txnUpdate = txn
	}

	if err := uc.transactionRepo.DeleteEvidence(ctx, ev, txnUpdate, expectedVersion); err != nil {
		return err
	}

	// Best effort: a dangling object is preferable to a dangling reference.
	if err := uc.storage.Delete(ctx, ref); err != nil {
		logger.Warn("Failed to delete evidence object %s: %v", ref, err)
	}

	return nil
}

func (uc *EvidenceUseCase) ListEvidence(ctx context.Context, actingUserID, transactionID string) ([]*entity.Evidence, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.BuyerID != actingUserID && txn.SellerID != actingUserID {
		admin, err := uc.isAdmin(ctx, actingUserID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, errors.NotAuthorized("you are not a party to this transaction")
		}
	}

	return uc.transactionRepo.ListEvidenceByTransactionID(ctx, transactionID)
}

func (uc *EvidenceUseCase) isAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin(), nil
}
