package repository

import (
	"context"
	"time"

	"unimarket/internal/domain/entity"
)

type TransactionRepository interface {
	// Create inserts the transaction with Version 1 and, when msg is
	// non-nil, its initial system message in the same atomic write.
	Create(ctx context.Context, txn *entity.Transaction, msg *entity.Message) error

	GetByID(ctx context.Context, id string) (*entity.Transaction, error)

	// Update writes the transaction if its stored version still equals
	// expectedVersion, bumping Version by one. When msg is non-nil the
	// system message recording the transition is appended in the same
	// atomic write.
	Update(ctx context.Context, txn *entity.Transaction, expectedVersion int64, msg *entity.Message) error

	ListByUserID(ctx context.Context, userID, role string, status entity.TransactionStatus, limit, offset int) ([]*entity.Transaction, int64, error)
	List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]*entity.Transaction, int64, error)

	// ListAutoCompletable returns delivered transactions whose
	// AutoCompleteAt is at or before now.
	ListAutoCompletable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error)

	CreateMessage(ctx context.Context, msg *entity.Message) error
	ListMessagesByTransactionID(ctx context.Context, transactionID string, limit, offset int) ([]*entity.Message, int64, error)
	MarkMessagesRead(ctx context.Context, transactionID, readerID string) error

	// CreateEvidence inserts the evidence row; when txn is non-nil the
	// transaction (typically its DeliveryProofImages) is updated in the
	// same atomic write under the version precondition.
	CreateEvidence(ctx context.Context, ev *entity.Evidence, txn *entity.Transaction, expectedVersion int64) error
	GetEvidenceByRef(ctx context.Context, transactionID, ref string) (*entity.Evidence, error)
	DeleteEvidence(ctx context.Context, ev *entity.Evidence, txn *entity.Transaction, expectedVersion int64) error
	ListEvidenceByTransactionID(ctx context.Context, transactionID string) ([]*entity.Evidence, error)
}
