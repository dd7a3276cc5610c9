package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

type firestoreTransactionRepository struct {
	client *firestore.Client
}

func NewFirestoreTransactionRepository(client *firestore.Client) repository.TransactionRepository {
	return &firestoreTransactionRepository{client: client}
}

func (r *firestoreTransactionRepository) Create(ctx context.Context, txn *entity.Transaction, msg *entity.Message) error {
	txn.Version = 1

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(r.client.Collection(transactionsCollection).Doc(txn.ID), toTransactionDoc(txn)); err != nil {
			return err
		}
		if msg != nil {
			if err := tx.Create(r.client.Collection(messagesCollection).Doc(msg.ID), toMessageDoc(msg)); err != nil {
				return err
			}
		}
		return nil
	})

	return wrapStoreError("Failed to create transaction", err)
}

func (r *firestoreTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	snap, err := r.client.Collection(transactionsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Transaction", err)
		}
		return nil, errors.Unavailable("Failed to get transaction", err)
	}

	var doc transactionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse transaction data", err)
	}
	return doc.toEntity()
}

func (r *firestoreTransactionRepository) Update(ctx context.Context, txn *entity.Transaction, expectedVersion int64, msg *entity.Message) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.client.Collection(transactionsCollection).Doc(txn.ID)
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Transaction", err)
			}
			return err
		}
		var stored transactionDoc
		if err := snap.DataTo(&stored); err != nil {
			return errors.Internal("Failed to parse transaction data", err)
		}
		if stored.Version != expectedVersion {
			return errors.VersionConflict("transaction")
		}

		txn.Version = expectedVersion + 1
		if err := tx.Set(ref, toTransactionDoc(txn)); err != nil {
			return err
		}
		if msg != nil {
			if err := tx.Create(r.client.Collection(messagesCollection).Doc(msg.ID), toMessageDoc(msg)); err != nil {
				return err
			}
		}
		return nil
	})

	return wrapStoreError("Failed to update transaction", err)
}

func (r *firestoreTransactionRepository) ListByUserID(ctx context.Context, userID, role string, statusFilter entity.TransactionStatus, limit, offset int) ([]*entity.Transaction, int64, error) {
	field := "buyerId"
	if role == "seller" {
		field = "sellerId"
	}

	query := r.client.Collection(transactionsCollection).Where(field, "==", userID)
	if statusFilter != "" {
		query = query.Where("status", "==", string(statusFilter))
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	return r.collectTransactions(ctx, query, limit, offset)
}

func (r *firestoreTransactionRepository) List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]*entity.Transaction, int64, error) {
	query := r.client.Collection(transactionsCollection).OrderBy("createdAt", firestore.Desc)
	for key, value := range filter {
		query = query.Where(key, "==", value)
	}
	return r.collectTransactions(ctx, query, limit, offset)
}

func (r *firestoreTransactionRepository) collectTransactions(ctx context.Context, query firestore.Query, limit, offset int) ([]*entity.Transaction, int64, error) {
	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Unavailable("Failed to count transactions", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var transactions []*entity.Transaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Unavailable("Failed to iterate transactions", err)
		}

		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, 0, errors.Internal("Failed to parse transaction data", err)
		}
		txn, err := doc.toEntity()
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, txn)
	}

	return transactions, total, nil
}

func (r *firestoreTransactionRepository) ListAutoCompletable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	query := r.client.Collection(transactionsCollection).
		Where("status", "==", string(entity.TransactionStatusDelivered)).
		Where("autoCompleteAt", "<=", now)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var transactions []*entity.Transaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Unavailable("Failed to iterate auto-completable transactions", err)
		}

		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Internal("Failed to parse transaction data", err)
		}
		txn, err := doc.toEntity()
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}

	return transactions, nil
}

func (r *firestoreTransactionRepository) CreateMessage(ctx context.Context, msg *entity.Message) error {
	_, err := r.client.Collection(messagesCollection).Doc(msg.ID).Create(ctx, toMessageDoc(msg))
	if err != nil {
		return errors.Unavailable("Failed to create message", err)
	}
	return nil
}

func (r *firestoreTransactionRepository) ListMessagesByTransactionID(ctx context.Context, transactionID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection(messagesCollection).
		Where("transactionId", "==", transactionID).
		OrderBy("createdAt", firestore.Asc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Unavailable("Failed to count messages", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Unavailable("Failed to iterate messages", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, doc.toEntity())
	}

	return messages, total, nil
}

func (r *firestoreTransactionRepository) MarkMessagesRead(ctx context.Context, transactionID, readerID string) error {
	iter := r.client.Collection(messagesCollection).
		Where("transactionId", "==", transactionID).
		Documents(ctx)
	defer iter.Stop()

	now := time.Now()
	batch := r.client.Batch()
	updates := 0

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Unavailable("Failed to iterate messages", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if doc.SenderID == readerID || doc.ReadAt != nil {
			continue
		}
		batch.Update(snap.Ref, []firestore.Update{{Path: "readAt", Value: now}})
		updates++
	}

	if updates == 0 {
		return nil
	}
	if _, err := batch.Commit(ctx); err != nil {
		return errors.Unavailable("Failed to mark messages read", err)
	}
	return nil
}

func (r *firestoreTransactionRepository) CreateEvidence(ctx context.Context, ev *entity.Evidence, txn *entity.Transaction, expectedVersion int64) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if txn != nil {
			ref := r.client.Collection(transactionsCollection).Doc(txn.ID)
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return errors.NotFound("Transaction", err)
				}
				return err
			}
			var stored transactionDoc
			if err := snap.DataTo(&stored); err != nil {
				return errors.Internal("Failed to parse transaction data", err)
			}
			if stored.Version != expectedVersion {
				return errors.VersionConflict("transaction")
			}
			txn.Version = expectedVersion + 1
			if err := tx.Set(ref, toTransactionDoc(txn)); err != nil {
				return err
			}
		}
		return tx.Create(r.client.Collection(evidenceCollection).Doc(ev.ID), toEvidenceDoc(ev))
	})

	return wrapStoreError("Failed to create evidence", err)
}

func (r *firestoreTransactionRepository) GetEvidenceByRef(ctx context.Context, transactionID, ref string) (*entity.Evidence, error) {
	iter := r.client.Collection(evidenceCollection).
		Where("transactionId", "==", transactionID).
		Where("ref", "==", ref).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Evidence", nil)
	}
	if err != nil {
		return nil, errors.Unavailable("Failed to query evidence", err)
	}

	var doc evidenceDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse evidence data", err)
	}
	return doc.toEntity(), nil
}

func (r *firestoreTransactionRepository) DeleteEvidence(ctx context.Context, ev *entity.Evidence, txn *entity.Transaction, expectedVersion int64) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if txn != nil {
			ref := r.client.Collection(transactionsCollection).Doc(txn.ID)
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return errors.NotFound("Transaction", err)
				}
				return err
			}
			var stored transactionDoc
			if err := snap.DataTo(&stored); err != nil {
				return errors.Internal("Failed to parse transaction data", err)
			}
			if stored.Version != expectedVersion {
				return errors.VersionConflict("transaction")
			}
			txn.Version = expectedVersion + 1
			if err := tx.Set(ref, toTransactionDoc(txn)); err != nil {
				return err
			}
		}
		return tx.Delete(r.client.Collection(evidenceCollection).Doc(ev.ID))
	})

	return wrapStoreError("Failed to delete evidence", err)
}

func (r *firestoreTransactionRepository) ListEvidenceByTransactionID(ctx context.Context, transactionID string) ([]*entity.Evidence, error) {
	iter := r.client.Collection(evidenceCollection).
		Where("transactionId", "==", transactionID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []*entity.Evidence
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Unavailable("Failed to iterate evidence", err)
		}

		var doc evidenceDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Internal("Failed to parse evidence data", err)
		}
		out = append(out, doc.toEntity())
	}

	return out, nil
}
