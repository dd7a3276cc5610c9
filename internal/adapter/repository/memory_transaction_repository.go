package repository

import (
	"context"
	"sort"
	"time"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

type memoryTransactionRepository struct {
	store *MemoryStore
}

func NewMemoryTransactionRepository(store *MemoryStore) repository.TransactionRepository {
	return &memoryTransactionRepository{store: store}
}

func NewMemoryUserRepository(store *MemoryStore) repository.UserRepository {
	return &memoryUserRepository{store: store}
}

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	u := *user
	return &u, nil
}

func (r *memoryTransactionRepository) Create(ctx context.Context, txn *entity.Transaction, msg *entity.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	txn.Version = 1
	s.transactions[txn.ID] = cloneTransaction(txn)
	if msg != nil {
		s.messages[txn.ID] = append(s.messages[txn.ID], cloneMessage(msg))
	}
	return nil
}

func (r *memoryTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[id]
	if !ok {
		return nil, errors.NotFound("Transaction", nil)
	}
	return cloneTransaction(txn), nil
}

func (r *memoryTransactionRepository) Update(ctx context.Context, txn *entity.Transaction, expectedVersion int64, msg *entity.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transactions[txn.ID]
	if !ok {
		return errors.NotFound("Transaction", nil)
	}
	if stored.Version != expectedVersion {
		return errors.VersionConflict("transaction")
	}

	txn.Version = expectedVersion + 1
	s.transactions[txn.ID] = cloneTransaction(txn)
	if msg != nil {
		s.messages[txn.ID] = append(s.messages[txn.ID], cloneMessage(msg))
	}
	return nil
}

func (r *memoryTransactionRepository) ListByUserID(ctx context.Context, userID, role string, status entity.TransactionStatus, limit, offset int) ([]*entity.Transaction, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entity.Transaction
	for _, txn := range s.transactions {
		if role == "buyer" && txn.BuyerID != userID {
			continue
		}
		if role == "seller" && txn.SellerID != userID {
			continue
		}
		if status != "" && txn.Status != status {
			continue
		}
		matched = append(matched, cloneTransaction(txn))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	matched = paginate(matched, limit, offset)
	return matched, total, nil
}

func (r *memoryTransactionRepository) List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]*entity.Transaction, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entity.Transaction
	for _, txn := range s.transactions {
		if status, ok := filter["status"]; ok && string(txn.Status) != status {
			continue
		}
		if itemID, ok := filter["item_id"]; ok && txn.ItemID != itemID {
			continue
		}
		if sellerID, ok := filter["seller_id"]; ok && txn.SellerID != sellerID {
			continue
		}
		if buyerID, ok := filter["buyer_id"]; ok && txn.BuyerID != buyerID {
			continue
		}
		matched = append(matched, cloneTransaction(txn))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	matched = paginate(matched, limit, offset)
	return matched, total, nil
}

func (r *memoryTransactionRepository) ListAutoCompletable(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*entity.Transaction
	for _, txn := range s.transactions {
		if txn.Status == entity.TransactionStatusDelivered &&
			txn.AutoCompleteAt != nil && !txn.AutoCompleteAt.After(now) {
			due = append(due, cloneTransaction(txn))
			if limit > 0 && len(due) >= limit {
				break
			}
		}
	}
	return due, nil
}

func (r *memoryTransactionRepository) CreateMessage(ctx context.Context, msg *entity.Message) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[msg.TransactionID]; !ok {
		return errors.NotFound("Transaction", nil)
	}
	s.messages[msg.TransactionID] = append(s.messages[msg.TransactionID], cloneMessage(msg))
	return nil
}

func (r *memoryTransactionRepository) ListMessagesByTransactionID(ctx context.Context, transactionID string, limit, offset int) ([]*entity.Message, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]*entity.Message, 0, len(s.messages[transactionID]))
	for _, m := range s.messages[transactionID] {
		msgs = append(msgs, cloneMessage(m))
	}
	sortMessagesChronological(msgs)

	total := int64(len(msgs))
	msgs = paginate(msgs, limit, offset)
	return msgs, total, nil
}

func (r *memoryTransactionRepository) MarkMessagesRead(ctx context.Context, transactionID, readerID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, m := range s.messages[transactionID] {
		if m.SenderID != readerID && m.ReadAt == nil {
			t := now
			m.ReadAt = &t
		}
	}
	return nil
}

func (r *memoryTransactionRepository) CreateEvidence(ctx context.Context, ev *entity.Evidence, txn *entity.Transaction, expectedVersion int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if txn != nil {
		stored, ok := s.transactions[txn.ID]
		if !ok {
			return errors.NotFound("Transaction", nil)
		}
		if stored.Version != expectedVersion {
			return errors.VersionConflict("transaction")
		}
		txn.Version = expectedVersion + 1
		s.transactions[txn.ID] = cloneTransaction(txn)
	}

	s.evidence[ev.TransactionID] = append(s.evidence[ev.TransactionID], cloneEvidence(ev))
	return nil
}

func (r *memoryTransactionRepository) GetEvidenceByRef(ctx context.Context, transactionID, ref string) (*entity.Evidence, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range s.evidence[transactionID] {
		if ev.Ref == ref {
			return cloneEvidence(ev), nil
		}
	}
	return nil, errors.NotFound("Evidence", nil)
}

func (r *memoryTransactionRepository) DeleteEvidence(ctx context.Context, ev *entity.Evidence, txn *entity.Transaction, expectedVersion int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before touching either row so a failed delete
	// leaves the transaction untouched.
	found := false
	for _, e := range s.evidence[ev.TransactionID] {
		if e.Ref == ev.Ref {
			found = true
			break
		}
	}
	if !found {
		return errors.NotFound("Evidence", nil)
	}

	if txn != nil {
		stored, ok := s.transactions[txn.ID]
		if !ok {
			return errors.NotFound("Transaction", nil)
		}
		if stored.Version != expectedVersion {
			return errors.VersionConflict("transaction")
		}
		txn.Version = expectedVersion + 1
		s.transactions[txn.ID] = cloneTransaction(txn)
	}

	kept := s.evidence[ev.TransactionID][:0]
	for _, e := range s.evidence[ev.TransactionID] {
		if e.Ref != ev.Ref {
			kept = append(kept, e)
		}
	}
	s.evidence[ev.TransactionID] = kept
	return nil
}

func (r *memoryTransactionRepository) ListEvidenceByTransactionID(ctx context.Context, transactionID string) ([]*entity.Evidence, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.Evidence, 0, len(s.evidence[transactionID]))
	for _, ev := range s.evidence[transactionID] {
		out = append(out, cloneEvidence(ev))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
