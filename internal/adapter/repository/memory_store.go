package repository

import (
	"sort"
	"sync"
	"time"

	"unimarket/internal/domain/entity"
)

// MemoryStore backs the in-memory repositories. One lock covers every
// collection so multi-entity operations (offer acceptance creating a
// transaction, transitions appending messages) commit as a unit, mirroring
// the Firestore transaction semantics. Used by tests and local development.
type MemoryStore struct {
	mu           sync.Mutex
	offers       map[string]*entity.Offer
	transactions map[string]*entity.Transaction
	messages     map[string][]*entity.Message  // keyed by transaction id
	evidence     map[string][]*entity.Evidence // keyed by transaction id
	users        map[string]*entity.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		offers:       make(map[string]*entity.Offer),
		transactions: make(map[string]*entity.Transaction),
		messages:     make(map[string][]*entity.Message),
		evidence:     make(map[string][]*entity.Evidence),
		users:        make(map[string]*entity.User),
	}
}

// PutUser seeds a user record (tests, local development).
func (s *MemoryStore) PutUser(user *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[user.ID] = &u
}

func copyTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}

func cloneOffer(o *entity.Offer) *entity.Offer {
	c := *o
	c.ExpiresAt = copyTime(o.ExpiresAt)
	return &c
}

func cloneTransaction(t *entity.Transaction) *entity.Transaction {
	c := *t
	if t.DeliveryProofImages != nil {
		c.DeliveryProofImages = append([]string(nil), t.DeliveryProofImages...)
	}
	c.PaidAt = copyTime(t.PaidAt)
	c.DeliveredAt = copyTime(t.DeliveredAt)
	c.CompletedAt = copyTime(t.CompletedAt)
	c.CancelledAt = copyTime(t.CancelledAt)
	c.RefundedAt = copyTime(t.RefundedAt)
	c.AutoCompleteAt = copyTime(t.AutoCompleteAt)
	return &c
}

func cloneMessage(m *entity.Message) *entity.Message {
	c := *m
	c.ReadAt = copyTime(m.ReadAt)
	return &c
}

func cloneEvidence(e *entity.Evidence) *entity.Evidence {
	c := *e
	return &c
}

func sortMessagesChronological(msgs []*entity.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
