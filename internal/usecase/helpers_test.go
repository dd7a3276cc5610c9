package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"unimarket/internal/adapter/repository"
	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/service"
	"unimarket/internal/infrastructure/ratelimit"
	"unimarket/pkg/errors"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []service.NotificationEvent
}

func (n *fakeNotifier) Emit(ctx context.Context, event service.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) eventsOfType(eventType string) []service.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []service.NotificationEvent
	for _, e := range n.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeListings struct {
	mu       sync.Mutex
	listings map[string]*service.Listing
}

func newFakeListings() *fakeListings {
	return &fakeListings{listings: make(map[string]*service.Listing)}
}

func (f *fakeListings) put(l *service.Listing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[l.ID] = l
}

func (f *fakeListings) Get(ctx context.Context, itemID string) (*service.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.listings[itemID]; ok {
		out := *l
		return &out, nil
	}
	return nil, errors.NotFound("Listing", nil)
}

type fakeStorage struct {
	mu      sync.Mutex
	seq     int
	objects map[string][]byte
	deleted []string
	failPut bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Put(ctx context.Context, r io.Reader, contentType, folder string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return "", errors.Unavailable("storage write failed", nil)
	}
	f.seq++
	ref := fmt.Sprintf("gs://test-bucket/%s/object-%d", folder, f.seq)
	var buf bytes.Buffer
	io.Copy(&buf, r)
	f.objects[ref] = buf.Bytes()
	return ref, nil
}

func (f *fakeStorage) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

// fixture wires the usecases over the in-memory store with fakes on every
// external boundary.
type fixture struct {
	store    *repository.MemoryStore
	listings *fakeListings
	notifier *fakeNotifier
	storage  *fakeStorage

	offers       *OfferUseCase
	transactions *TransactionUseCase
	messages     *MessageUseCase
	evidence     *EvidenceUseCase
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	offerRepo := repository.NewMemoryOfferRepository(store)
	txnRepo := repository.NewMemoryTransactionRepository(store)
	userRepo := repository.NewMemoryUserRepository(store)

	listings := newFakeListings()
	notifier := &fakeNotifier{}
	storage := newFakeStorage()

	return &fixture{
		store:        store,
		listings:     listings,
		notifier:     notifier,
		storage:      storage,
		offers:       NewOfferUseCase(offerRepo, listings, notifier, ratelimit.NewRateLimiter(), 72*time.Hour),
		transactions: NewTransactionUseCase(txnRepo, userRepo, listings, notifier, 72*time.Hour),
		messages:     NewMessageUseCase(txnRepo, notifier, ratelimit.NewRateLimiter()),
		evidence:     NewEvidenceUseCase(txnRepo, userRepo, storage, notifier),
	}
}

func (f *fixture) seedListing(id, sellerID string, price string, method entity.DeliveryMethod) *service.Listing {
	l := &service.Listing{
		ID:             id,
		SellerID:       sellerID,
		Title:          "Test listing " + id,
		Price:          decimal.RequireFromString(price),
		Currency:       "USD",
		DeliveryMethod: method,
		Active:         true,
	}
	f.listings.put(l)
	return l
}

func (f *fixture) seedUser(id, role string) {
	f.store.PutUser(&entity.User{
		ID:       id,
		Email:    id + "@example.com",
		Username: id,
		Role:     role,
	})
}

// makeTransaction drives an offer through acceptance and returns the
// resulting transaction.
func (f *fixture) makeTransaction(t *testing.T, itemID, buyerID, sellerID string) *entity.Transaction {
	t.Helper()
	ctx := context.Background()
	offer, err := f.offers.CreateOffer(ctx, buyerID, CreateOfferInput{
		ItemID: itemID,
		Amount: decimal.RequireFromString("90"),
	})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	result, err := f.offers.RespondToOffer(ctx, sellerID, offer.ID, "accept")
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}
	return result.Transaction
}
