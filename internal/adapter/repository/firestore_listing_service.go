package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/service"
	"unimarket/pkg/errors"
)

const listingsCollection = "listings"

// Listing CRUD is owned elsewhere on the platform; this adapter is the
// read-only view the offer and transaction engines consult at creation time.
type firestoreListingService struct {
	client *firestore.Client
}

func NewFirestoreListingService(client *firestore.Client) service.ListingService {
	return &firestoreListingService{client: client}
}

type listingDoc struct {
	ID             string    `firestore:"id"`
	SellerID       string    `firestore:"sellerId"`
	Title          string    `firestore:"title"`
	Price          string    `firestore:"price"`
	Currency       string    `firestore:"currency"`
	DeliveryMethod string    `firestore:"deliveryMethod"`
	Status         string    `firestore:"status"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

func (s *firestoreListingService) Get(ctx context.Context, itemID string) (*service.Listing, error) {
	snap, err := s.client.Collection(listingsCollection).Doc(itemID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, errors.Unavailable("Failed to get listing", err)
	}

	var doc listingDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}

	price, err := decimal.NewFromString(doc.Price)
	if err != nil {
		return nil, errors.Internal("Failed to parse listing price", err)
	}

	return &service.Listing{
		ID:             doc.ID,
		SellerID:       doc.SellerID,
		Title:          doc.Title,
		Price:          price,
		Currency:       doc.Currency,
		DeliveryMethod: entity.DeliveryMethod(doc.DeliveryMethod),
		Active:         doc.Status == "active",
	}, nil
}
