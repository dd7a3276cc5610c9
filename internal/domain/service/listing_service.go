package service

import (
	"context"

	"github.com/shopspring/decimal"

	"unimarket/internal/domain/entity"
)

// Listing is the slice of the listing aggregate the offer and transaction
// engines need. Listing CRUD itself lives elsewhere on the platform.
type Listing struct {
	ID             string
	SellerID       string
	Title          string
	Price          decimal.Decimal
	Currency       string
	DeliveryMethod entity.DeliveryMethod
	Active         bool
}

type ListingService interface {
	Get(ctx context.Context, itemID string) (*Listing, error)
}
