package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine freezes a purchased line: price-at-purchase is the price read at
// placement and never changes with later catalog edits.
type OrderLine struct {
	ItemID          uuid.UUID
	Title           string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Order is an immutable snapshot created only by successful placement. Only
// Status ever changes afterwards, through the transition rules below.
type Order struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Lines          []OrderLine
	Status         OrderStatus
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	// DiscountCode records which code string was attempted at placement, even
	// when it was no longer usable and contributed zero discount. Empty means
	// no code was applied.
	DiscountCode string
	PlacedAt     time.Time
}
