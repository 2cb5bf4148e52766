package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a catalog entry. Price and QuantityAvailable are the authoritative
// values re-read at pricing and placement time; cart lines only capture a
// display copy of the price.
type Item struct {
	ID                uuid.UUID
	Title             string
	Description       string
	Price             decimal.Decimal
	QuantityAvailable int

	CreatedAt time.Time
	UpdatedAt time.Time
}
