package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is a time-bounded promotional price for a single catalog item. At most
// one active sale may exist per item; the repository enforces this with a
// partial unique index and the service checks it before activation.
type Sale struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	SalePrice decimal.Decimal
	StartsAt  *time.Time
	EndsAt    *time.Time
	Active    bool
	CreatedAt time.Time
}

// LiveAt reports whether the sale price applies at the given instant: the
// sale is active and now falls inside the schedule window. A nil bound leaves
// that side of the window open.
func (s Sale) LiveAt(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.StartsAt != nil && now.Before(*s.StartsAt) {
		return false
	}
	if s.EndsAt != nil && !now.Before(*s.EndsAt) {
		return false
	}
	return true
}

// DiscountPercent computes the percentage saved against the item's list
// price, e.g. 100.00 -> 75.00 yields 25.00. The ratio is rounded half up to
// four places before scaling so the published percentage is stable at two
// decimals. A non-positive list price yields zero.
func (s Sale) DiscountPercent(listPrice decimal.Decimal) decimal.Decimal {
	if !listPrice.IsPositive() {
		return decimal.Zero
	}
	ratio := listPrice.Sub(s.SalePrice).DivRound(listPrice, 4)
	return Round2(ratio.Mul(decimal.NewFromInt(100)))
}
