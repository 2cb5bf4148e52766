package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountCode is a registry entry. Immutable once issued except for the
// administrative toggling of Active.
type DiscountCode struct {
	ID         uuid.UUID
	Code       string
	Percentage decimal.Decimal
	ExpiresAt  *time.Time
	Active     bool
	CreatedAt  time.Time
}

// UsableAt reports whether the code may contribute a discount at the given
// instant: active and either without expiry or not yet expired. The check is
// re-run at both cart-summary and order-placement time since time passes
// between them.
func (d DiscountCode) UsableAt(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return false
	}
	return true
}
