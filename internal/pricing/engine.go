package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/domain"
)

// Line is a single priced entry: the authoritative unit price and quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote aggregates the computed cart totals, each rounded to two decimals at
// its own recording point.
type Quote struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Engine computes cart totals. It is pure: no side effects, deterministic for
// a fixed clock, safe to call repeatedly for summary display.
type Engine struct {
	TaxRate decimal.Decimal
	Now     func() time.Time
}

// NewEngine builds an engine from a basis-points tax rate, e.g. 825 for 8.25%.
func NewEngine(taxBps int) Engine {
	return Engine{TaxRate: domain.TaxRateFromBps(taxBps)}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Price computes subtotal, discount, tax, and total for the given lines.
//
// Line totals and the subtotal carry no intermediate rounding. The discount
// applies only when a code is present and usable at the evaluation instant;
// an unknown or unusable code silently contributes zero rather than failing.
// Discount and tax are rounded independently, and the total is their rounded
// composition, so Total = Subtotal - DiscountAmount + Tax holds exactly.
func (e Engine) Price(lines []Line, code *domain.DiscountCode) (Quote, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Quote{}, fmt.Errorf("line quantity %d: %w", line.Quantity, domain.ErrInvalidQuantity)
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	discount := decimal.Zero
	if code != nil && code.UsableAt(e.now()) {
		discount = domain.Round2(subtotal.Mul(code.Percentage.Div(hundred)))
	}

	taxable := subtotal.Sub(discount)
	tax := domain.Round2(taxable.Mul(e.TaxRate))
	total := taxable.Add(tax)

	return Quote{
		Subtotal:       domain.Round2(subtotal),
		DiscountAmount: discount,
		Tax:            tax,
		Total:          domain.Round2(total),
	}, nil
}
