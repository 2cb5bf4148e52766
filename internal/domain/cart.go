package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is a single cart entry. UnitPrice is captured when the line is first
// created and is never refreshed by later mutations; it is informational only.
type CartLine struct {
	ItemID    uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	AddedAt   time.Time
}

// Cart is the per-user aggregate owning its lines. All mutations go through
// methods so the invariants hold: at most one line per item, quantity >= 1,
// and quantity within the availability known at mutation time (a soft check,
// re-verified during placement).
type Cart struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Lines        []CartLine
	DiscountCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCart creates an empty cart for the user.
func NewCart(userID uuid.UUID, now time.Time) Cart {
	return Cart{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Line returns a pointer into the cart's line for the item, if present.
func (c *Cart) Line(itemID uuid.UUID) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

// AddItem adds quantity of the item to the cart. An existing line has its
// quantity summed and keeps the unit price captured at first insertion; a new
// line captures the item's current price.
func (c *Cart) AddItem(item Item, quantity int, now time.Time) error {
	if quantity <= 0 {
		return fmt.Errorf("add %d of item %s: %w", quantity, item.ID, ErrInvalidQuantity)
	}
	if line, ok := c.Line(item.ID); ok {
		merged := line.Quantity + quantity
		if merged > item.QuantityAvailable {
			return fmt.Errorf("item %s has %d available: %w", item.ID, item.QuantityAvailable, ErrInsufficientStock)
		}
		line.Quantity = merged
		c.touch(now)
		return nil
	}
	if quantity > item.QuantityAvailable {
		return fmt.Errorf("item %s has %d available: %w", item.ID, item.QuantityAvailable, ErrInsufficientStock)
	}
	c.Lines = append(c.Lines, CartLine{
		ItemID:    item.ID,
		Quantity:  quantity,
		UnitPrice: item.Price,
		AddedAt:   now,
	})
	c.touch(now)
	return nil
}

// SetQuantity replaces the line's quantity. Zero removes the line; negative
// values are rejected.
func (c *Cart) SetQuantity(item Item, quantity int, now time.Time) error {
	if quantity < 0 {
		return fmt.Errorf("set quantity %d for item %s: %w", quantity, item.ID, ErrInvalidQuantity)
	}
	if quantity == 0 {
		return c.RemoveItem(item.ID, now)
	}
	line, ok := c.Line(item.ID)
	if !ok {
		return fmt.Errorf("item %s: %w", item.ID, ErrItemNotInCart)
	}
	if quantity > item.QuantityAvailable {
		return fmt.Errorf("item %s has %d available: %w", item.ID, item.QuantityAvailable, ErrInsufficientStock)
	}
	line.Quantity = quantity
	c.touch(now)
	return nil
}

// Increase raises the line's quantity by amount.
func (c *Cart) Increase(item Item, amount int, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("increase by %d: %w", amount, ErrInvalidQuantity)
	}
	line, ok := c.Line(item.ID)
	if !ok {
		return fmt.Errorf("item %s: %w", item.ID, ErrItemNotInCart)
	}
	return c.SetQuantity(item, line.Quantity+amount, now)
}

// Decrease lowers the line's quantity by amount. Dropping to zero or below
// removes the line entirely rather than failing.
func (c *Cart) Decrease(itemID uuid.UUID, amount int, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("decrease by %d: %w", amount, ErrInvalidQuantity)
	}
	line, ok := c.Line(itemID)
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, ErrItemNotInCart)
	}
	if line.Quantity-amount <= 0 {
		return c.RemoveItem(itemID, now)
	}
	line.Quantity -= amount
	c.touch(now)
	return nil
}

// RemoveItem deletes the line for the item.
func (c *Cart) RemoveItem(itemID uuid.UUID, now time.Time) error {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.touch(now)
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", itemID, ErrItemNotInCart)
}

// Clear removes all lines and the applied discount code. Used for the explicit
// user action and as post-placement cleanup.
func (c *Cart) Clear(now time.Time) {
	c.Lines = nil
	c.DiscountCode = ""
	c.touch(now)
}

// ApplyDiscountCode stores the code without validating usability. Usability is
// evaluated lazily at every pricing call, so an expired code stays applied but
// contributes zero discount.
func (c *Cart) ApplyDiscountCode(code string, now time.Time) {
	c.DiscountCode = code
	c.touch(now)
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now
}
