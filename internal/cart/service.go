package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
	"github.com/noah-isme/backend-shop/internal/pricing"
)

// Service encapsulates cart operations. Mutations run inside a transaction so
// the read-modify-write of the aggregate is atomic; the summary is a plain
// read priced against the catalog's current prices.
type Service struct {
	Tx     port.TxRunner
	Carts  port.CartStore
	Items  port.ItemStore
	Codes  port.DiscountStore
	Pricer pricing.Engine
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SummaryLine is one cart entry priced at the catalog's current unit price.
type SummaryLine struct {
	ItemID    uuid.UUID
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Summary is the user-facing cart view with fresh prices and computed totals.
type Summary struct {
	CartID       uuid.UUID
	Lines        []SummaryLine
	DiscountCode string
	Quote        pricing.Quote
}

// GetSummary prices the user's cart against current catalog prices. The
// applied discount code is evaluated at call time; an unknown or unusable
// code yields a zero discount without error.
func (s *Service) GetSummary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	cart, err := s.Carts.EnsureCart(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	lines := make([]SummaryLine, 0, len(cart.Lines))
	priceLines := make([]pricing.Line, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		item, err := s.Items.GetItem(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				// Item was removed from the catalog after it was carted.
				continue
			}
			return Summary{}, err
		}
		lines = append(lines, SummaryLine{
			ItemID:    item.ID,
			Title:     item.Title,
			Quantity:  line.Quantity,
			UnitPrice: item.Price,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
		priceLines = append(priceLines, pricing.Line{UnitPrice: item.Price, Quantity: line.Quantity})
	}

	code, err := s.lookupCode(ctx, cart.DiscountCode)
	if err != nil {
		return Summary{}, err
	}
	quote, err := s.Pricer.Price(priceLines, code)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		CartID:       cart.ID,
		Lines:        lines,
		DiscountCode: cart.DiscountCode,
		Quote:        quote,
	}, nil
}

// AddItem adds quantity of the item to the user's cart, merging with an
// existing line.
func (s *Service) AddItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	return s.mutate(ctx, userID, func(st port.Stores, cart *domain.Cart) error {
		item, err := st.Items.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		return cart.AddItem(item, quantity, s.now())
	})
}

// SetQuantity replaces the line's quantity; zero removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	return s.mutate(ctx, userID, func(st port.Stores, cart *domain.Cart) error {
		item, err := st.Items.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		return cart.SetQuantity(item, quantity, s.now())
	})
}

// Increase raises the line's quantity by amount.
func (s *Service) Increase(ctx context.Context, userID, itemID uuid.UUID, amount int) error {
	return s.mutate(ctx, userID, func(st port.Stores, cart *domain.Cart) error {
		item, err := st.Items.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		return cart.Increase(item, amount, s.now())
	})
}

// Decrease lowers the line's quantity by amount, removing the line when it
// reaches zero.
func (s *Service) Decrease(ctx context.Context, userID, itemID uuid.UUID, amount int) error {
	return s.mutate(ctx, userID, func(st port.Stores, cart *domain.Cart) error {
		return cart.Decrease(itemID, amount, s.now())
	})
}

// RemoveItem deletes the line for the item.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.mutate(ctx, userID, func(st port.Stores, cart *domain.Cart) error {
		return cart.RemoveItem(itemID, s.now())
	})
}

// Clear empties the user's cart, including any applied discount code.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.mutate(ctx, userID, func(st port.Stores, cart *domain.Cart) error {
		cart.Clear(s.now())
		return nil
	})
}

// ApplyDiscountCode attaches the code to the cart without validating it. The
// code's usability is evaluated at each pricing call instead.
func (s *Service) ApplyDiscountCode(ctx context.Context, userID uuid.UUID, code string) error {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return fmt.Errorf("discount code is empty: %w", domain.ErrDiscountNotFound)
	}
	return s.mutate(ctx, userID, func(st port.Stores, cart *domain.Cart) error {
		cart.ApplyDiscountCode(trimmed, s.now())
		return nil
	})
}

// RemoveDiscountCode detaches any applied code from the cart.
func (s *Service) RemoveDiscountCode(ctx context.Context, userID uuid.UUID) error {
	return s.mutate(ctx, userID, func(st port.Stores, cart *domain.Cart) error {
		cart.ApplyDiscountCode("", s.now())
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, userID uuid.UUID, fn func(st port.Stores, cart *domain.Cart) error) error {
	if s == nil || s.Tx == nil {
		return errors.New("cart service not configured")
	}
	return s.Tx.WithinTx(ctx, func(st port.Stores) error {
		cart, err := st.Carts.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(st, &cart); err != nil {
			return err
		}
		return st.Carts.SaveCart(ctx, cart)
	})
}

func (s *Service) lookupCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	if code == "" {
		return nil, nil
	}
	dc, err := s.Codes.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrDiscountNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dc, nil
}
