// Package sales manages promotional prices for catalog items. A sale carries
// its own price and an optional schedule window; at most one sale per item
// may be active at a time.
package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
)

// Service manages the sale registry.
type Service struct {
	Sales port.SaleStore
	Items port.ItemStore
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// View pairs a sale with the item it discounts. OriginalPrice is the item's
// current list price; DiscountPercent is derived from it and the sale price.
type View struct {
	Sale            domain.Sale
	ItemTitle       string
	OriginalPrice   decimal.Decimal
	DiscountPercent decimal.Decimal
	Live            bool
}

// SaleInput describes a new sale.
type SaleInput struct {
	ItemID    uuid.UUID
	SalePrice decimal.Decimal
	StartsAt  *time.Time
	EndsAt    *time.Time
}

// SaleUpdate carries the fields of a partial update. Nil fields keep the
// stored value.
type SaleUpdate struct {
	SalePrice *decimal.Decimal
	StartsAt  *time.Time
	EndsAt    *time.Time
}

// List returns every registered sale enriched with item data.
func (s *Service) List(ctx context.Context) ([]View, error) {
	sales, err := s.Sales.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(sales))
	for _, sale := range sales {
		view, err := s.view(ctx, sale)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Get returns a single sale by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	sale, err := s.Sales.GetSale(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, sale)
}

// ActiveForItem returns the item's sale when one is live right now. An
// inactive, not-yet-started, or ended sale surfaces domain.ErrSaleNotFound.
func (s *Service) ActiveForItem(ctx context.Context, itemID uuid.UUID) (View, error) {
	sale, err := s.Sales.GetActiveSaleForItem(ctx, itemID)
	if err != nil {
		return View{}, err
	}
	if !sale.LiveAt(s.now()) {
		return View{}, domain.ErrSaleNotFound
	}
	return s.view(ctx, sale)
}

// Create registers a sale for an item. The item must exist and must not
// already have an active sale.
func (s *Service) Create(ctx context.Context, in SaleInput) (View, error) {
	if in.SalePrice.IsNegative() {
		return View{}, domain.ErrInvalidSalePrice
	}
	if _, err := s.Items.GetItem(ctx, in.ItemID); err != nil {
		return View{}, err
	}
	if _, err := s.Sales.GetActiveSaleForItem(ctx, in.ItemID); err == nil {
		return View{}, domain.ErrActiveSaleExists
	} else if !errors.Is(err, domain.ErrSaleNotFound) {
		return View{}, err
	}
	sale := domain.Sale{
		ID:        uuid.New(),
		ItemID:    in.ItemID,
		SalePrice: in.SalePrice,
		StartsAt:  in.StartsAt,
		EndsAt:    in.EndsAt,
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.Sales.CreateSale(ctx, sale); err != nil {
		return View{}, err
	}
	return s.view(ctx, sale)
}

// Update overwrites the provided fields of an existing sale, keeping the
// stored value for every nil field.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in SaleUpdate) (View, error) {
	sale, err := s.Sales.GetSale(ctx, id)
	if err != nil {
		return View{}, err
	}
	if in.SalePrice != nil {
		if in.SalePrice.IsNegative() {
			return View{}, domain.ErrInvalidSalePrice
		}
		sale.SalePrice = *in.SalePrice
	}
	if in.StartsAt != nil {
		sale.StartsAt = in.StartsAt
	}
	if in.EndsAt != nil {
		sale.EndsAt = in.EndsAt
	}
	if err := s.Sales.UpdateSale(ctx, sale); err != nil {
		return View{}, err
	}
	return s.view(ctx, sale)
}

// Toggle flips the active flag. Re-activating a sale fails with
// domain.ErrActiveSaleExists when another sale for the same item is already
// active.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (View, error) {
	sale, err := s.Sales.GetSale(ctx, id)
	if err != nil {
		return View{}, err
	}
	if !sale.Active {
		other, err := s.Sales.GetActiveSaleForItem(ctx, sale.ItemID)
		if err == nil && other.ID != sale.ID {
			return View{}, domain.ErrActiveSaleExists
		}
		if err != nil && !errors.Is(err, domain.ErrSaleNotFound) {
			return View{}, err
		}
	}
	sale.Active = !sale.Active
	if err := s.Sales.UpdateSale(ctx, sale); err != nil {
		return View{}, err
	}
	return s.view(ctx, sale)
}

// Delete removes a sale from the registry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.Sales.DeleteSale(ctx, id)
}

func (s *Service) view(ctx context.Context, sale domain.Sale) (View, error) {
	item, err := s.Items.GetItem(ctx, sale.ItemID)
	if err != nil {
		return View{}, err
	}
	return View{
		Sale:            sale,
		ItemTitle:       item.Title,
		OriginalPrice:   item.Price,
		DiscountPercent: sale.DiscountPercent(item.Price),
		Live:            sale.LiveAt(s.now()),
	}, nil
}
