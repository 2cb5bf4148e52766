package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
)

// Service encapsulates catalog item operations.
type Service struct {
	Items port.ItemStore
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ItemInput describes the mutable fields of an item.
type ItemInput struct {
	Title             string
	Description       string
	Price             domain.Money
	QuantityAvailable int
}

func (in ItemInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("title is required")
	}
	if in.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if in.QuantityAvailable < 0 {
		return errors.New("quantity available must not be negative")
	}
	return nil
}

// ListItems returns a page of catalog items along with the total count.
func (s *Service) ListItems(ctx context.Context, limit, offset int) ([]domain.Item, int64, error) {
	return s.Items.ListItems(ctx, limit, offset)
}

// GetItem loads a single item by identifier.
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	return s.Items.GetItem(ctx, id)
}

// CreateItem stores a new catalog item.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (domain.Item, error) {
	if err := in.validate(); err != nil {
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}
	now := s.now()
	item := domain.Item{
		ID:                uuid.New(),
		Title:             strings.TrimSpace(in.Title),
		Description:       strings.TrimSpace(in.Description),
		Price:             in.Price,
		QuantityAvailable: in.QuantityAvailable,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Items.CreateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// UpdateItem overwrites an existing item's mutable fields.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, in ItemInput) (domain.Item, error) {
	if err := in.validate(); err != nil {
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}
	item, err := s.Items.GetItem(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	item.Title = strings.TrimSpace(in.Title)
	item.Description = strings.TrimSpace(in.Description)
	item.Price = in.Price
	item.QuantityAvailable = in.QuantityAvailable
	item.UpdatedAt = s.now()
	if err := s.Items.UpdateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// DeleteItem removes an item from the catalog.
func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.Items.DeleteItem(ctx, id)
}
