package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
)

type itemRepository struct {
	db DB
}

// NewItems returns the ItemStore backed by the items table.
func NewItems(db DB) port.ItemStore {
	return &itemRepository{db: db}
}

func (r *itemRepository) GetItem(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	var it domain.Item
	row := r.db.QueryRow(ctx, `
		SELECT id, title, description, price, quantity_available, created_at, updated_at
		FROM items
		WHERE id = $1`, id)
	if err := row.Scan(&it.ID, &it.Title, &it.Description, &it.Price, &it.QuantityAvailable, &it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return it, fmt.Errorf("item %s: %w", id, domain.ErrItemNotFound)
		}
		return it, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (r *itemRepository) ListItems(ctx context.Context, limit, offset int) ([]domain.Item, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM items`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, title, description, price, quantity_available, created_at, updated_at
		FROM items
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.Price, &it.QuantityAvailable, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate items: %w", err)
	}
	return items, total, nil
}

func (r *itemRepository) CreateItem(ctx context.Context, item domain.Item) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO items (id, title, description, price, quantity_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.Title, item.Description, item.Price, item.QuantityAvailable, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *itemRepository) UpdateItem(ctx context.Context, item domain.Item) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE items
		SET title = $2, description = $3, price = $4, quantity_available = $5, updated_at = $6
		WHERE id = $1`,
		item.ID, item.Title, item.Description, item.Price, item.QuantityAvailable, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrItemNotFound)
	}
	return nil
}

func (r *itemRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrItemNotFound)
	}
	return nil
}

// DecrementStock is the serialization point for placement: the conditional
// update either takes the stock or leaves the row untouched, so two racing
// placements for the last unit are linearized by the row lock and the loser
// observes the decremented value.
func (r *itemRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE items
		SET quantity_available = quantity_available - $2, updated_at = now()
		WHERE id = $1 AND quantity_available >= $2`, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s, want %d: %w", id, quantity, domain.ErrInsufficientStock)
	}
	return nil
}
