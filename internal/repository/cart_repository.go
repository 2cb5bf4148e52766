package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
)

type cartRepository struct {
	db DB
}

// NewCarts returns the CartStore backed by the carts and cart_items tables.
func NewCarts(db DB) port.CartStore {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	var (
		cart domain.Cart
		code pgtype.Text
	)
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, discount_code, created_at, updated_at
		FROM carts
		WHERE user_id = $1`, userID)
	if err := row.Scan(&cart.ID, &cart.UserID, &code, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart, fmt.Errorf("user %s: %w", userID, domain.ErrCartNotFound)
		}
		return cart, fmt.Errorf("get cart: %w", err)
	}
	cart.DiscountCode = code.String

	lines, err := r.loadLines(ctx, cart.ID)
	if err != nil {
		return cart, err
	}
	cart.Lines = lines
	return cart, nil
}

func (r *cartRepository) EnsureCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	cart, err := r.GetCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return domain.Cart{}, err
	}

	fresh := domain.NewCart(userID, time.Now())
	// ON CONFLICT keeps the unique-cart-per-user invariant under concurrent
	// first access: the race loser reads back whichever row won.
	_, err = r.db.Exec(ctx, `
		INSERT INTO carts (id, user_id, discount_code, created_at, updated_at)
		VALUES ($1, $2, NULL, $3, $4)
		ON CONFLICT (user_id) DO NOTHING`,
		fresh.ID, fresh.UserID, fresh.CreatedAt, fresh.UpdatedAt)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return r.GetCart(ctx, userID)
}

func (r *cartRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	code := pgtype.Text{String: cart.DiscountCode, Valid: cart.DiscountCode != ""}
	tag, err := r.db.Exec(ctx, `
		UPDATE carts SET discount_code = $2, updated_at = $3 WHERE id = $1`,
		cart.ID, code, cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart %s: %w", cart.ID, domain.ErrCartNotFound)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	for _, line := range cart.Lines {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO cart_items (cart_id, item_id, quantity, unit_price, added_at)
			VALUES ($1, $2, $3, $4, $5)`,
			cart.ID, line.ItemID, line.Quantity, line.UnitPrice, line.AddedAt); err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
	}
	return nil
}

func (r *cartRepository) ClearCart(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`, userID)
	if err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		UPDATE carts SET discount_code = NULL, updated_at = now() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *cartRepository) loadLines(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT item_id, quantity, unit_price, added_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, item_id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ItemID, &line.Quantity, &line.UnitPrice, &line.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}
