package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
)

type orderRepository struct {
	db DB
}

// NewOrders returns the OrderStore backed by the orders and order_items tables.
func NewOrders(db DB) port.OrderStore {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	code := pgtype.Text{String: order.DiscountCode, Valid: order.DiscountCode != ""}
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, subtotal, discount_amount, tax, total, discount_code, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.ID, order.UserID, string(order.Status), order.Subtotal, order.DiscountAmount,
		order.Tax, order.Total, code, order.PlacedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for _, line := range order.Lines {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO order_items (order_id, item_id, title, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4, $5)`,
			order.ID, line.ItemID, line.Title, line.Quantity, line.PriceAtPurchase); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, status, subtotal, discount_amount, tax, total, discount_code, placed_at
		FROM orders
		WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
		}
		return order, fmt.Errorf("get order: %w", err)
	}

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return order, err
	}
	order.Lines = lines
	return order, nil
}

func (r *orderRepository) ListOrdersForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, status, subtotal, discount_amount, tax, total, discount_code, placed_at
		FROM orders
		WHERE user_id = $1
		ORDER BY placed_at DESC, id
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error) {
	filter := pgtype.Text{}
	if status != nil {
		filter = pgtype.Text{String: string(*status), Valid: true}
	}
	var total int64
	if err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM orders WHERE ($1::text IS NULL OR status = $1)`, filter).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, status, subtotal, discount_amount, tax, total, discount_code, placed_at
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY placed_at DESC, id
		LIMIT $2 OFFSET $3`, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s, %s -> %s: %w", id, from, to, domain.ErrInvalidStatusTransition)
	}
	return nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT item_id, title, quantity, price_at_purchase
		FROM order_items
		WHERE order_id = $1
		ORDER BY item_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ItemID, &line.Title, &line.Quantity, &line.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		status string
		code   pgtype.Text
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &o.Subtotal, &o.DiscountAmount, &o.Tax, &o.Total, &code, &o.PlacedAt)
	if err != nil {
		return o, err
	}
	o.Status = domain.OrderStatus(status)
	o.DiscountCode = code.String
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}
