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

type discountRepository struct {
	db DB
}

// NewDiscounts returns the DiscountStore backed by the discount_codes table.
func NewDiscounts(db DB) port.DiscountStore {
	return &discountRepository{db: db}
}

func (r *discountRepository) GetByCode(ctx context.Context, code string) (domain.DiscountCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, code, percentage, expires_at, active, created_at
		FROM discount_codes
		WHERE code = $1`, code)
	dc, err := scanDiscount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dc, fmt.Errorf("code %q: %w", code, domain.ErrDiscountNotFound)
		}
		return dc, fmt.Errorf("get discount code: %w", err)
	}
	return dc, nil
}

func (r *discountRepository) ListCodes(ctx context.Context) ([]domain.DiscountCode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, code, percentage, expires_at, active, created_at
		FROM discount_codes
		ORDER BY created_at DESC, code`)
	if err != nil {
		return nil, fmt.Errorf("list discount codes: %w", err)
	}
	defer rows.Close()

	var codes []domain.DiscountCode
	for rows.Next() {
		dc, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount code: %w", err)
		}
		codes = append(codes, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discount codes: %w", err)
	}
	return codes, nil
}

func (r *discountRepository) CreateCode(ctx context.Context, code domain.DiscountCode) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO discount_codes (id, code, percentage, expires_at, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		code.ID, code.Code, code.Percentage, nullableTime(code.ExpiresAt), code.Active, code.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert discount code: %w", err)
	}
	return nil
}

func (r *discountRepository) UpdateCode(ctx context.Context, code domain.DiscountCode) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE discount_codes
		SET percentage = $2, expires_at = $3, active = $4
		WHERE id = $1`,
		code.ID, code.Percentage, nullableTime(code.ExpiresAt), code.Active)
	if err != nil {
		return fmt.Errorf("update discount code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("discount %s: %w", code.ID, domain.ErrDiscountNotFound)
	}
	return nil
}

func (r *discountRepository) DeleteCode(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM discount_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete discount code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("discount %s: %w", id, domain.ErrDiscountNotFound)
	}
	return nil
}

func scanDiscount(row pgx.Row) (domain.DiscountCode, error) {
	var (
		dc      domain.DiscountCode
		expires pgtype.Timestamptz
	)
	if err := row.Scan(&dc.ID, &dc.Code, &dc.Percentage, &expires, &dc.Active, &dc.CreatedAt); err != nil {
		return dc, err
	}
	if expires.Valid {
		t := expires.Time
		dc.ExpiresAt = &t
	}
	return dc, nil
}

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
