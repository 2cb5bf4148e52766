package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
)

type saleRepository struct {
	db DB
}

// NewSales returns the SaleStore backed by the sales table. The partial
// unique index on (item_id) WHERE active backs the one-active-sale-per-item
// invariant at the database level.
func NewSales(db DB) port.SaleStore {
	return &saleRepository{db: db}
}

func (r *saleRepository) GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, item_id, sale_price, starts_at, ends_at, active, created_at
		FROM sales
		WHERE id = $1`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sale, fmt.Errorf("sale %s: %w", id, domain.ErrSaleNotFound)
		}
		return sale, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

func (r *saleRepository) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, item_id, sale_price, starts_at, ends_at, active, created_at
		FROM sales
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

func (r *saleRepository) GetActiveSaleForItem(ctx context.Context, itemID uuid.UUID) (domain.Sale, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, item_id, sale_price, starts_at, ends_at, active, created_at
		FROM sales
		WHERE item_id = $1 AND active`, itemID)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sale, fmt.Errorf("item %s: %w", itemID, domain.ErrSaleNotFound)
		}
		return sale, fmt.Errorf("get active sale: %w", err)
	}
	return sale, nil
}

func (r *saleRepository) CreateSale(ctx context.Context, sale domain.Sale) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sales (id, item_id, sale_price, starts_at, ends_at, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sale.ID, sale.ItemID, sale.SalePrice, nullableTime(sale.StartsAt), nullableTime(sale.EndsAt), sale.Active, sale.CreatedAt)
	if err != nil {
		if isActiveSaleConflict(err) {
			return fmt.Errorf("item %s: %w", sale.ItemID, domain.ErrActiveSaleExists)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (r *saleRepository) UpdateSale(ctx context.Context, sale domain.Sale) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales
		SET sale_price = $2, starts_at = $3, ends_at = $4, active = $5
		WHERE id = $1`,
		sale.ID, sale.SalePrice, nullableTime(sale.StartsAt), nullableTime(sale.EndsAt), sale.Active)
	if err != nil {
		if isActiveSaleConflict(err) {
			return fmt.Errorf("item %s: %w", sale.ItemID, domain.ErrActiveSaleExists)
		}
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sale %s: %w", sale.ID, domain.ErrSaleNotFound)
	}
	return nil
}

func (r *saleRepository) DeleteSale(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sale %s: %w", id, domain.ErrSaleNotFound)
	}
	return nil
}

// isActiveSaleConflict reports whether err is a unique violation on the
// one-active-sale-per-item index.
func isActiveSaleConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "sales_one_active_per_item_idx"
}

func scanSale(row pgx.Row) (domain.Sale, error) {
	var (
		sale   domain.Sale
		starts pgtype.Timestamptz
		ends   pgtype.Timestamptz
	)
	if err := row.Scan(&sale.ID, &sale.ItemID, &sale.SalePrice, &starts, &ends, &sale.Active, &sale.CreatedAt); err != nil {
		return sale, err
	}
	if starts.Valid {
		t := starts.Time
		sale.StartsAt = &t
	}
	if ends.Valid {
		t := ends.Time
		sale.EndsAt = &t
	}
	return sale, nil
}
