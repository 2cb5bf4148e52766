package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-shop/internal/port"
)

// NewStores builds the full store set over the given connection source.
func NewStores(db DB) port.Stores {
	return port.Stores{
		Items:     NewItems(db),
		Carts:     NewCarts(db),
		Discounts: NewDiscounts(db),
		Sales:     NewSales(db),
		Orders:    NewOrders(db),
	}
}

// Runner executes store operations within a single pgx transaction.
type Runner struct {
	Pool *pgxpool.Pool
}

// WithinTx runs fn with transaction-scoped stores. The transaction commits
// only when fn returns nil; any error rolls everything back.
func (r Runner) WithinTx(ctx context.Context, fn func(s port.Stores) error) (txErr error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	if err := fn(NewStores(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
