package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/obs"
	"github.com/noah-isme/backend-shop/internal/port"
	"github.com/noah-isme/backend-shop/internal/pricing"
)

const defaultMaxRetries = 3

// CartClearEnqueuer schedules a background cart clear when the inline clear
// after commit fails.
type CartClearEnqueuer interface {
	EnqueueCartClear(ctx context.Context, userID, orderID uuid.UUID) error
}

// Service owns order placement and the order lifecycle.
type Service struct {
	Tx         port.TxRunner
	Orders     port.OrderStore
	Carts      port.CartStore
	Pricer     pricing.Engine
	Enqueuer   CartClearEnqueuer
	Logger     zerolog.Logger
	MaxRetries int
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) maxRetries() int {
	if s == nil || s.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return s.MaxRetries
}

// PlaceOrder atomically converts the user's cart into an order.
//
// Inside one transaction it re-reads every carted item at its current price,
// conditionally decrements stock, evaluates the applied discount code, and
// writes the order snapshot. Any failure rolls the whole transaction back:
// no partial stock decrement and no order row. Serialization conflicts are
// retried a bounded number of times before surfacing as a conflict error.
//
// The cart is cleared after commit. A failed clear never fails the placed
// order; it is logged and handed to the background queue instead.
func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID) (domain.Order, error) {
	var placed domain.Order
	var err error
	for attempt := 0; ; attempt++ {
		placed, err = s.placeOnce(ctx, userID)
		if err == nil {
			break
		}
		if !retryableConflict(err) {
			s.countPlacement(err)
			return domain.Order{}, err
		}
		if attempt+1 >= s.maxRetries() {
			s.countPlacement(domain.ErrPlacementConflict)
			return domain.Order{}, fmt.Errorf("placement after %d attempts: %w", attempt+1, domain.ErrPlacementConflict)
		}
		if obs.PlacementRetriesTotal != nil {
			obs.PlacementRetriesTotal.Inc()
		}
		s.Logger.Warn().Err(err).
			Str("user_id", userID.String()).
			Int("attempt", attempt+1).
			Msg("placement serialization conflict, retrying")
	}

	s.countPlacementOK()
	s.clearCartAfterCommit(ctx, userID, placed.ID)
	return placed, nil
}

func (s *Service) placeOnce(ctx context.Context, userID uuid.UUID) (domain.Order, error) {
	var placed domain.Order
	err := s.Tx.WithinTx(ctx, func(st port.Stores) error {
		cart, err := st.Carts.GetCart(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrCartNotFound) {
				return domain.ErrEmptyCart
			}
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		lines := make([]domain.OrderLine, 0, len(cart.Lines))
		priceLines := make([]pricing.Line, 0, len(cart.Lines))
		for _, line := range cart.Lines {
			item, err := st.Items.GetItem(ctx, line.ItemID)
			if err != nil {
				return err
			}
			if err := st.Items.DecrementStock(ctx, item.ID, line.Quantity); err != nil {
				return fmt.Errorf("item %s: %w", item.ID, err)
			}
			lines = append(lines, domain.OrderLine{
				ItemID:          item.ID,
				Title:           item.Title,
				Quantity:        line.Quantity,
				PriceAtPurchase: item.Price,
			})
			priceLines = append(priceLines, pricing.Line{UnitPrice: item.Price, Quantity: line.Quantity})
		}

		var code *domain.DiscountCode
		if cart.DiscountCode != "" {
			dc, err := st.Discounts.GetByCode(ctx, cart.DiscountCode)
			if err != nil && !errors.Is(err, domain.ErrDiscountNotFound) {
				return err
			}
			if err == nil {
				code = &dc
			}
		}

		quote, err := s.Pricer.Price(priceLines, code)
		if err != nil {
			return err
		}

		placed = domain.Order{
			ID:             uuid.New(),
			UserID:         userID,
			Lines:          lines,
			Status:         domain.OrderStatusPending,
			Subtotal:       quote.Subtotal,
			DiscountAmount: quote.DiscountAmount,
			Tax:            quote.Tax,
			Total:          quote.Total,
			DiscountCode:   cart.DiscountCode,
			PlacedAt:       s.now(),
		}
		return st.Orders.CreateOrder(ctx, placed)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return placed, nil
}

func (s *Service) clearCartAfterCommit(ctx context.Context, userID, orderID uuid.UUID) {
	err := s.Carts.ClearCart(ctx, userID)
	if err == nil || errors.Is(err, domain.ErrCartNotFound) {
		return
	}
	s.Logger.Error().Err(err).
		Str("user_id", userID.String()).
		Str("order_id", orderID.String()).
		Msg("post-placement cart clear failed")
	if obs.CartClearFallbackTotal != nil {
		obs.CartClearFallbackTotal.Inc()
	}
	if s.Enqueuer == nil {
		return
	}
	if err := s.Enqueuer.EnqueueCartClear(ctx, userID, orderID); err != nil {
		s.Logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("order_id", orderID.String()).
			Msg("cart clear enqueue failed")
	}
}

// GetForUser loads an order, enforcing that it belongs to the caller. A
// foreign order reads as not found rather than forbidden.
func (s *Service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID {
		return domain.Order{}, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	return order, nil
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int64, error) {
	return s.Orders.ListOrdersForUser(ctx, userID, limit, offset)
}

// List returns orders across all users, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error) {
	return s.Orders.ListOrders(ctx, status, limit, offset)
}

// Transition moves the order to the target status, enforcing the lifecycle
// rules and guarding against concurrent changes with a compare-and-swap.
func (s *Service) Transition(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) (domain.Order, error) {
	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Status.CanTransitionTo(target) {
		s.countTransition(target, "rejected")
		return domain.Order{}, fmt.Errorf("%s -> %s: %w", order.Status, target, domain.ErrInvalidStatusTransition)
	}
	if err := s.Orders.UpdateOrderStatus(ctx, orderID, order.Status, target); err != nil {
		s.countTransition(target, "conflict")
		return domain.Order{}, err
	}
	s.countTransition(target, "ok")
	order.Status = target
	return order, nil
}

func (s *Service) countPlacementOK() {
	if obs.OrdersPlacedTotal != nil {
		obs.OrdersPlacedTotal.WithLabelValues("ok").Inc()
	}
}

func (s *Service) countPlacement(err error) {
	if obs.OrdersPlacedTotal == nil {
		return
	}
	result := "error"
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		result = "empty_cart"
	case errors.Is(err, domain.ErrInsufficientStock):
		result = "insufficient_stock"
	case errors.Is(err, domain.ErrPlacementConflict):
		result = "conflict"
	}
	obs.OrdersPlacedTotal.WithLabelValues(result).Inc()
}

func (s *Service) countTransition(target domain.OrderStatus, result string) {
	if obs.OrderStatusTransitionTotal != nil {
		obs.OrderStatusTransitionTotal.WithLabelValues(string(target), result).Inc()
	}
}

// retryableConflict reports whether the error is a serialization or deadlock
// failure worth retrying.
func retryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
