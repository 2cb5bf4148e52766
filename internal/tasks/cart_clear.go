package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
)

// CartClearHandler processes cart clear retry tasks.
type CartClearHandler struct {
	Carts  port.CartStore
	Logger zerolog.Logger
}

// ProcessTask clears the cart referenced by the task payload. A cart that no
// longer exists counts as success.
func (h CartClearHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload CartClearPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal cart clear payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Carts.ClearCart(ctx, payload.UserID); err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return nil
		}
		h.Logger.Error().Err(err).
			Str("user_id", payload.UserID.String()).
			Str("order_id", payload.OrderID.String()).
			Msg("cart clear retry failed")
		return err
	}
	h.Logger.Info().
		Str("user_id", payload.UserID.String()).
		Str("order_id", payload.OrderID.String()).
		Msg("cart cleared")
	return nil
}
