package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeCartClear identifies the task that retries clearing a cart after
// order placement when the inline clear failed.
const TypeCartClear = "cart:clear"

// CartClearPayload carries the identifiers needed to clear a user's cart.
type CartClearPayload struct {
	UserID  uuid.UUID `json:"user_id"`
	OrderID uuid.UUID `json:"order_id"`
}

// NewCartClearTask builds an asynq task for clearing the user's cart.
func NewCartClearTask(userID, orderID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(CartClearPayload{UserID: userID, OrderID: orderID})
	if err != nil {
		return nil, fmt.Errorf("marshal cart clear payload: %w", err)
	}
	return asynq.NewTask(TypeCartClear, payload, asynq.MaxRetry(5)), nil
}
