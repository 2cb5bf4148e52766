package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer publishes background tasks to the worker queue.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueCartClear schedules a cart clear retry for the given user and order.
func (e Enqueuer) EnqueueCartClear(ctx context.Context, userID, orderID uuid.UUID) error {
	if e.Client == nil {
		return fmt.Errorf("tasks: client not configured")
	}
	task, err := NewCartClearTask(userID, orderID)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeCartClear, err)
	}
	return nil
}
