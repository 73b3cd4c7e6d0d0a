package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

// DeliveryStep advises the worker to set the status after the given delay,
// counted from the previous step.
type DeliveryStep struct {
	Status string
	After  time.Duration
}

// DefaultDeliverySteps walks a new order through the full progression:
// shipped a day in, out for delivery at 72h, delivered at 96h. The worker is
// the only writer of status after creation.
var DefaultDeliverySteps = []DeliveryStep{
	{Status: models.StatusShipped, After: 24 * time.Hour},
	{Status: models.StatusOutForDelivery, After: 48 * time.Hour},
	{Status: models.StatusDelivered, After: 24 * time.Hour},
}

// DeliveryWorker advances order statuses on a schedule and publishes an event
// per transition.
type DeliveryWorker struct {
	Backend  Backend
	Producer events.Publisher
	Steps    []DeliveryStep

	baseCtx context.Context
}

func NewDeliveryWorker(ctx context.Context, backend Backend, producer events.Publisher, steps []DeliveryStep) *DeliveryWorker {
	if len(steps) == 0 {
		steps = DefaultDeliverySteps
	}
	return &DeliveryWorker{
		Backend:  backend,
		Producer: producer,
		Steps:    steps,
		baseCtx:  ctx,
	}
}

// Schedule starts the progression for one order in the background. It returns
// immediately; the goroutine stops when the worker's context is cancelled.
func (w *DeliveryWorker) Schedule(orderID uuid.UUID) {
	go w.advance(orderID)
}

func (w *DeliveryWorker) advance(orderID uuid.UUID) {
	ctx := w.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	l := logging.FromContext(ctx).With("worker", "delivery", "order_id", orderID)

	for _, step := range w.Steps {
		select {
		case <-ctx.Done():
			return
		case <-time.After(step.After):
		}

		if err := w.Backend.UpdateOrderStatus(ctx, orderID, step.Status); err != nil {
			l.Error("status update failed", "status", step.Status, "error", err)
			return
		}
		l.Info("status updated", "status", step.Status)

		if w.Producer == nil {
			continue
		}
		event := map[string]any{
			"type":     "order_status_changed",
			"order_id": orderID,
			"status":   step.Status,
		}
		if err := w.Producer.PublishEvent(ctx, events.TopicOrderEvents, fmt.Sprint(orderID), event); err != nil {
			l.Warn("status event publish failed", "status", step.Status, "error", err)
		}
	}
}
