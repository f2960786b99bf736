package crm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"partnersync/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliveryChecker reports whether a delivery was already synced successfully.
type DeliveryChecker interface {
	Processed(ctx context.Context, deliveryID string) (bool, error)
}

// Consumer applies queued identity events when the service runs in queue mode.
type Consumer struct {
	Dispatcher *Dispatcher
	Processed  DeliveryChecker
	Timeout    time.Duration

	log *slog.Logger
}

// NewConsumer creates a new sync consumer. checker may be nil.
func NewConsumer(d *Dispatcher, checker DeliveryChecker, log *slog.Logger) *Consumer {
	return &Consumer{
		Dispatcher: d,
		Processed:  checker,
		Timeout:    time.Minute,
		log:        log.With("component", "sync-consumer"),
	}
}

// HandleMessage processes one queued event. A returned error nacks the
// message to the dead-letter queue.
func (c *Consumer) HandleMessage(delivery amqp.Delivery) error {
	var event models.IdentityEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		c.log.Error("failed to unmarshal event", "error", err, "correlation_id", delivery.CorrelationId)
		return err
	}
	if event.CorrelationID == "" {
		event.CorrelationID = delivery.CorrelationId
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	if c.Processed != nil && event.ID != "" {
		done, err := c.Processed.Processed(ctx, event.ID)
		if err != nil {
			c.log.Error("error checking idempotency", "error", err, "event_id", event.ID, "correlation_id", event.CorrelationID)
			return err
		}
		if done {
			c.log.Info("duplicate event ignored", "event_id", event.ID, "correlation_id", event.CorrelationID)
			return nil
		}
	}

	_, err := c.Dispatcher.Dispatch(ctx, event)
	return err
}
