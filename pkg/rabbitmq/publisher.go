package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"partnersync/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange identity events are published on.
const ExchangeName = "identity.events"

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher hands verified events to the sync worker.
type Publisher struct {
	channel publishChannel
	log     *slog.Logger
	now     func() time.Time
}

// NewPublisher opens a channel and declares the topic exchange.
func NewPublisher(conn *Connection, log *slog.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareExchange(ch); err != nil {
		ch.Close()
		return nil, err
	}
	return newPublisher(ch, log), nil
}

func newPublisher(ch publishChannel, log *slog.Logger) *Publisher {
	return &Publisher{channel: ch, log: log.With("component", "publisher"), now: time.Now}
}

// PublishEvent publishes event with its type as the routing key and its
// delivery id as the message id.
func (p *Publisher) PublishEvent(ctx context.Context, event models.IdentityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	p.log.Info("publishing event", "routing_key", event.Type, "event_id", event.ID, "correlation_id", event.CorrelationID)

	return p.channel.PublishWithContext(
		ctx,
		ExchangeName,
		string(event.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: event.CorrelationID,
			MessageId:     event.ID,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     p.now(),
		},
	)
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
