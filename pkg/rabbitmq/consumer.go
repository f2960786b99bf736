package rabbitmq

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// UserRoutingKeys binds every user lifecycle event.
var UserRoutingKeys = []string{"user.*"}

// ConsumerConfig holds configuration for setting up a consumer.
type ConsumerConfig struct {
	QueueName    string
	DLQName      string
	RoutingKeys  []string
	ConsumerName string
	Prefetch     int
}

// MessageHandler processes a delivered message.
// Return nil to ack; an error nacks the message into the DLQ.
type MessageHandler func(delivery amqp.Delivery) error

// SetupConsumer declares the main queue and its DLQ, binds the routing keys
// and consumes until ctx is done or the channel closes.
func SetupConsumer(ctx context.Context, conn *Connection, cfg ConsumerConfig, handler MessageHandler, log *slog.Logger) error {
	log = log.With("consumer", cfg.ConsumerName)

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err := declareExchange(ch); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(cfg.DLQName, true, false, false, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DLQName,
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		return err
	}

	for _, key := range cfg.RoutingKeys {
		if err := ch.QueueBind(cfg.QueueName, key, ExchangeName, false, nil); err != nil {
			return err
		}
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return err
	}

	msgs, err := ch.Consume(
		cfg.QueueName,
		cfg.ConsumerName,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		ch.Close()
	}()
	go func() {
		for msg := range msgs {
			handle(msg, handler, log)
		}
		log.Info("consumer stopped")
	}()

	log.Info("consumer started", "queue", cfg.QueueName, "routing_keys", cfg.RoutingKeys)
	return nil
}

func handle(msg amqp.Delivery, handler MessageHandler, log *slog.Logger) {
	log.Info("received message", "routing_key", msg.RoutingKey, "message_id", msg.MessageId, "correlation_id", msg.CorrelationId)

	if err := handler(msg); err != nil {
		log.Error("error processing message, nacking to dlq", "error", err, "message_id", msg.MessageId)
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}
