package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"partnersync/pkg/logging"
	"partnersync/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(uint64, bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAck) Reject(uint64, bool) error { return nil }

func TestHandle_AcksOnSuccess(t *testing.T) {
	ack := &fakeAck{}
	handle(amqp.Delivery{Acknowledger: ack}, func(amqp.Delivery) error { return nil }, logging.Discard())

	if !ack.acked || ack.nacked {
		t.Errorf("expected ack only, got %+v", ack)
	}
}

func TestHandle_NacksWithoutRequeueOnError(t *testing.T) {
	ack := &fakeAck{}
	handle(amqp.Delivery{Acknowledger: ack}, func(amqp.Delivery) error { return errors.New("boom") }, logging.Discard())

	if ack.acked || !ack.nacked {
		t.Errorf("expected nack only, got %+v", ack)
	}
	if ack.requeued {
		t.Error("failed messages must go to the DLQ, not back on the queue")
	}
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishEvent(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, logging.Discard())
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	p.now = func() time.Time { return at }

	event := models.IdentityEvent{
		ID:            "msg_1",
		CorrelationID: "corr-1",
		Type:          models.EventUserUpdated,
		Data:          models.UserSnapshot{ID: "user_1"},
	}
	if err := p.PublishEvent(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ch.exchange != ExchangeName || ch.key != "user.updated" {
		t.Errorf("unexpected exchange/key %q/%q", ch.exchange, ch.key)
	}
	if ch.msg.MessageId != "msg_1" || ch.msg.CorrelationId != "corr-1" {
		t.Errorf("unexpected ids %q/%q", ch.msg.MessageId, ch.msg.CorrelationId)
	}
	if ch.msg.DeliveryMode != amqp.Persistent || !ch.msg.Timestamp.Equal(at) {
		t.Errorf("unexpected publishing %+v", ch.msg)
	}

	var decoded models.IdentityEvent
	if err := json.Unmarshal(ch.msg.Body, &decoded); err != nil {
		t.Fatalf("body is not an event: %v", err)
	}
	if decoded.ID != "msg_1" || decoded.Data.ID != "user_1" {
		t.Errorf("unexpected body %+v", decoded)
	}

	if err := p.Close(); err != nil || !ch.closed {
		t.Errorf("expected channel closed, err=%v", err)
	}
}

func TestPublishEvent_Error(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := newPublisher(ch, logging.Discard())

	err := p.PublishEvent(context.Background(), models.IdentityEvent{ID: "msg_1", Type: models.EventUserDeleted})
	if !errors.Is(err, amqp.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
