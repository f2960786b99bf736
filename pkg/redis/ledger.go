package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	statusProcessing = "processing"
	statusDone       = "done"
)

// ErrInFlight is returned by Claim when another request holds the delivery.
var ErrInFlight = errors.New("delivery is already being processed")

// Ledger tracks webhook delivery ids so redeliveries are acknowledged
// without touching the remote directory twice.
type Ledger struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	// ClaimTTL bounds how long a crashed request can block a redelivery.
	ClaimTTL time.Duration
}

// NewLedger stores completed deliveries for ttl.
func NewLedger(client *goredis.Client, ttl time.Duration) *Ledger {
	return &Ledger{
		client:   client,
		prefix:   "partnersync:delivery:",
		ttl:      ttl,
		ClaimTTL: 2 * time.Minute,
	}
}

func (l *Ledger) key(id string) string {
	return l.prefix + id
}

// Claim marks id as in progress. It returns false when the delivery was
// already completed and ErrInFlight when another claim is still held.
func (l *Ledger) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(id), statusProcessing, l.ClaimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	if ok {
		return true, nil
	}

	status, err := l.client.Get(ctx, l.key(id)).Result()
	switch {
	case err == goredis.Nil:
		// Expired between the two calls; try once more.
		ok, err = l.client.SetNX(ctx, l.key(id), statusProcessing, l.ClaimTTL).Result()
		if err != nil {
			return false, fmt.Errorf("claim %s: %w", id, err)
		}
		if ok {
			return true, nil
		}
		return false, ErrInFlight
	case err != nil:
		return false, fmt.Errorf("claim %s: %w", id, err)
	case status == statusDone:
		return false, nil
	default:
		return false, ErrInFlight
	}
}

// Complete records id as done for the ledger TTL.
func (l *Ledger) Complete(ctx context.Context, id string) error {
	if err := l.client.Set(ctx, l.key(id), statusDone, l.ttl).Err(); err != nil {
		return fmt.Errorf("complete %s: %w", id, err)
	}
	return nil
}

// Release drops a claim so the sender's retry can be processed.
func (l *Ledger) Release(ctx context.Context, id string) error {
	if err := l.client.Del(ctx, l.key(id)).Err(); err != nil {
		return fmt.Errorf("release %s: %w", id, err)
	}
	return nil
}
