package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLedger(client, time.Hour), mr
}

func TestClaim_FirstDelivery(t *testing.T) {
	l, mr := newLedger(t)

	ok, err := l.Claim(context.Background(), "msg_1")
	if err != nil || !ok {
		t.Fatalf("expected claim, got ok=%v err=%v", ok, err)
	}
	if got, _ := mr.Get("partnersync:delivery:msg_1"); got != statusProcessing {
		t.Errorf("expected processing marker, got %q", got)
	}
	if ttl := mr.TTL("partnersync:delivery:msg_1"); ttl != l.ClaimTTL {
		t.Errorf("expected claim ttl %v, got %v", l.ClaimTTL, ttl)
	}
}

func TestClaim_InFlight(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	if _, err := l.Claim(ctx, "msg_1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	ok, err := l.Claim(ctx, "msg_1")
	if ok || !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got ok=%v err=%v", ok, err)
	}
}

func TestClaim_AfterComplete(t *testing.T) {
	l, mr := newLedger(t)
	ctx := context.Background()

	if _, err := l.Claim(ctx, "msg_1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := l.Complete(ctx, "msg_1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if ttl := mr.TTL("partnersync:delivery:msg_1"); ttl != time.Hour {
		t.Errorf("expected ledger ttl, got %v", ttl)
	}

	ok, err := l.Claim(ctx, "msg_1")
	if err != nil || ok {
		t.Fatalf("expected duplicate, got ok=%v err=%v", ok, err)
	}

	mr.FastForward(2 * time.Hour)
	ok, err = l.Claim(ctx, "msg_1")
	if err != nil || !ok {
		t.Fatalf("expected claim after expiry, got ok=%v err=%v", ok, err)
	}
}

func TestRelease(t *testing.T) {
	l, mr := newLedger(t)
	ctx := context.Background()

	if _, err := l.Claim(ctx, "msg_1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := l.Release(ctx, "msg_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("partnersync:delivery:msg_1") {
		t.Error("expected key removed")
	}
	if ok, err := l.Claim(ctx, "msg_1"); err != nil || !ok {
		t.Fatalf("expected re-claim, got ok=%v err=%v", ok, err)
	}
}

func TestClaim_RedisDown(t *testing.T) {
	l, mr := newLedger(t)
	mr.Close()

	if _, err := l.Claim(context.Background(), "msg_1"); err == nil {
		t.Fatal("expected error with redis down")
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := New(context.Background(), addr, "")
	if err != nil {
		t.Fatalf("expected connection, got %v", err)
	}
	defer client.Close()

	mr.Close()
	if _, err := New(context.Background(), addr, ""); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}
