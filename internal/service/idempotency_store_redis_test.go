package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreForTest(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyStore(client, ""), mr
}

func TestRedisIdempotencyStoreLifecycle(t *testing.T) {
	store, mr := newRedisStoreForTest(t)
	ctx := context.Background()

	res, err := store.Begin(ctx, "verification_token.patch", "k1", "fp1", time.Hour)
	if err != nil || res.State != IdempotencyStateNew {
		t.Fatalf("expected new, got %+v err=%v", res, err)
	}
	if !mr.Exists("fleet:idem:verification_token.patch:k1") {
		t.Fatal("expected reservation key in redis")
	}

	res, err = store.Begin(ctx, "verification_token.patch", "k1", "fp1", time.Hour)
	if err != nil || res.State != IdempotencyStateInProgress {
		t.Fatalf("expected in_progress, got %+v err=%v", res, err)
	}

	cached := CachedHTTPResponse{StatusCode: 200, ContentType: "application/json", Body: []byte(`{"isActive":false}`)}
	if err := store.Complete(ctx, "verification_token.patch", "k1", "fp1", cached, time.Hour); err != nil {
		t.Fatalf("complete: %v", err)
	}

	res, err = store.Begin(ctx, "verification_token.patch", "k1", "fp1", time.Hour)
	if err != nil || res.State != IdempotencyStateReplay {
		t.Fatalf("expected replay, got %+v err=%v", res, err)
	}
	if res.Cached.StatusCode != 200 || string(res.Cached.Body) != `{"isActive":false}` {
		t.Fatalf("unexpected cached response %+v", res.Cached)
	}

	res, err = store.Begin(ctx, "verification_token.patch", "k1", "fp2", time.Hour)
	if err != nil || res.State != IdempotencyStateConflict {
		t.Fatalf("expected conflict, got %+v err=%v", res, err)
	}
}

func TestRedisIdempotencyStoreAbandonAndExpiry(t *testing.T) {
	store, mr := newRedisStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "s", "k", "fp", time.Minute); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.Abandon(ctx, "s", "k", "other"); err != nil {
		t.Fatalf("abandon with other fingerprint: %v", err)
	}
	if !mr.Exists("fleet:idem:s:k") {
		t.Fatal("abandon with a different fingerprint must keep the reservation")
	}
	if err := store.Abandon(ctx, "s", "k", "fp"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if mr.Exists("fleet:idem:s:k") {
		t.Fatal("expected reservation removed")
	}

	if _, err := store.Begin(ctx, "s", "k", "fp", time.Minute); err != nil {
		t.Fatalf("begin: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	res, err := store.Begin(ctx, "s", "k", "fp", time.Minute)
	if err != nil || res.State != IdempotencyStateNew {
		t.Fatalf("expected new after ttl, got %+v err=%v", res, err)
	}
}

func TestRedisIdempotencyStoreBackendError(t *testing.T) {
	store, mr := newRedisStoreForTest(t)
	mr.Close()
	if _, err := store.Begin(context.Background(), "s", "k", "fp", time.Minute); err == nil {
		t.Fatal("expected error when redis is unavailable")
	}
}
