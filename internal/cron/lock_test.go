package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedisStore struct {
	values map[string]string
	setErr error
	getErr error
	delErr error
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (f *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, exists := f.values[key]
	if !exists {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	if f.delErr != nil {
		return f.delErr
	}
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLock_AcquireAndRelease(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "wl:lock:cron-worker", time.Hour)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	acquired, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !acquired {
		t.Fatal("expected lock acquisition")
	}
	if _, exists := store.values["wl:lock:cron-worker"]; !exists {
		t.Fatal("expected lock key in store")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, exists := store.values["wl:lock:cron-worker"]; exists {
		t.Fatal("expected lock key removed")
	}
}

func TestRedisLock_SecondAcquireFails(t *testing.T) {
	store := newFakeRedisStore()
	first, _ := NewRedisLock(store, "wl:lock:cron-worker", time.Hour)
	second, _ := NewRedisLock(store, "wl:lock:cron-worker", time.Hour)

	if acquired, _ := first.Acquire(context.Background()); !acquired {
		t.Fatal("first acquire should succeed")
	}
	acquired, err := second.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if acquired {
		t.Fatal("second acquire should fail while lock is held")
	}
}

func TestRedisLock_ReleaseSkipsForeignOwner(t *testing.T) {
	store := newFakeRedisStore()
	lock, _ := NewRedisLock(store, "wl:lock:cron-worker", time.Hour)

	if acquired, _ := lock.Acquire(context.Background()); !acquired {
		t.Fatal("acquire should succeed")
	}
	// Simulate expiry and takeover by another worker.
	store.values["wl:lock:cron-worker"] = "someone-else"

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["wl:lock:cron-worker"] != "someone-else" {
		t.Fatal("release must not delete a lock owned by another worker")
	}
}

func TestRedisLock_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	store := newFakeRedisStore()
	lock, _ := NewRedisLock(store, "wl:lock:cron-worker", time.Hour)
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestNewRedisLock_Validation(t *testing.T) {
	if _, err := NewRedisLock(nil, "key", time.Hour); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewRedisLock(newFakeRedisStore(), "", time.Hour); err == nil {
		t.Fatal("expected error for empty key")
	}
}
