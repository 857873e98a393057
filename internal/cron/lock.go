package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// The TTL slightly outlives the daily cadence: a worker that dies while
// holding the lock frees itself before the cycle after next.
const defaultLockTTL = 25 * time.Hour

// Lock gates a maintenance cycle so only one worker instance runs it.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// lockStore is the slice of the redis client the lock needs.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock claims a single redis key with SETNX. The stored value is a
// per-acquire token, so a worker never releases a lock that expired and was
// taken over by another instance.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("lock store required")
	}
	if key == "" {
		return nil, errors.New("lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire claims the key for the TTL. False means another worker holds it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	claimed, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim lock %s: %w", l.key, err)
	}
	if claimed {
		l.token = token
	}
	return claimed, nil
}

// Release deletes the key, but only while it still carries this worker's
// token. A missing key or a foreign token means the lock expired underneath
// us; there is nothing left to free.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	held, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("inspect lock %s: %w", l.key, err)
	}
	if held != l.token {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("free lock %s: %w", l.key, err)
	}
	l.token = ""
	return nil
}
