package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Second

// ErrLockHeld is returned when another owner holds the lock.
var ErrLockHeld = errors.New("lock held by another owner")

// lockStore defines the operations used by KeyedLock.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope, id string) string
}

// KeyedLock hands out SETNX locks scoped by an identifier, e.g. one lock per
// user for checkout. Each lock carries a random owner token so an expired
// holder cannot release someone else's lock.
type KeyedLock struct {
	store lockStore
	scope string
	ttl   time.Duration
}

// Release frees a lock obtained from KeyedLock.Acquire.
type Release func(ctx context.Context) error

// NewKeyedLock constructs a lock family under scope.
func NewKeyedLock(store lockStore, scope string, ttl time.Duration) (*KeyedLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if scope == "" {
		return nil, errors.New("lock scope is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &KeyedLock{store: store, scope: scope, ttl: ttl}, nil
}

// Acquire takes the lock for id or returns ErrLockHeld.
func (l *KeyedLock) Acquire(ctx context.Context, id string) (Release, error) {
	key := l.store.LockKey(l.scope, id)
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		return l.release(ctx, key, owner)
	}, nil
}

func (l *KeyedLock) release(ctx context.Context, key, owner string) error {
	value, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		return nil
	}
	if err := l.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
