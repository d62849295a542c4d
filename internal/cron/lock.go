package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Covers a full daily cycle plus slack when no TTL is configured.
const defaultLockTTL = 25 * time.Hour

// Lock gives one worker instance exclusive ownership of a cron cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

var (
	errLockClientRequired = errors.New("redis client required for lock")
	errLockKeyRequired    = errors.New("lock key is required")
)

// redisStore is the slice of the redis client the lock needs.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX-with-TTL leader lock. The TTL bounds how long a
// crashed holder can block other instances.
type RedisLock struct {
	store redisStore
	key   string
	ttl   time.Duration

	// owner is the random token written on acquire; release is a no-op
	// when the key no longer carries it.
	owner string
}

func NewRedisLock(store redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errLockClientRequired
	}
	if key == "" {
		return nil, errLockKeyRequired
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquiring cron lock: %w", err)
	}
	if ok {
		l.owner = token
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		// TTL already expired; nothing to release.
		l.owner = ""
		return nil
	case err != nil:
		return fmt.Errorf("reading cron lock owner: %w", err)
	case current != l.owner:
		// Another instance took over after our TTL lapsed; leave its
		// lock alone.
		l.owner = ""
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("releasing cron lock: %w", err)
	}
	l.owner = ""
	return nil
}
