package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Minute

// Lock gives one worker at a time the right to run a reconciliation cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX lease. The TTL bounds how long a crashed worker can
// block the sweep.
type RedisLock struct {
	client   redisStore
	key      string
	ttl      time.Duration
	instance string
	token    string
}

// NewRedisLock builds a lease on key. instance names the worker in the stored
// token so a held lock can be traced back to its owner.
func NewRedisLock(client redisStore, key, instance string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if instance == "" {
		instance = "cron-worker"
	}
	return &RedisLock{client: client, key: key, ttl: ttl, instance: instance}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := l.instance + ":" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release deletes the key only while it still carries this worker's token;
// a lease that expired and was taken over is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	defer func() { l.token = "" }()
	current, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s owner: %w", l.key, err)
	}
	if current != l.token {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
