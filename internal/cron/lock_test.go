package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	first, err := NewRedisLock(store, "rental:lock:cron", "worker-a", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "rental:lock:cron", "worker-b", 0)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(store.values["rental:lock:cron"], "worker-a:"))
	assert.Equal(t, defaultLockTTL, store.ttls["rental:lock:cron"])

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "rental:lock:cron", "non-owner release must not drop the lease")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockLeavesTakenOverLease(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "rental:lock:cron", "worker-a", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	store.values["rental:lock:cron"] = "worker-b:other"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "worker-b:other", store.values["rental:lock:cron"])

	delete(store.values, "rental:lock:cron")
	require.NoError(t, lock.Release(ctx))
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", "", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(newMemoryStore(), "", "", time.Minute)
	require.Error(t, err)
}
