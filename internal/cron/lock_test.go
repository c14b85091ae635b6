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

type memoryRedis struct {
	values map[string]string
	ttl    time.Duration
}

func (m *memoryRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.values == nil {
		m.values = map[string]string{}
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttl = ttl
	return true, nil
}

func (m *memoryRedis) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockExclusiveUntilReleased(t *testing.T) {
	store := &memoryRedis{}
	ctx := context.Background()

	first, err := NewRedisLock(store, "gb:lock:cron-worker", "pod-a", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "gb:lock:cron-worker", "pod-b", 0)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttl)

	holder, err := second.Holder(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(holder, "pod-a/"), "holder %q", holder)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// a non-owner release must leave the holder's lock alone
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "gb:lock:cron-worker")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseAfterTakeover(t *testing.T) {
	store := &memoryRedis{}
	ctx := context.Background()

	lock, err := NewRedisLock(store, "gb:lock:cron-worker", "pod-a", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// lease expired and another pod took it
	store.values["gb:lock:cron-worker"] = "pod-b/other"

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "pod-b/other", store.values["gb:lock:cron-worker"])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", "pod", 0)
	require.Error(t, err)
	_, err = NewRedisLock(&memoryRedis{}, "", "pod", 0)
	require.Error(t, err)
}
