package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	ttl    time.Duration
	err    error
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	if _, taken := m.values[key]; taken {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttl = ttl
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value.(string)
	m.ttl = ttl
	return m.err
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "gb:idempotency:" + scope + ":" + id
}

func TestGuardClaimOnce(t *testing.T) {
	store := &memoryStore{}
	guard, err := NewGuard(store, "notification-worker", time.Hour)
	require.NoError(t, err)
	guard.now = func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) }

	eventID := uuid.New()
	won, err := guard.Claim(context.Background(), eventID)
	require.NoError(t, err)
	assert.True(t, won)
	assert.Equal(t, time.Hour, store.ttl)

	key := "gb:idempotency:evt:notification-worker:" + eventID.String()
	require.Contains(t, store.values, key)
	assert.True(t, strings.HasSuffix(store.values[key], "@2026-04-01T09:00:00Z"))

	won, err = guard.Claim(context.Background(), eventID)
	require.NoError(t, err)
	assert.False(t, won, "redelivery must lose the claim")
}

func TestGuardReleaseAllowsRetry(t *testing.T) {
	store := &memoryStore{}
	guard, err := NewGuard(store, "notification-worker", time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	_, err = guard.Claim(context.Background(), eventID)
	require.NoError(t, err)
	require.NoError(t, guard.Release(context.Background(), eventID))

	won, err := guard.Claim(context.Background(), eventID)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestGuardScopesByConsumer(t *testing.T) {
	store := &memoryStore{}
	a, err := NewGuard(store, "notification-worker", time.Hour)
	require.NoError(t, err)
	b, err := NewGuard(store, "analytics", time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	wonA, _ := a.Claim(context.Background(), eventID)
	wonB, _ := b.Claim(context.Background(), eventID)
	assert.True(t, wonA)
	assert.True(t, wonB)
}

func TestGuardErrors(t *testing.T) {
	_, err := NewGuard(nil, "c", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(&memoryStore{}, "", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(&memoryStore{}, "c", 0)
	assert.Error(t, err)

	guard, err := NewGuard(&memoryStore{err: errors.New("redis down")}, "c", time.Hour)
	require.NoError(t, err)
	_, err = guard.Claim(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "redis down")
	_, err = guard.Claim(context.Background(), uuid.Nil)
	assert.Error(t, err)
}
