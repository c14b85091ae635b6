package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/pkg/config"
)

type fakeCmdable struct {
	data    map[string]string
	counter map[string]int64
	ttl     map[string]time.Duration
	expires int
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{
		data:    map[string]string{},
		counter: map[string]int64{},
		ttl:     map[string]time.Duration{},
	}
}

func (f *fakeCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counter[key]++
	return redis.NewIntResult(f.counter[key], nil)
}

func (f *fakeCmdable) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires++
	f.ttl[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) TTL(_ context.Context, key string) *redis.DurationCmd {
	ttl, ok := f.ttl[key]
	if !ok {
		ttl = -1
	}
	return redis.NewDurationResult(ttl, nil)
}

func (f *fakeCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// Eval understands only the compare-and-delete script.
func (f *fakeCmdable) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != deleteIfEqualsScript {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
	}
	if v, ok := f.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(f.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestDeleteIfEquals(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCmdable()
	client := &Client{store: fake}
	fake.data["gb:lock:cron-worker"] = "pod-b/2"

	deleted, err := client.DeleteIfEquals(ctx, "gb:lock:cron-worker", "pod-a/1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, fake.data, "gb:lock:cron-worker")

	deleted, err = client.DeleteIfEquals(ctx, "gb:lock:cron-worker", "pod-b/2")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotContains(t, fake.data, "gb:lock:cron-worker")
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCmdable()
	client := &Client{store: fake}

	for i := int64(1); i <= 2; i++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "presign:u1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, count)
	}
	assert.Equal(t, 1, fake.expires, "window is armed once")

	allowed, count, err := client.FixedWindowAllow(ctx, "presign:u1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(3), count)
}

func TestFixedWindowAllowRestoresMissingTTL(t *testing.T) {
	fake := newFakeCmdable()
	fake.counter["gb:rate_limit:presign:u1"] = 5
	client := &Client{store: fake}

	_, _, err := client.FixedWindowAllow(context.Background(), "presign:u1", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, fake.ttl["gb:rate_limit:presign:u1"])
}

func TestSetNXGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeCmdable()}

	won, err := client.SetNX(ctx, "k", "owner-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, won)
	won, err = client.SetNX(ctx, "k", "owner-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, won)

	value, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", value)

	require.NoError(t, client.Set(ctx, "k", "owner-3", time.Hour))
	value, err = client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "owner-3", value)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestUninitializedClient(t *testing.T) {
	var nilClient *Client
	assert.ErrorIs(t, nilClient.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, nilClient.Close())

	_, err := (&Client{}).SetNX(context.Background(), "k", "v", time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
	_, _, err = (&Client{}).FixedWindowAllow(context.Background(), "s", 1, time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
}

func TestKeys(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "gb:idempotency:scope:id", c.IdempotencyKey("scope", "id"))
	assert.Equal(t, "gb:idempotency:scope", c.IdempotencyKey("scope", ""))
	assert.Equal(t, "gb:rate_limit:presign:user-1", c.RateLimitKey("presign:user-1"))
	assert.Equal(t, "gb:lock:cron-worker", c.LockKey(" cron-worker "))
}

func TestOptions(t *testing.T) {
	_, err := options(config.RedisConfig{})
	require.Error(t, err)

	opts, err := options(config.RedisConfig{URL: "redis://:secret@cache:6380/3", PoolSize: 20, DB: 7})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB, "url db wins")
	assert.Equal(t, 20, opts.PoolSize)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 2, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, time.Second, opts.DialTimeout)
}
