package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, "ml:"), mr
}

func TestRedisCacheGetSet(t *testing.T) {
	rc, mr := newTestRedisCache(t)
	ctx := context.Background()

	_, ok, err := rc.Get(ctx, "quote:PETR4")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.Set(ctx, "quote:PETR4", []byte(`{"ticker":"PETR4"}`), 30*time.Second))
	assert.True(t, mr.Exists("ml:quote:PETR4"))

	val, ok, err := rc.Get(ctx, "quote:PETR4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"ticker":"PETR4"}`, string(val))

	mr.FastForward(31 * time.Second)
	_, ok, err = rc.Get(ctx, "quote:PETR4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheSetNXAndDelete(t *testing.T) {
	rc, _ := newTestRedisCache(t)
	ctx := context.Background()

	ok, err := rc.SetNX(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rc.SetNX(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.Delete(ctx, "lock"))
	ok, err = rc.SetNX(ctx, "lock", []byte("c"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCacheServerDown(t *testing.T) {
	rc, mr := newTestRedisCache(t)
	mr.Close()

	_, _, err := rc.Get(context.Background(), "quote:PETR4")
	assert.Error(t, err)
	assert.Error(t, rc.Set(context.Background(), "quote:PETR4", []byte("x"), time.Second))
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "rsi:PETR4:14", []byte("1"), 5*time.Minute))
	val, ok, err := mc.Get(ctx, "rsi:PETR4:14")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), val)

	now = now.Add(5 * time.Minute)
	_, ok, _ = mc.Get(ctx, "rsi:PETR4:14")
	assert.False(t, ok)

	ok, _ = mc.SetNX(ctx, "lock", []byte("x"), time.Second)
	assert.True(t, ok)
	ok, _ = mc.SetNX(ctx, "lock", []byte("y"), time.Second)
	assert.False(t, ok)
	now = now.Add(time.Second)
	ok, _ = mc.SetNX(ctx, "lock", []byte("z"), time.Second)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "lock"))
	_, ok, _ = mc.Get(ctx, "lock")
	assert.False(t, ok)
}
