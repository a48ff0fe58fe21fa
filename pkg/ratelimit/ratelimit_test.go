package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter()
	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	limit := PerMinute(3)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "api:key", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "api:key", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.InDelta(t, float64(20*time.Second), float64(res.RetryAfter), float64(time.Millisecond))

	// 其他 key 不受影响
	res, err = l.Allow(ctx, "ip:10.0.0.1", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	now = now.Add(21 * time.Second)
	res, err = l.Allow(ctx, "api:key", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, err = l.Allow(ctx, "api:key", Limit{})
	assert.Error(t, err)
}

func TestLocalRateLimiterEvictsIdleKeys(t *testing.T) {
	l := NewLocalRateLimiter()
	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	limit := PerMinute(3)

	for _, key := range []string{"ip:10.0.0.1", "ip:10.0.0.2"} {
		for i := 0; i < 3; i++ {
			_, err := l.Allow(ctx, key, limit)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 2, l.size())

	now = now.Add(30 * time.Second)
	_, err := l.Allow(ctx, "ip:10.0.0.2", limit)
	require.NoError(t, err)

	// 10.0.0.1 空闲满一分钟，桶已回满，被清理
	now = now.Add(31 * time.Second)
	_, err = l.Allow(ctx, "ip:10.0.0.3", limit)
	require.NoError(t, err)
	assert.Equal(t, 2, l.size())

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip:10.0.0.1", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}
func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisRateLimiter(client)
	ctx := context.Background()
	limit := PerMinute(2)

	res, err := l.Allow(ctx, "api:demo", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = l.Allow(ctx, "api:demo", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = l.Allow(ctx, "api:demo", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}
