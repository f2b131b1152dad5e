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

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	ctx := context.Background()

	for _, key := range []string{"feishu-webhook", "other", ""} {
		for i := 0; i < 10; i++ {
			allowed, err := limiter.Allow(ctx, key)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	}
	assert.NoError(t, limiter.Close())
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	_, err := NewRedisRateLimiter("not-a-valid-url", 100, time.Minute)
	assert.Error(t, err)
}

func TestNewRedisRateLimiter_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisRateLimiter("redis://"+addr+"/0", 100, time.Minute)
	assert.Error(t, err)
}

func TestNewRedisRateLimiter_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr()+"/0", 1, time.Minute)
	require.NoError(t, err)
	defer limiter.Close()

	allowed, err := limiter.Allow(context.Background(), "feishu-webhook")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := newRedisRateLimiter(client, 3, time.Minute)

	current := time.Unix(1700000000, 0)
	limiter.now = func() time.Time {
		current = current.Add(time.Millisecond)
		return current
	}

	ctx := context.Background()

	t.Run("admits up to the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := limiter.Allow(ctx, "messages")
			require.NoError(t, err)
			assert.True(t, allowed, "request %d", i)
		}
	})

	t.Run("rejects over the limit", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "messages")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "cards")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		current = current.Add(2 * time.Minute)
		allowed, err := limiter.Allow(ctx, "messages")
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRedisRateLimiter_SetsExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := newRedisRateLimiter(client, 10, 30*time.Second)

	_, err := limiter.Allow(context.Background(), "messages")
	require.NoError(t, err)

	assert.True(t, mr.Exists("ratelimit:messages"))
	assert.Equal(t, 30*time.Second, mr.TTL("ratelimit:messages"))
}

func TestRedisRateLimiter_Close(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := newRedisRateLimiter(client, 1, time.Minute)

	assert.NoError(t, limiter.Close())

	_, err := limiter.Allow(context.Background(), "messages")
	assert.Error(t, err)
}
