package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryProvider_FixedWindow(t *testing.T) {
	p, err := NewInMemoryProvider(100)
	require.NoError(t, err)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, count, _, err := p.CheckAndIncrement(ctx, "ip:1", time.Minute, 3)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, count)
	}

	allowed, count, resetAt, err := p.CheckAndIncrement(ctx, "ip:1", time.Minute, 3)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 4, count)
	assert.Equal(t, clock.Add(time.Minute), resetAt)

	allowed, _, _, err = p.CheckAndIncrement(ctx, "ip:2", time.Minute, 3)
	require.NoError(t, err)
	assert.True(t, allowed, "other keys have their own window")

	clock = clock.Add(time.Minute)
	allowed, count, _, err = p.CheckAndIncrement(ctx, "ip:1", time.Minute, 3)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, count)
}

func TestInMemoryProvider_BoundedKeys(t *testing.T) {
	p, err := NewInMemoryProvider(2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_, _, _, err := p.CheckAndIncrement(ctx, k, time.Minute, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, p.entries.Len())
}

func TestInMemoryProvider_CancelledContext(t *testing.T) {
	p, err := NewInMemoryProvider(0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err = p.CheckAndIncrement(ctx, "k", time.Minute, 1)
	assert.Error(t, err)
}

func TestRedisProvider_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	p := NewRedisProvider(client, "rl:")
	ctx := context.Background()

	var rejected int
	for i := 0; i < 6; i++ {
		allowed, _, _, err := p.CheckAndIncrement(ctx, "ip:10.0.0.1", time.Minute, 5)
		require.NoError(t, err)
		if !allowed {
			rejected++
		}
	}
	assert.Equal(t, 1, rejected)
	assert.Equal(t, time.Minute, mr.TTL("rl:ip:10.0.0.1"))

	mr.FastForward(time.Minute)

	allowed, count, _, err := p.CheckAndIncrement(ctx, "ip:10.0.0.1", time.Minute, 5)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, count)
}

func TestRedisProvider_ConcurrentRequestsShareBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	p := NewRedisProvider(client, "rl:")

	var (
		mu      sync.Mutex
		allowed int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, _, err := p.CheckAndIncrement(context.Background(), "ip:1", time.Minute, 10)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestRedisProvider_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, _, _, err := NewRedisProvider(client, "rl:").CheckAndIncrement(context.Background(), "k", time.Minute, 1)
	assert.Error(t, err)
}
