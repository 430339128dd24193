package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewFromClient(client, Options{}, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

type item struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func TestGet_MissIsErrMiss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "item:missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSetJSON_GetJSON(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "item:1", item{ID: "1", Body: "hello"}, 300*time.Second))

	got, err := GetJSON[item](ctx, c, "item:1")
	require.NoError(t, err)
	assert.Equal(t, &item{ID: "1", Body: "hello"}, got)
	assert.Equal(t, 300*time.Second, mr.TTL("item:1"))

	mr.FastForward(301 * time.Second)
	_, err = GetJSON[item](ctx, c, "item:1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestGetJSON_CorruptValue(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("item:bad", "{not json"))

	_, err := GetJSON[item](context.Background(), c, "item:bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndecodable)
	assert.False(t, errors.Is(err, ErrMiss))
}

func TestDeletePattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"list:1:10", "list:2:10", "list:1:20", "item:1"} {
		require.NoError(t, mr.Set(k, "x"))
	}

	removed, err := c.DeletePattern(ctx, "list:*")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.False(t, mr.Exists("list:1:10"))
	assert.False(t, mr.Exists("list:2:10"))
	assert.False(t, mr.Exists("list:1:20"))
	assert.True(t, mr.Exists("item:1"))
}

func TestDelete(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("item:1", "x"))
	require.NoError(t, mr.Set("item:2", "x"))

	require.NoError(t, c.Delete(context.Background(), "item:1", "item:2", "item:absent"))
	assert.False(t, mr.Exists("item:1"))
	assert.False(t, mr.Exists("item:2"))
	assert.NoError(t, c.Delete(context.Background()))
}

func TestGet_BackendDownIsNotMiss(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "item:1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMiss))
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestWithLock_SerializesCriticalSection(t *testing.T) {
	c, _ := newTestCache(t)

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithLock(context.Background(), "lock:post:1", 5*time.Second, func() error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestBuildUniversalOptions(t *testing.T) {
	opts, err := buildUniversalOptions("redis://:secret@cache-1:6379/2, cache-2:6379")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache-1:6379", "cache-2:6379"}, opts.Addrs)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = buildUniversalOptions(" , ")
	assert.Error(t, err)
}
