// Package ratelimit implements fixed-window request limiting backed by Redis
// or, for single-instance deployments, a bounded in-process table.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

// Provider counts requests per key inside fixed windows.
type Provider interface {
	// CheckAndIncrement counts one request for key and reports whether it is within max
	// for the current window, the count so far and when the window resets.
	CheckAndIncrement(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error)
}

// RedisProvider keeps counters in Redis so all gateway replicas share one budget.
type RedisProvider struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisProvider(client redis.UniversalClient, prefix string) *RedisProvider {
	return &RedisProvider{client: client, prefix: prefix}
}

// CheckAndIncrement creates the window key with its expiry and increments it in
// one MULTI block, so the first request of a window always sets the TTL.
func (p *RedisProvider) CheckAndIncrement(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	fullKey := p.prefix + key
	now := time.Now()

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, fullKey, 0, window)
		incr = pipe.Incr(ctx, fullKey)
		pttl = pipe.PTTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	count := int(incr.Val())
	resetAt := now.Add(window)
	if ttl := pttl.Val(); ttl > 0 {
		resetAt = now.Add(ttl)
	}
	return count <= max, count, resetAt, nil
}

// InMemoryProvider is a process-local provider. Keys are held in an LRU so a
// flood of distinct client addresses cannot grow memory without bound.
type InMemoryProvider struct {
	mu      sync.Mutex
	entries *lru.Cache
	now     func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// NewInMemoryProvider tracks at most size keys. When full, the least recently
// seen key is evicted and starts a fresh window on its next request.
func NewInMemoryProvider(size int) (*InMemoryProvider, error) {
	if size <= 0 {
		size = 10000
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create rate limit table: %w", err)
	}
	return &InMemoryProvider{entries: entries, now: time.Now}, nil
}

func (p *InMemoryProvider) CheckAndIncrement(ctx context.Context, key string, windowLen time.Duration, max int) (bool, int, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("context canceled: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if raw, ok := p.entries.Get(key); ok {
		w := raw.(*window)
		if now.Before(w.expiresAt) {
			w.count++
			return w.count <= max, w.count, w.expiresAt, nil
		}
	}

	w := &window{count: 1, expiresAt: now.Add(windowLen)}
	p.entries.Add(key, w)
	return 1 <= max, 1, w.expiresAt, nil
}
