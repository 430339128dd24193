package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrMiss is returned by Get and GetJSON when the key is absent.
var ErrMiss = redis.Nil

// ErrUndecodable is returned by GetJSON when the stored value is not valid JSON for the target type.
var ErrUndecodable = errors.New("undecodable cache value")

// Getter is the read side GetJSON needs.
type Getter interface {
	Get(ctx context.Context, key string) (string, error)
}

const defaultOpTimeout = 500 * time.Millisecond

// RedisCache wraps a go-redis universal client with per-operation timeouts.
type RedisCache struct {
	client    redis.UniversalClient
	rs        *redsync.Redsync
	opTimeout time.Duration
	log       zerolog.Logger
}

// Options tune a RedisCache.
type Options struct {
	// OpTimeout bounds every single cache call. Zero means 500ms.
	OpTimeout time.Duration
}

// NewRedisCache connects to the comma separated list of redis URLs or host:port addresses.
func NewRedisCache(ctx context.Context, redisURL string, opts Options, log zerolog.Logger) (*RedisCache, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}

	universal, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if len(universal.Addrs) > 1 && universal.DB != 0 {
		log.Warn().Msg("ignoring non-zero DB when using Redis Cluster configuration")
		universal.DB = 0
	}

	client := redis.NewUniversalClient(universal)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Strs("addrs", universal.Addrs).Msg("connected to redis")
	return NewFromClient(client, opts, log), nil
}

// NewFromClient wraps an existing client. The cache takes ownership and closes it in Close.
func NewFromClient(client redis.UniversalClient, opts Options, log zerolog.Logger) *RedisCache {
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &RedisCache{
		client:    client,
		rs:        redsync.New(goredis.NewPool(client)),
		opTimeout: timeout,
		log:       log.With().Str("component", "redis-cache").Logger(),
	}
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
		if opts.PoolSize == 0 {
			opts.PoolSize = parsed.PoolSize
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no Redis addresses provided")
	}
	return opts, nil
}

// Client exposes the underlying client for packages that need raw commands, like the rate limiter.
func (r *RedisCache) Client() redis.UniversalClient {
	return r.client
}

func (r *RedisCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get returns ErrMiss when the key does not exist. Callers check with errors.Is(err, cache.ErrMiss).
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", fmt.Errorf("failed to get value from cache: %w", err)
	}
	return val, nil
}

func (r *RedisCache) SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return r.Set(ctx, key, string(payload), expiration)
}

// GetJSON decodes the cached value at key into a new T.
func GetJSON[T any](ctx context.Context, r Getter, key string) (*T, error) {
	val, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var obj T
	if err := json.Unmarshal([]byte(val), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	return &obj, nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Unlink(ctx, keys...).Err()
}

// DeletePattern removes every key matching a glob pattern using SCAN, so it
// never blocks the server the way KEYS would.
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*r.opTimeout)
	defer cancel()

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			pipe := r.client.Pipeline()
			for _, k := range keys {
				pipe.Unlink(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("failed to unlink keys: %w", err)
			}
			removed += len(keys)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (r *RedisCache) HealthCheck(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// WithLock runs fn while holding a distributed redsync mutex named lockName.
func (r *RedisCache) WithLock(ctx context.Context, lockName string, ttl time.Duration, fn func() error) error {
	mutex := r.rs.NewMutex(lockName, redsync.WithExpiry(ttl))

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock %s: %w", lockName, err)
	}
	defer func() {
		// A fresh context so an expired request ctx cannot leave the lock held until ttl.
		unlockCtx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			r.log.Error().Err(err).Str("lock", lockName).Msg("failed to unlock mutex")
		}
	}()

	return fn()
}
