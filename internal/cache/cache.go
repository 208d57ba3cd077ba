package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Provider is a TTL key-value store shared by the weather and LLM clients.
// Both operations are best-effort: a backend error degrades to a miss or a
// dropped write rather than failing the caller.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// RedisProvider implements Provider on top of a Redis instance.
type RedisProvider struct {
	client *redis.Client
	log    *zap.Logger
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis creates a Redis-backed cache provider. The connection is lazy;
// no ping is required before Get/Set.
func NewRedis(opts Options, log *zap.Logger) *RedisProvider {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisProvider{client: rdb, log: log}
}

// Ping tests the connection. Callers may use it for startup diagnostics, but
// the provider works without it.
func (p *RedisProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// Get returns the cached value and true on a hit. Backend errors are logged
// and reported as a miss.
func (p *RedisProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := p.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.log.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

// Set stores value under key with the given TTL. Write failures only waste a
// future API call, so they are logged and swallowed.
func (p *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := p.client.Set(ctx, key, value, ttl).Err(); err != nil {
		p.log.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}
