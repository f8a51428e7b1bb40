package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// ErrCacheMiss is returned by Get and GetOrSet loaders when the key is absent
// or holds the null marker.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// nullMarker caches the absence of a value so a missing record cannot stampede
// the database.
const nullMarker = "__null__"

// Cache is the read-side cache contract used across the application layer.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error
	Ping(ctx context.Context) error
}

type redisCache struct {
	client       *Client
	logger       logging.Logger
	prefix       string
	defaultTTL   time.Duration
	nullCacheTTL time.Duration
	group        singleflight.Group
}

// CacheOption customizes a cache instance.
type CacheOption func(*redisCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// NewCache builds the JSON cache on top of a client.  The default key prefix
// is "arconte:".
func NewCache(client *Client, log logging.Logger, opts ...CacheOption) Cache {
	c := &redisCache{
		client:       client,
		logger:       log.Named("cache"),
		prefix:       "arconte:",
		defaultTTL:   15 * time.Minute,
		nullCacheTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expirations +/-10% so hot keys do not expire in lockstep.
func (c *redisCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.rdb.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	if string(data) == nullMarker {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode cached value")
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode cache value")
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.rdb.Set(ctx, c.fullKey(key), data, c.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache value")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.rdb.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
	}
	return nil
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.rdb.Exists(ctx, c.fullKey(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to check cache key")
	}
	return n > 0, nil
}

// GetOrSet reads through the cache.  Concurrent callers for the same key
// share one loader execution; a loader not-found result caches the null
// marker briefly.
func (c *redisCache) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.IsNotFound(err) {
		c.logger.Warn("cache read failed, loading from source", logging.Err(err))
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		v, err := loader(ctx)
		if err != nil {
			if errors.IsNotFound(err) {
				c.cacheNull(ctx, key)
			}
			return nil, err
		}
		if err := c.Set(ctx, key, v, ttl); err != nil {
			c.logger.Warn("failed to populate cache", logging.Err(err))
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	// Round-trip through JSON to fill dest uniformly for shared and direct
	// loader results.
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode loaded value")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode loaded value")
	}
	return nil
}

func (c *redisCache) cacheNull(ctx context.Context, key string) {
	if err := c.client.rdb.Set(ctx, c.fullKey(key), nullMarker, c.nullCacheTTL).Err(); err != nil {
		c.logger.Warn("failed to cache null marker", logging.Err(err))
	}
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
