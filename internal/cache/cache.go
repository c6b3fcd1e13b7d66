package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Cache is a get/set/invalidate layer over the shared store. It is never
// authoritative: when the store is absent or unreachable every Get is a miss
// and every write is a silent no-op, and callers must recompute from the
// system of record.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New wraps the shared-store client. rdb may be nil for a disabled cache.
func New(rdb *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

// Available reports whether the cache has a backing store at all.
func (c *Cache) Available() bool {
	return c != nil && c.rdb != nil
}

// Get returns the cached value and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if !c.Available() {
		return "", false
	}

	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Debug("cache get failed, treating as miss", "key", key, "error", err)
		return "", false
	}
	return val, true
}

// Set stores the value with a TTL.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !c.Available() {
		return
	}

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Available() || len(keys) == 0 {
		return
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("cache invalidate failed", "keys", keys, "error", err)
	}
}

// InvalidatePrefix removes every key under the prefix without blocking the
// caller: the scan runs cursor-batched in the background, detached from the
// invalidating request's context.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if !c.Available() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var cursor uint64
		pattern := prefix + "*"
		for {
			keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
			if err != nil {
				c.logger.Debug("cache prefix scan failed", "prefix", prefix, "error", err)
				return
			}
			if len(keys) > 0 {
				if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
					c.logger.Debug("cache prefix delete failed", "prefix", prefix, "error", err)
					return
				}
			}
			cursor = next
			if cursor == 0 {
				return
			}
		}
	}()
}

// Cache key layout. Publishing a new record invalidates the list prefix;
// editing or republishing a specific record also invalidates its slug key.
const (
	KeyListPrefix = "content:list:"
	keyRecord     = "content:slug:"
)

// RecordKey is the cache key for a single record by slug.
func RecordKey(slug string) string {
	return keyRecord + slug
}

// ListKey is the cache key for one list-query result.
func ListKey(query string) string {
	return KeyListPrefix + query
}
