// Package cache provides a namespaced JSON cache over Redis.
//
// Every operation is fail-open: backend or serialization failures are logged
// and reported as a miss (or as a no-op for writes) so that callers degrade
// to their primary data source. The only error surfaced to callers is
// ErrInvalidKey, which signals a programming mistake rather than an outage.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace is used when New is given an empty namespace.
const DefaultNamespace = "app_cache"

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 300 * time.Second

const scanCount = 100

// ErrInvalidKey is returned when a key is empty.
var ErrInvalidKey = errors.New("cache: key must not be empty")

// Stats describes the namespace contents.
type Stats struct {
	KeyCount int `json:"keyCount"`
}

// Cache stores JSON values under "<namespace>:<key>".
type Cache struct {
	client    redis.UniversalClient
	namespace string
	logger    *slog.Logger
}

// New creates a Cache. A nil logger uses slog.Default().
func New(client redis.UniversalClient, namespace string, logger *slog.Logger) *Cache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		client:    client,
		namespace: namespace,
		logger:    logger.With("component", "cache", "namespace", namespace),
	}
}

// Namespace returns the key prefix used by c.
func (c *Cache) Namespace() string {
	return c.namespace
}

func (c *Cache) buildKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey
	}
	return c.namespace + ":" + key, nil
}

// Set stores value as JSON with the given ttl.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	k, err := c.buildKey(key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to encode cache value", "key", key, "error", err)
		return nil
	}

	if err := c.client.Set(ctx, k, data, ttl).Err(); err != nil {
		c.logger.ErrorContext(ctx, "cache set failed", "key", key, "error", err)
		return nil
	}

	c.logger.DebugContext(ctx, "cache set", "key", key, "ttl_seconds", int(ttl.Seconds()))
	return nil
}

// Get decodes the value stored under key into dest and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	k, err := c.buildKey(key)
	if err != nil {
		return false, err
	}

	data, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.DebugContext(ctx, "cache miss", "key", key)
		return false, nil
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "cache get failed", "key", key, "error", err)
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode cache value", "key", key, "error", err)
		return false, nil
	}

	c.logger.DebugContext(ctx, "cache hit", "key", key)
	return true, nil
}

// Delete removes key and reports whether it existed.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	k, err := c.buildKey(key)
	if err != nil {
		return false, err
	}

	n, err := c.client.Del(ctx, k).Result()
	if err != nil {
		c.logger.ErrorContext(ctx, "cache delete failed", "key", key, "error", err)
		return false, nil
	}
	return n > 0, nil
}

// Has reports whether key exists.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	k, err := c.buildKey(key)
	if err != nil {
		return false, err
	}

	n, err := c.client.Exists(ctx, k).Result()
	if err != nil {
		c.logger.ErrorContext(ctx, "cache exists failed", "key", key, "error", err)
		return false, nil
	}
	return n > 0, nil
}

// Clear removes every key in the namespace. Keys outside it are untouched.
func (c *Cache) Clear(ctx context.Context) {
	keys, err := c.scan(ctx, c.namespace+":*")
	if err != nil {
		c.logger.ErrorContext(ctx, "cache clear failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	// DEL in chunks keeps each command bounded on large namespaces.
	for start := 0; start < len(keys); start += scanCount {
		end := min(start+scanCount, len(keys))
		if err := c.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			c.logger.ErrorContext(ctx, "cache clear failed", "error", err)
			return
		}
	}
	c.logger.InfoContext(ctx, "cache cleared", "keys_removed", len(keys))
}

// Keys returns the keys matching pattern within the namespace, without the
// namespace prefix. An empty pattern matches everything.
func (c *Cache) Keys(ctx context.Context, pattern string) []string {
	if pattern == "" {
		pattern = "*"
	}

	keys, err := c.scan(ctx, c.namespace+":"+pattern)
	if err != nil {
		c.logger.ErrorContext(ctx, "cache keys failed", "pattern", pattern, "error", err)
		return []string{}
	}

	prefix := c.namespace + ":"
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	return out
}

// Stats reports how many keys the namespace holds.
func (c *Cache) Stats(ctx context.Context) Stats {
	return Stats{KeyCount: len(c.Keys(ctx, "*"))}
}

func (c *Cache) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, match, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
