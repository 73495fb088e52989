// Package cache keeps short-lived read models in Redis.
// A nil *Cache is valid and behaves as an always-empty cache, so callers do
// not branch on whether REDIS_ADDR was configured.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/metrics"
	"github.com/goccy/go-json"
	"github.com/redis/rueidis"
)

// KeyPrefix namespaces every key the dashboard writes
const KeyPrefix = "pancydash:"

// Cache is a JSON value cache on top of a rueidis client
type Cache struct {
	client rueidis.Client
}

// New connects to Redis at addr
func New(addr, password string) (*Cache, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		ClientName:   "pancydash",
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client for %s: %w", addr, err)
	}
	return &Cache{client: client}, nil
}

// NewWithClient wraps an existing client
func NewWithClient(client rueidis.Client) *Cache {
	return &Cache{client: client}
}

// Close releases the connection
func (c *Cache) Close() {
	if c != nil {
		c.client.Close()
	}
}

// GetJSON decodes the value at key into dst.
// It returns false, nil on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil {
		return false, nil
	}

	raw, err := c.client.Do(ctx, c.client.B().Get().Key(KeyPrefix+key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			metrics.CacheOps.WithLabelValues("miss").Inc()
			return false, nil
		}
		metrics.CacheOps.WithLabelValues("error").Inc()
		return false, fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.CacheOps.WithLabelValues("error").Inc()
		return false, fmt.Errorf("invalid cached value for %s: %w", key, err)
	}
	metrics.CacheOps.WithLabelValues("hit").Inc()
	return true, nil
}

// SetJSON stores v at key for ttl
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	cmd := c.client.B().Set().Key(KeyPrefix + key).Value(rueidis.BinaryString(raw)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		metrics.CacheOps.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to set %s in Redis: %w", key, err)
	}
	metrics.CacheOps.WithLabelValues("set").Inc()
	return nil
}

// Delete drops key
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Do(ctx, c.client.B().Del().Key(KeyPrefix+key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete %s from Redis: %w", key, err)
	}
	return nil
}
