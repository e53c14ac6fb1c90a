// Package cache wraps a Redis client with JSON helpers for read-through caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

// Client holds the Redis client
type Client struct {
	Redis *redis.Client
	log   logger.Logger
}

// NewClient creates a new Redis client and checks the connection.
func NewClient(redisURL string, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Default()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}

	log.Info("✅ Redis connected", "addr", opts.Addr)

	return &Client{Redis: client, log: log}, nil
}

// New wraps an existing go-redis client.
func New(rdb *redis.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{Redis: rdb, log: log}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.Redis.Close()
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.Redis.Ping(ctx).Err()
}

// SetJSON stores v encoded as JSON with expiration.
func (c *Client) SetJSON(ctx context.Context, key string, v any, expiration time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return c.Redis.Set(ctx, key, b, expiration).Err()
}

// GetJSON decodes the cached JSON at key into dst. A missing key returns ErrMiss.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) error {
	b, err := c.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.Redis.Del(ctx, keys...).Err()
}

// DeletePattern deletes all keys matching a pattern using SCAN.
func (c *Client) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	var deletedCount int

	for {
		keys, next, err := c.Redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.Redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
			deletedCount += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.log.Debug("deleted cache keys", "pattern", pattern, "count", deletedCount)
	return nil
}

// GetMulti gets multiple raw values in one pipeline. Missing keys come back as "".
func (c *Client) GetMulti(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}

	pipe := c.Redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	results := make([]string, len(keys))
	for i, cmd := range cmds {
		val, err := cmd.Result()
		switch {
		case errors.Is(err, redis.Nil):
			results[i] = ""
		case err != nil:
			return nil, fmt.Errorf("failed to get key %s: %w", keys[i], err)
		default:
			results[i] = val
		}
	}
	return results, nil
}

// SetMultiJSON stores several JSON values in one pipeline.
func (c *Client) SetMultiJSON(ctx context.Context, pairs map[string]any, expiration time.Duration) error {
	if len(pairs) == 0 {
		return nil
	}

	pipe := c.Redis.Pipeline()
	for key, v := range pairs {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
		}
		pipe.Set(ctx, key, b, expiration)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute pipeline: %w", err)
	}
	return nil
}

// TTL returns the time-to-live for a key
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.Redis.TTL(ctx, key).Result()
}
