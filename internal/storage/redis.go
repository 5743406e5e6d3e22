package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the local area
type RedisConfig struct {
	URL          string
	Prefix       string
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
}

// RedisArea stores the local area in Redis so it survives gateway restarts.
type RedisArea struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisArea connects to Redis and verifies the connection
func NewRedisArea(ctx context.Context, cfg RedisConfig) (*RedisArea, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAreaFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisAreaFromClient wraps an existing client
func NewRedisAreaFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisArea {
	if prefix == "" {
		prefix = "portal:local"
	}
	return &RedisArea{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisArea) Name() string {
	return "local"
}

func (r *RedisArea) Get(ctx context.Context, clientID, key string) (string, error) {
	val, err := r.client.Get(ctx, namespaced(r.prefix, clientID, key)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisArea) Set(ctx context.Context, clientID, key, value string) error {
	if err := r.client.Set(ctx, namespaced(r.prefix, clientID, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *RedisArea) Delete(ctx context.Context, clientID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = namespaced(r.prefix, clientID, k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (r *RedisArea) Keys(ctx context.Context, clientID string) ([]string, error) {
	prefix := clientPrefix(r.prefix, clientID)
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, stripPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	return keys, nil
}

func (r *RedisArea) Clear(ctx context.Context, clientID string) error {
	keys, err := r.Keys(ctx, clientID)
	if err != nil {
		return err
	}
	return r.Delete(ctx, clientID, keys...)
}

// Ping reports whether Redis is reachable
func (r *RedisArea) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisArea) Close() error {
	return r.client.Close()
}
