package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "wayfarer:conversation:"

type redisOptions struct {
	keyPrefix string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*redisOptions)

// WithKeyPrefix namespaces conversation keys, e.g. per deployment.
func WithKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		o.keyPrefix = prefix
	}
}

// RedisBackend stores each conversation under its own string key.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects using a redis:// URL and verifies the connection.
func NewRedisBackend(ctx context.Context, redisURL string, opts ...RedisOption) (*RedisBackend, error) {
	redisOpts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBackendFromClient(client, opts...), nil
}

func NewRedisBackendFromClient(client *redis.Client, opts ...RedisOption) *RedisBackend {
	o := &redisOptions{keyPrefix: defaultRedisKeyPrefix}
	for _, opt := range opts {
		opt(o)
	}
	return &RedisBackend{client: client, prefix: o.keyPrefix}
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return raw, nil
}

func (b *RedisBackend) Save(ctx context.Context, key string, record []byte) error {
	if err := b.client.Set(ctx, b.prefix+key, record, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (b *RedisBackend) Mode() string { return "redis" }

func (b *RedisBackend) Close() error { return b.client.Close() }
