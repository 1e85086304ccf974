package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisNamespace = "medfinder:"
	scanBatch             = 256
)

// RedisConfig holds Redis connection settings. Addr may also be a
// redis:// URL, in which case Password and DB come from the URL.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// Namespace is prepended to every key; defaults to "medfinder:".
	Namespace string
}

// RedisClient is a Client backed by Redis, shared across API replicas.
type RedisClient struct {
	rdb *redis.Client
	ns  string
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	ns := cfg.Namespace
	if ns == "" {
		ns = defaultRedisNamespace
	}
	return &RedisClient{rdb: rdb, ns: ns}, nil
}

func redisOptions(cfg RedisConfig) (*redis.Options, error) {
	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		opts, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}, nil
}

// Get implements Client.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, c.ns+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set implements Client.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.ns+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Client.
func (c *RedisClient) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Unlink(ctx, c.ns+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix unlinks matching keys one SCAN page at a time.
func (c *RedisClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	match := c.ns + prefix + "*"
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", match, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete by prefix %s: %w", prefix, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close implements Client.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
