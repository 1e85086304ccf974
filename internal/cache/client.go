// Package cache provides the key/value cache used for query embeddings.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Client is a byte-valued cache shared by query embedders. Keys are
// colon-separated (see Key) so whole namespaces can be dropped at once.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl keeps the entry until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	Driver     string // memory or redis
	MaxEntries int
	Redis      RedisConfig
}

// NewClient builds the configured cache backend.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryClient(cfg.MaxEntries), nil
	case "redis":
		return NewRedisClient(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}
}

// Key joins key segments with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
