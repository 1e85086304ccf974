package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "qemb:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "qemb:b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "other", []byte("3"), 0))

	v, err := c.Get(ctx, "qemb:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, c.DeleteByPrefix(ctx, "qemb:"))
	for _, k := range []string{"qemb:a", "qemb:b"} {
		_, err = c.Get(ctx, k)
		assert.ErrorIs(t, err, ErrCacheMiss, k)
	}
	v, err = c.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)

	require.NoError(t, c.Delete(ctx, "other"))
	_, err = c.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrCacheMiss)
	require.NoError(t, c.Delete(ctx, "never-set"))
}

func TestMemoryClient_SetCopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), v)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	now = now.Add(2 * time.Second)
	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryClient_SweepDropsExpired(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "a", []byte("v"), time.Second))
	require.NoError(t, c.Set(ctx, "b", []byte("v"), time.Hour))

	now = now.Add(time.Minute)
	c.sweep()

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, 1, c.order.Len())
	assert.Contains(t, c.entries, "b")
}

func TestMemoryClient_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(3)
	defer c.Close()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, []byte(k), time.Hour))
	}
	// touching "a" makes "b" the eviction candidate
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "d", []byte("d"), time.Hour))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	for _, k := range []string{"a", "c", "d"} {
		_, err := c.Get(ctx, k)
		assert.NoError(t, err, k)
	}

	// overwriting an existing key does not evict
	require.NoError(t, c.Set(ctx, "d", []byte("y"), time.Hour))
	for _, k := range []string{"a", "c", "d"} {
		_, err := c.Get(ctx, k)
		assert.NoError(t, err, k)
	}
}

func TestMemoryClient_CloseIdempotent(t *testing.T) {
	c := NewMemoryClient(0)
	assert.Equal(t, defaultMaxEntries, c.max)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(Config{Driver: "memory"})
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &MemoryClient{}, c)

	_, err = NewClient(Config{Driver: "memcached"})
	assert.Error(t, err)
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      RedisConfig
		wantAddr string
		wantDB   int
		wantErr  bool
	}{
		{"host and port", RedisConfig{Addr: "cache:6379", DB: 2}, "cache:6379", 2, false},
		{"url", RedisConfig{Addr: "redis://:secret@cache:6380/3"}, "cache:6380", 3, false},
		{"bad url", RedisConfig{Addr: "redis://cache:6379/notadb"}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := redisOptions(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "qemb:model:abc", Key("qemb", "model", "abc"))
}
