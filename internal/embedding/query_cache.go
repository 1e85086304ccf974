package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/spherical-ai/medicine-finder/internal/cache"
	"github.com/spherical-ai/medicine-finder/internal/observability"
)

// queryNamespace prefixes every query-embedding cache key.
const queryNamespace = "qemb"

// Purger drops cached embeddings so later calls recompute them.
type Purger interface {
	Purge(ctx context.Context) error
}

// CachedEmbedder memoizes embeddings of query texts in a cache.Client.
// Cache failures are logged and never surface to the caller.
type CachedEmbedder struct {
	inner  Embedder
	cache  cache.Client
	ttl    time.Duration
	logger *observability.Logger
}

var _ Purger = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with a query-embedding cache.
func NewCachedEmbedder(inner Embedder, c cache.Client, ttl time.Duration, logger *observability.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: observability.OrNop(logger),
	}
}

// Unwrap returns the wrapped embedder.
func (c *CachedEmbedder) Unwrap() Embedder { return c.inner }

// Embed implements Embedder, serving hits from the cache and embedding only misses.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, t := range texts {
		if vec, ok := c.lookup(ctx, t); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		out[missIdx[j]] = vec
		c.store(ctx, missTexts[j], vec)
	}
	return out, nil
}

// EmbedSingle implements Embedder.
func (c *CachedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

// Model implements Embedder.
func (c *CachedEmbedder) Model() string { return c.inner.Model() }

// Dimension implements Embedder.
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// Purge drops every cached query embedding, for all models.
func (c *CachedEmbedder) Purge(ctx context.Context) error {
	if err := c.cache.DeleteByPrefix(ctx, queryNamespace+":"); err != nil {
		return fmt.Errorf("purge query embeddings: %w", err)
	}
	return nil
}

// Close releases the wrapped embedder. The cache client is owned by the caller.
func (c *CachedEmbedder) Close() error { return Close(c.inner) }

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cache.Key(queryNamespace, c.inner.Model(), hex.EncodeToString(sum[:]))
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	key := c.key(text)
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Debug().Err(err).Msg("query embedding cache read failed")
		}
		return nil, false
	}
	rows, err := Unpack(data, len(data)/4)
	if err != nil || len(rows) != 1 || (c.inner.Dimension() > 0 && len(rows[0]) != c.inner.Dimension()) {
		// Unreadable entries are dropped so the fresh vector replaces them.
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Debug().Err(err).Msg("query embedding cache delete failed")
		}
		return nil, false
	}
	return rows[0], true
}

func (c *CachedEmbedder) store(ctx context.Context, text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.cache.Set(ctx, c.key(text), Pack([][]float32{vec}), c.ttl); err != nil {
		c.logger.Debug().Err(err).Msg("query embedding cache write failed")
	}
}
