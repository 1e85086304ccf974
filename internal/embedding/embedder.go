// Package embedding turns medicine text into L2-normalized vectors and
// caches them per store and per query.
package embedding

import (
	"context"
	"fmt"
)

// Embedder defines the interface for embedding generation. Returned vectors
// are L2-normalized so a dot product is a cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}

// LoadError reports that a model-backed embedder could not be constructed.
// Callers recover from it by falling back to the hash embedder.
type LoadError struct {
	Provider string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s embedder: %v", e.Provider, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Ensure implementations satisfy interface.
var (
	_ Embedder = (*Client)(nil)
	_ Embedder = (*HashEmbedder)(nil)
	_ Embedder = (*ONNXEmbedder)(nil)
	_ Embedder = (*CachedEmbedder)(nil)
)

func embedSingle(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || vecs[0] == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}
