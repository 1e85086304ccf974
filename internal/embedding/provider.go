package embedding

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spherical-ai/medicine-finder/internal/observability"
)

// ProviderConfig selects and configures an embedding strategy.
type ProviderConfig struct {
	Provider  string // onnx, http or hash
	Model     string
	Dimension int
	BatchSize int
	ONNX      ONNXConfig
	HTTP      HTTPConfig
}

// HTTPConfig configures the remote embeddings endpoint.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Open constructs the configured embedder. Model-backed strategies report
// construction failures as *LoadError.
func Open(ctx context.Context, cfg ProviderConfig) (Embedder, error) {
	switch cfg.Provider {
	case "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "onnx":
		onnxCfg := cfg.ONNX
		if onnxCfg.Model == "" {
			onnxCfg.Model = cfg.Model
		}
		if onnxCfg.Dimension == 0 {
			onnxCfg.Dimension = cfg.Dimension
		}
		e, err := NewONNXEmbedder(onnxCfg)
		if err != nil {
			return nil, &LoadError{Provider: "onnx", Err: err}
		}
		return e, nil
	case "http":
		c, err := NewClient(ClientConfig{
			APIKey:    cfg.HTTP.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.HTTP.BaseURL,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.HTTP.Timeout,
		})
		if err != nil {
			return nil, &LoadError{Provider: "http", Err: err}
		}
		return c, nil
	default:
		return nil, &LoadError{Provider: cfg.Provider, Err: fmt.Errorf("unknown provider")}
	}
}

// OpenWithFallback is Open that degrades to the hash embedder on failure,
// logging the reason. It never fails.
func OpenWithFallback(ctx context.Context, cfg ProviderConfig, logger *observability.Logger) Embedder {
	e, err := Open(ctx, cfg)
	if err == nil {
		return e
	}
	observability.OrNop(logger).Warn().
		Err(err).
		Str("provider", cfg.Provider).
		Str("fallback", HashModel).
		Msg("embedding model unavailable, using deterministic hash embeddings")
	return NewHashEmbedder(DefaultHashDimension)
}

// Close releases e if it holds resources.
func Close(e Embedder) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
