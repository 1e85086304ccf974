// Package app assembles a ranking session and its collaborators from
// configuration. Both the API server and the CLI start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spherical-ai/medicine-finder/internal/cache"
	"github.com/spherical-ai/medicine-finder/internal/catalog"
	"github.com/spherical-ai/medicine-finder/internal/config"
	"github.com/spherical-ai/medicine-finder/internal/embedding"
	"github.com/spherical-ai/medicine-finder/internal/monitoring"
	"github.com/spherical-ai/medicine-finder/internal/observability"
	"github.com/spherical-ai/medicine-finder/internal/ranking"
	"github.com/spherical-ai/medicine-finder/internal/scoring"
	"github.com/spherical-ai/medicine-finder/internal/storage"
)

// Services is a wired ranking session plus the resources it borrows.
type Services struct {
	Config  *config.Config
	Logger  *observability.Logger
	Session *ranking.Session

	cache cache.Client
}

// New builds every collaborator named by cfg and returns an uninitialized
// session. The catalog is not read until the first Warm or Rank call.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Services, error) {
	logger = observability.OrNop(logger)
	opts := RankingOptions(cfg)

	snapshots, err := OpenSnapshotStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := ranking.Dependencies{
		SourcePath:   cfg.Catalog.SourcePath,
		Columns:      catalog.DefaultColumnCandidates().WithOverrides(cfg.Catalog.Columns),
		Snapshots:    snapshots,
		ResultLogger: ResultLogger(cfg, logger),
		Logger:       logger,
	}

	var queryCache cache.Client
	if !opts.DryRun {
		items := embedding.OpenWithFallback(ctx, ProviderConfig(cfg), logger)
		queryCache = OpenCache(cfg, logger)

		deps.Embedder = items
		deps.QueryEmbedder = embedding.NewCachedEmbedder(items, queryCache, cfg.Cache.TTL, logger)
		deps.EmbeddingCache = embedding.NewCacheDir(cfg.EmbeddingCacheDir())
	}

	session, err := ranking.NewSession(opts, deps)
	if err != nil {
		_ = snapshots.Close()
		if queryCache != nil {
			_ = queryCache.Close()
		}
		return nil, err
	}

	logger.Info().
		Str("source", cfg.Catalog.SourcePath).
		Str("snapshot_driver", cfg.Catalog.Snapshot.Driver).
		Str("embedding_provider", cfg.Embedding.Provider).
		Str("cache_driver", cfg.Cache.Driver).
		Bool("dry_run", opts.DryRun).
		Msg("ranking session configured")

	return &Services{
		Config:  cfg,
		Logger:  logger,
		Session: session,
		cache:   queryCache,
	}, nil
}

// Close releases the session and the query cache.
func (s *Services) Close() error {
	errs := []error{s.Session.Close()}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	return errors.Join(errs...)
}

// RankingOptions maps the ranking section onto session options.
func RankingOptions(cfg *config.Config) ranking.Options {
	r := cfg.Ranking
	return ranking.Options{
		TopK:                  r.TopK,
		SimilarityThreshold:   r.SimilarityThreshold,
		AlternativeCandidates: r.AlternativeCandidates,
		PriceJumpRatio:        r.PriceJumpRatio,
		Weights: scoring.Weights{
			Availability: r.Weights.Availability,
			Price:        r.Weights.Price,
			Distance:     r.Weights.Distance,
		},
		DryRun: r.DryRun,
	}
}

// ProviderConfig maps the embedding section onto provider settings.
func ProviderConfig(cfg *config.Config) embedding.ProviderConfig {
	e := cfg.Embedding
	return embedding.ProviderConfig{
		Provider:  e.Provider,
		Model:     e.Model,
		Dimension: e.Dimension,
		BatchSize: e.BatchSize,
		ONNX: embedding.ONNXConfig{
			LibraryPath:   e.ONNX.LibraryPath,
			ModelPath:     e.ONNX.ModelPath,
			TokenizerPath: e.ONNX.TokenizerPath,
			MaxSeqLen:     e.ONNX.MaxSeqLen,
		},
		HTTP: embedding.HTTPConfig{
			BaseURL: e.HTTP.BaseURL,
			APIKey:  e.HTTP.APIKey,
			Timeout: e.HTTP.Timeout,
		},
	}
}

// OpenSnapshotStore returns the configured catalog snapshot store.
func OpenSnapshotStore(ctx context.Context, cfg *config.Config) (catalog.SnapshotStore, error) {
	snap := cfg.Catalog.Snapshot
	switch snap.Driver {
	case "file":
		return catalog.NewFileSnapshotStore(cfg.Catalog.CacheDir), nil
	case "sqlite", "postgres":
		opts := storage.Options{
			MaxOpenConns:    snap.Postgres.MaxOpenConns,
			MaxIdleConns:    snap.Postgres.MaxIdleConns,
			ConnMaxLifetime: snap.Postgres.ConnMaxLifetime,
		}
		if snap.Driver == "sqlite" {
			opts = storage.Options{
				MaxOpenConns: snap.SQLite.MaxOpenConns,
				JournalMode:  snap.SQLite.JournalMode,
			}
			if err := os.MkdirAll(filepath.Dir(snap.SQLite.Path), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}

		db, err := storage.Open(ctx, snap.Driver, cfg.SnapshotDSN(), opts)
		if err != nil {
			return nil, fmt.Errorf("open snapshot database: %w", err)
		}
		repo, err := storage.NewSnapshotRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare snapshot table: %w", err)
		}
		return catalog.NewSQLSnapshotStore(repo, db.Close), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot driver: %s", snap.Driver)
	}
}

// OpenCache returns the configured query-embedding cache. An unreachable
// Redis degrades to the in-memory cache.
func OpenCache(cfg *config.Config, logger *observability.Logger) cache.Client {
	c, err := cache.NewClient(cache.Config{
		Driver:     cfg.Cache.Driver,
		MaxEntries: cfg.Cache.MaxEntries,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		},
	})
	if err != nil {
		observability.OrNop(logger).Warn().
			Err(err).
			Str("driver", cfg.Cache.Driver).
			Msg("query cache unavailable, using in-memory cache")
		return cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
	return c
}

// ResultLogger returns the file result logger, or a no-op when disabled.
func ResultLogger(cfg *config.Config, logger *observability.Logger) monitoring.ResultLogger {
	if !cfg.Results.LogEnabled || cfg.Results.LogDir == "" {
		return monitoring.NopResultLogger{}
	}
	return monitoring.NewFileResultLogger(cfg.Results.LogDir, logger)
}
