package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Ranking.TopK)
	assert.Equal(t, 0.75, cfg.Ranking.SimilarityThreshold)
	assert.Equal(t, 2, cfg.Ranking.AlternativeCandidates)
	assert.Equal(t, 1.5, cfg.Ranking.PriceJumpRatio)
	assert.Equal(t, 0.6, cfg.Ranking.Weights.Availability)
	assert.Equal(t, 0.25, cfg.Ranking.Weights.Price)
	assert.Equal(t, 0.15, cfg.Ranking.Weights.Distance)
}

func TestLoad_YAMLOverlayAndRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medfinder.yaml")
	yml := `
catalog:
  source_path: inventory.csv
  cache_dir: cache
ranking:
  top_k: 3
  similarity_threshold: 0.8
embedding:
  provider: hash
  dimension: 32
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "inventory.csv"), cfg.Catalog.SourcePath)
	assert.Equal(t, filepath.Join(dir, "cache"), cfg.Catalog.CacheDir)
	assert.Equal(t, 3, cfg.Ranking.TopK)
	assert.Equal(t, 0.8, cfg.Ranking.SimilarityThreshold)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	// untouched defaults survive the overlay
	assert.Equal(t, 0.6, cfg.Ranking.Weights.Availability)
}

func TestLoad_ResolvesSnapshotDatabasePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want func(dir string) string
	}{
		{"relative", "data/snap.db", func(dir string) string { return filepath.Join(dir, "data", "snap.db") }},
		{"absolute", "/var/lib/medfinder/snap.db", func(string) string { return "/var/lib/medfinder/snap.db" }},
		{"in memory", ":memory:", func(string) string { return ":memory:" }},
		{"uri", "file:snap.db?cache=shared", func(string) string { return "file:snap.db?cache=shared" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "medfinder.yaml")
			yml := "catalog:\n  snapshot:\n    driver: sqlite\n    sqlite:\n      path: \"" + tt.path + "\"\n"
			require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want(dir), cfg.Catalog.Snapshot.SQLite.Path)
			assert.Equal(t, tt.want(dir), cfg.SnapshotDSN())
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/med?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("EMBEDDING_PROVIDER", "hash")
	t.Setenv("CATALOG_PATH", "/srv/stock.tsv")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Catalog.Snapshot.Driver)
	assert.Equal(t, "postgres://u:p@localhost/med?sslmode=disable", cfg.SnapshotDSN())
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, "/srv/stock.tsv", cfg.Catalog.SourcePath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad snapshot driver", func(c *Config) { c.Catalog.Snapshot.Driver = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Catalog.Snapshot.Driver = "postgres" }},
		{"bad provider", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"zero top k", func(c *Config) { c.Ranking.TopK = 0 }},
		{"threshold out of range", func(c *Config) { c.Ranking.SimilarityThreshold = 1.5 }},
		{"no candidates", func(c *Config) { c.Ranking.AlternativeCandidates = 0 }},
		{"negative weight", func(c *Config) { c.Ranking.Weights.Price = -0.1 }},
		{"zero weights", func(c *Config) { c.Ranking.Weights = WeightsConfig{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEmbeddingCacheDir_FallsBackToCatalog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.CacheDir = ""
	cfg.Catalog.CacheDir = "/var/lib/medfinder"
	assert.Equal(t, "/var/lib/medfinder", cfg.EmbeddingCacheDir())
}
