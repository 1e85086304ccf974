// Package config provides unified configuration loading for the medicine finder.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the medicine finder.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Cache         CacheConfig         `yaml:"cache"`
	Ranking       RankingConfig       `yaml:"ranking"`
	Results       ResultsConfig       `yaml:"results"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// CatalogConfig describes where the inventory comes from and where its
// normalized snapshot lives.
type CatalogConfig struct {
	SourcePath string              `yaml:"source_path"`
	CacheDir   string              `yaml:"cache_dir"`
	Snapshot   SnapshotConfig      `yaml:"snapshot"`
	Columns    map[string][]string `yaml:"columns"`
}

// SnapshotConfig selects the snapshot persistence driver.
type SnapshotConfig struct {
	Driver   string         `yaml:"driver"` // file, sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Provider  string     `yaml:"provider"` // onnx, http or hash
	Model     string     `yaml:"model"`
	Dimension int        `yaml:"dimension"`
	BatchSize int        `yaml:"batch_size"`
	CacheDir  string     `yaml:"cache_dir"`
	ONNX      ONNXConfig `yaml:"onnx"`
	HTTP      HTTPConfig `yaml:"http"`
}

// ONNXConfig points at the local sentence model.
type ONNXConfig struct {
	LibraryPath   string `yaml:"library_path"`
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	MaxSeqLen     int    `yaml:"max_seq_len"`
}

// HTTPConfig holds settings for a remote embeddings endpoint.
type HTTPConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig holds query-embedding cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// RankingConfig holds the tunables of store ranking.
type RankingConfig struct {
	TopK                  int           `yaml:"top_k"`
	SimilarityThreshold   float64       `yaml:"similarity_threshold"`
	AlternativeCandidates int           `yaml:"alternative_candidates"`
	PriceJumpRatio        float64       `yaml:"price_jump_ratio"`
	Weights               WeightsConfig `yaml:"weights"`
	DryRun                bool          `yaml:"dry_run"`
}

// WeightsConfig holds the composite score weights.
type WeightsConfig struct {
	Availability float64 `yaml:"availability"`
	Price        float64 `yaml:"price"`
	Distance     float64 `yaml:"distance"`
}

// ResultsConfig controls the per-request result side-log.
type ResultsConfig struct {
	LogEnabled bool   `yaml:"log_enabled"`
	LogDir     string `yaml:"log_dir"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		cfg.resolvePaths(path)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   60 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			SourcePath: "final_realistic.csv",
			CacheDir:   "data",
			Snapshot: SnapshotConfig{
				Driver: "file",
				SQLite: SQLiteConfig{
					Path:         "data/medfinder.db",
					MaxOpenConns: 1,
					JournalMode:  "WAL",
				},
				Postgres: PostgresConfig{
					MaxOpenConns:    10,
					MaxIdleConns:    2,
					ConnMaxLifetime: 5 * time.Minute,
				},
			},
		},
		Embedding: EmbeddingConfig{
			Provider:  "onnx",
			Model:     "all-MiniLM-L6-v2",
			Dimension: 384,
			BatchSize: 64,
			CacheDir:  "data",
			ONNX: ONNXConfig{
				ModelPath:     "models/all-MiniLM-L6-v2/model.onnx",
				TokenizerPath: "models/all-MiniLM-L6-v2/tokenizer.json",
				MaxSeqLen:     128,
			},
			HTTP: HTTPConfig{
				BaseURL: "https://openrouter.ai/api/v1",
				Timeout: 60 * time.Second,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        30 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
			},
		},
		Ranking: RankingConfig{
			TopK:                  5,
			SimilarityThreshold:   0.75,
			AlternativeCandidates: 2,
			PriceJumpRatio:        1.5,
			Weights: WeightsConfig{
				Availability: 0.6,
				Price:        0.25,
				Distance:     0.15,
			},
		},
		Results: ResultsConfig{
			LogEnabled: true,
			LogDir:     "logs",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "console",
			ServiceName: "medicine-finder",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if strings.TrimSpace(c.Catalog.SourcePath) == "" {
		return fmt.Errorf("catalog source_path is required")
	}

	switch c.Catalog.Snapshot.Driver {
	case "file", "sqlite":
	case "postgres":
		if c.Catalog.Snapshot.Postgres.DSN == "" {
			return fmt.Errorf("postgres snapshot driver requires a dsn")
		}
	default:
		return fmt.Errorf("invalid snapshot driver: %s", c.Catalog.Snapshot.Driver)
	}

	switch c.Embedding.Provider {
	case "onnx", "http", "hash":
	default:
		return fmt.Errorf("invalid embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	r := c.Ranking
	if r.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1")
	}
	if r.SimilarityThreshold < -1 || r.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be between -1 and 1")
	}
	if r.AlternativeCandidates < 1 {
		return fmt.Errorf("alternative_candidates must be at least 1")
	}
	if r.PriceJumpRatio <= 0 {
		return fmt.Errorf("price_jump_ratio must be positive")
	}

	w := r.Weights
	for _, v := range []float64{w.Availability, w.Price, w.Distance} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("ranking weights must be non-negative")
		}
	}
	if w.Availability+w.Price+w.Distance <= 0 {
		return fmt.Errorf("ranking weights must not all be zero")
	}

	return nil
}

// SnapshotDSN returns the connection string for the configured SQL snapshot driver.
func (c *Config) SnapshotDSN() string {
	if c.Catalog.Snapshot.Driver == "sqlite" {
		return c.Catalog.Snapshot.SQLite.Path
	}
	return c.Catalog.Snapshot.Postgres.DSN
}

// EmbeddingCacheDir returns the directory holding per-store embedding caches.
func (c *Config) EmbeddingCacheDir() string {
	if c.Embedding.CacheDir != "" {
		return c.Embedding.CacheDir
	}
	return c.Catalog.CacheDir
}

func (c *Config) resolvePaths(configPath string) {
	c.Catalog.SourcePath = ResolveRelativePath(configPath, c.Catalog.SourcePath)
	c.Catalog.CacheDir = ResolveRelativePath(configPath, c.Catalog.CacheDir)
	if c.Embedding.CacheDir != "" {
		c.Embedding.CacheDir = ResolveRelativePath(configPath, c.Embedding.CacheDir)
	}
	if c.Embedding.ONNX.ModelPath != "" {
		c.Embedding.ONNX.ModelPath = ResolveRelativePath(configPath, c.Embedding.ONNX.ModelPath)
	}
	if c.Embedding.ONNX.TokenizerPath != "" {
		c.Embedding.ONNX.TokenizerPath = ResolveRelativePath(configPath, c.Embedding.ONNX.TokenizerPath)
	}
	if c.Results.LogDir != "" {
		c.Results.LogDir = ResolveRelativePath(configPath, c.Results.LogDir)
	}
	// ":memory:" and "file:" URIs are DSNs, not paths.
	if p := c.Catalog.Snapshot.SQLite.Path; p != "" && p != ":memory:" && !strings.HasPrefix(p, "file:") {
		c.Catalog.Snapshot.SQLite.Path = ResolveRelativePath(configPath, p)
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("CATALOG_PATH"); v != "" {
		cfg.Catalog.SourcePath = v
	}

	if v := os.Getenv("CATALOG_CACHE_DIR"); v != "" {
		cfg.Catalog.CacheDir = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Catalog.Snapshot.Driver = "sqlite"
			cfg.Catalog.Snapshot.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Catalog.Snapshot.Driver = "postgres"
			cfg.Catalog.Snapshot.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.HTTP.APIKey = v
	}

	if v := os.Getenv("EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.HTTP.BaseURL = v
	}

	if v := os.Getenv("ORT_LIBRARY_PATH"); v != "" {
		cfg.Embedding.ONNX.LibraryPath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("RESULTS_LOG_DIR"); v != "" {
		cfg.Results.LogDir = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if targetPath == "" || filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
