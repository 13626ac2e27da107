// Package config provides unified configuration loading for the brand engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the brand engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Lexical       LexicalConfig       `yaml:"lexical"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Artifact      ArtifactConfig      `yaml:"artifact"`
	Resolver      ResolverConfig      `yaml:"resolver"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// CatalogConfig holds catalog source settings.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LexicalConfig holds lexical matcher settings.
type LexicalConfig struct {
	// Threshold is the minimum similarity in [0,1] for a lexical match to
	// contribute a candidate. Brands below it are discarded, not down-ranked.
	Threshold float64 `yaml:"threshold"`
}

// EmbeddingConfig holds embedding backend settings. Backends are selected in
// priority order: remote API when a key is configured, local ONNX encoder when
// a model path is configured, TF-IDF otherwise.
type EmbeddingConfig struct {
	Remote RemoteEmbeddingConfig `yaml:"remote"`
	ONNX   ONNXEmbeddingConfig   `yaml:"onnx"`
	TFIDF  TFIDFConfig           `yaml:"tfidf"`
}

// RemoteEmbeddingConfig holds remote embedding API settings.
type RemoteEmbeddingConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ONNXEmbeddingConfig holds local sentence-encoder settings.
type ONNXEmbeddingConfig struct {
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	LibraryPath   string `yaml:"library_path"`
	MaxSeqLen     int    `yaml:"max_seq_len"`
}

// TFIDFConfig holds statistical vectorizer settings.
type TFIDFConfig struct {
	Dimension int `yaml:"dimension"`
}

// ArtifactConfig holds semantic index artifact persistence settings.
type ArtifactConfig struct {
	Path string `yaml:"path"` // sqlite database file
}

// ResolverConfig holds ranking pipeline settings.
type ResolverConfig struct {
	TopK             int           `yaml:"top_k"`
	ExactScore       float64       `yaml:"exact_score"`
	SemanticWeight   float64       `yaml:"semantic_weight"`
	LexicalWeight    float64       `yaml:"lexical_weight"`
	SemanticFloor    float64       `yaml:"semantic_floor"`
	SemanticK        int           `yaml:"semantic_k"`
	PersonalBoostMax float64       `yaml:"personal_boost_max"`
	CacheResults     bool          `yaml:"cache_results"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
}

// CacheConfig holds cache and profile store settings.
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
			Port:             8087,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			Path: "data/catalog.json",
		},
		Lexical: LexicalConfig{
			Threshold: 0.6,
		},
		Embedding: EmbeddingConfig{
			Remote: RemoteEmbeddingConfig{
				BaseURL:   "https://api.openai.com/v1",
				Model:     "text-embedding-3-small",
				Dimension: 768,
				Timeout:   10 * time.Second,
			},
			ONNX: ONNXEmbeddingConfig{
				MaxSeqLen: 256,
			},
			TFIDF: TFIDFConfig{
				Dimension: 512,
			},
		},
		Artifact: ArtifactConfig{
			Path: "data/brand-engine.db",
		},
		Resolver: ResolverConfig{
			TopK:             5,
			ExactScore:       1.0,
			SemanticWeight:   0.55,
			LexicalWeight:    0.45,
			SemanticFloor:    0.25,
			SemanticK:        10,
			PersonalBoostMax: 0.05,
			CacheResults:     true,
			CacheTTL:         2 * time.Minute,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "brand-engine",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Lexical.Threshold < 0 || c.Lexical.Threshold > 1 {
		return fmt.Errorf("lexical threshold must be in [0,1], got %g", c.Lexical.Threshold)
	}

	if c.Resolver.TopK < 1 || c.Resolver.TopK > 50 {
		return fmt.Errorf("top_k must be between 1 and 50")
	}

	if c.Resolver.SemanticWeight < 0 || c.Resolver.LexicalWeight < 0 {
		return fmt.Errorf("strategy weights must be non-negative")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Embedding.TFIDF.Dimension < 16 {
		return fmt.Errorf("tfidf dimension must be at least 16")
	}

	return nil
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
		cfg.Catalog.Path = v
	}

	if v := os.Getenv("ARTIFACT_DB_PATH"); v != "" {
		cfg.Artifact.Path = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.Remote.APIKey = v
	}

	if v := os.Getenv("EMBEDDING_API_URL"); v != "" {
		cfg.Embedding.Remote.BaseURL = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Remote.Model = v
	}

	if v := os.Getenv("ONNX_MODEL_PATH"); v != "" {
		cfg.Embedding.ONNX.ModelPath = v
	}

	if v := os.Getenv("ONNX_TOKENIZER_PATH"); v != "" {
		cfg.Embedding.ONNX.TokenizerPath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
