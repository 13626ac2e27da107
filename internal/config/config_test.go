package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8087, cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Lexical.Threshold)
	assert.Equal(t, 5, cfg.Resolver.TopK)
	assert.Equal(t, 1.0, cfg.Resolver.ExactScore)
	assert.Equal(t, 0.55, cfg.Resolver.SemanticWeight)
	assert.Equal(t, 0.45, cfg.Resolver.LexicalWeight)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
lexical:
  threshold: 0.7
resolver:
  top_k: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.7, cfg.Lexical.Threshold)
	assert.Equal(t, 3, cfg.Resolver.TopK)
	// Untouched fields keep their defaults.
	assert.Equal(t, "data/catalog.json", cfg.Catalog.Path)
	assert.Equal(t, 2*time.Minute, cfg.Resolver.CacheTTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("CATALOG_PATH", "/tmp/catalog.json")
	t.Setenv("EMBEDDING_API_KEY", "sk-test")
	t.Setenv("REDIS_URL", "redis://localhost:6390")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/tmp/catalog.json", cfg.Catalog.Path)
	assert.Equal(t, "sk-test", cfg.Embedding.Remote.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "localhost:6390", cfg.Cache.Redis.Addr)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"threshold above one", func(c *Config) { c.Lexical.Threshold = 1.5 }},
		{"zero top_k", func(c *Config) { c.Resolver.TopK = 0 }},
		{"negative weight", func(c *Config) { c.Resolver.SemanticWeight = -1 }},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"tiny tfidf dimension", func(c *Config) { c.Embedding.TFIDF.Dimension = 4 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
