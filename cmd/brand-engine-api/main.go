// Package main provides the Brand Resolution Engine API server entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/brendbot/brand-engine/internal/artifact"
	"github.com/brendbot/brand-engine/internal/cache"
	"github.com/brendbot/brand-engine/internal/catalog"
	"github.com/brendbot/brand-engine/internal/config"
	"github.com/brendbot/brand-engine/internal/lexical"
	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/profile"
	"github.com/brendbot/brand-engine/internal/resolver"
	"github.com/brendbot/brand-engine/internal/semantic"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("catalog", cfg.Catalog.Path).
		Str("cache", cfg.Cache.Driver).
		Msg("Starting Brand Resolution Engine API")

	// A catalog that fails to load is fatal: without it nothing can resolve.
	snap, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("Catalog load failed")
	}
	store := catalog.NewStore(snap)
	logger.Info().Int("brands", snap.Len()).Msg("Catalog loaded")

	cacheClient := newCacheClient(cfg, logger)
	defer cacheClient.Close()

	var artifacts *artifact.Store
	if cfg.Artifact.Path != "" {
		artifacts, err = artifact.Open(cfg.Artifact.Path)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.Artifact.Path).Msg("Artifact store unavailable, semantic index will not persist")
			artifacts = nil
		} else {
			defer artifacts.Close()
		}
	}

	chain := semantic.NewBackendChain(semantic.ChainConfig{
		Remote: semantic.RemoteConfig{
			APIKey:    cfg.Embedding.Remote.APIKey,
			BaseURL:   cfg.Embedding.Remote.BaseURL,
			Model:     cfg.Embedding.Remote.Model,
			Dimension: cfg.Embedding.Remote.Dimension,
			Timeout:   cfg.Embedding.Remote.Timeout,
		},
		ONNX: semantic.ONNXConfig{
			ModelPath:     cfg.Embedding.ONNX.ModelPath,
			TokenizerPath: cfg.Embedding.ONNX.TokenizerPath,
			LibraryPath:   cfg.Embedding.ONNX.LibraryPath,
			MaxSeqLen:     cfg.Embedding.ONNX.MaxSeqLen,
		},
		TFIDF: cfg.Embedding.TFIDF.Dimension,
	}, logger)

	engine := resolver.NewEngine(
		logger,
		store,
		lexical.NewMatcher(cfg.Lexical.Threshold),
		chain,
		artifacts,
		cacheClient,
		resolver.Config{
			TopK:             cfg.Resolver.TopK,
			ExactScore:       cfg.Resolver.ExactScore,
			SemanticWeight:   cfg.Resolver.SemanticWeight,
			LexicalWeight:    cfg.Resolver.LexicalWeight,
			SemanticFloor:    cfg.Resolver.SemanticFloor,
			SemanticK:        cfg.Resolver.SemanticK,
			PersonalBoostMax: cfg.Resolver.PersonalBoostMax,
			CacheResults:     cfg.Resolver.CacheResults,
			CacheTTL:         cfg.Resolver.CacheTTL,
		},
	)
	engine.LoadPersistedIndex(context.Background())

	profiles := profile.NewStore(cacheClient, logger)

	router := NewRouter(logger, cfg, store, engine, profiles)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server error")
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

// newCacheClient connects to Redis when configured and falls back to the
// in-memory cache when the connection fails. The fallback loses profile
// durability but keeps the engine serving.
func newCacheClient(cfg *config.Config, logger *observability.Logger) cache.Client {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err == nil {
			logger.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Connected to Redis")
			return client
		}
		logger.Warn().Err(err).Msg("Redis unreachable, falling back to in-memory cache")
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries)
}
