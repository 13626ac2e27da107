// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/brendbot/brand-engine/cmd/brand-engine-api/handlers"
	"github.com/brendbot/brand-engine/internal/catalog"
	"github.com/brendbot/brand-engine/internal/config"
	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/profile"
	"github.com/brendbot/brand-engine/internal/resolver"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(
	logger *observability.Logger,
	cfg *config.Config,
	store *catalog.Store,
	engine *resolver.Engine,
	profiles *profile.Store,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"brand-engine"}`))
	})

	r.Get("/ready", handlers.NewStatusHandler(logger, store, engine).Ready)

	resolveHandler := handlers.NewResolveHandler(logger, engine, profiles)
	catalogHandler := handlers.NewCatalogHandler(logger, store)
	profileHandler := handlers.NewProfileHandler(logger, profiles)
	adminHandler := handlers.NewAdminHandler(logger, store, engine, cfg.Catalog.Path)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/resolve", resolveHandler.Resolve)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", catalogHandler.ListCategories)
			r.Get("/{category}/brands", catalogHandler.ListBrands)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/{userID}", profileHandler.Get)
			r.Put("/{userID}", profileHandler.Put)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/rebuild", adminHandler.Rebuild)
			r.Post("/reload", adminHandler.Reload)
		})
	})

	return r
}
