package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brendbot/brand-engine/internal/catalog"
	"github.com/brendbot/brand-engine/internal/observability"
)

// CatalogHandler serves read-only catalog browsing endpoints.
type CatalogHandler struct {
	logger *observability.Logger
	store  *catalog.Store
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(logger *observability.Logger, store *catalog.Store) *CatalogHandler {
	return &CatalogHandler{logger: logger, store: store}
}

// BrandDTO represents one catalog entry.
type BrandDTO struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
	MediaRef    string   `json:"mediaRef,omitempty"`
}

// ListCategories handles GET /api/v1/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()

	categories := snap.Categories()
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": out,
	})
}

// ListBrands handles GET /api/v1/categories/{category}/brands.
func (h *CatalogHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	category := catalog.Category(chi.URLParam(r, "category"))
	if !catalog.ValidCategory(category) {
		writeError(w, http.StatusNotFound, "unknown category", string(category))
		return
	}

	snap := h.store.Current()
	brands := make([]BrandDTO, 0)
	for _, name := range snap.ByCategory(category) {
		rec := snap.Get(name)
		brands = append(brands, BrandDTO{
			Name:        rec.Name,
			Category:    string(rec.Category),
			Description: rec.Description,
			Aliases:     rec.Aliases,
			MediaRef:    rec.MediaRef,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": string(category),
		"brands":   brands,
	})
}
