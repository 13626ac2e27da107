package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/brendbot/brand-engine/internal/catalog"
	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/resolver"
)

// AdminHandler exposes operator endpoints: semantic index rebuild and catalog
// reload. Neither interrupts in-flight resolves; both publish their result by
// an atomic swap.
type AdminHandler struct {
	logger      *observability.Logger
	store       *catalog.Store
	engine      *resolver.Engine
	catalogPath string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(logger *observability.Logger, store *catalog.Store, engine *resolver.Engine, catalogPath string) *AdminHandler {
	return &AdminHandler{
		logger:      logger,
		store:       store,
		engine:      engine,
		catalogPath: catalogPath,
	}
}

// RebuildRequestDTO represents the rebuild request.
type RebuildRequestDTO struct {
	Backend string `json:"backend,omitempty"` // force a specific backend ID
}

// Rebuild handles POST /api/v1/admin/rebuild.
func (h *AdminHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var dto RebuildRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	report, err := h.engine.Rebuild(r.Context(), dto.Backend)
	if err != nil {
		// The previous index keeps serving; this status is for the operator.
		h.logger.Error().Err(err).Msg("Index rebuild failed")
		writeError(w, http.StatusInternalServerError, "rebuild failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"backend":    report.Backend,
		"brands":     report.Brands,
		"dimension":  report.Dimension,
		"builtAt":    report.BuiltAt,
		"durationMs": report.Duration.Milliseconds(),
		"persisted":  report.Persisted,
	})
}

// Reload handles POST /api/v1/admin/reload. A failed reload keeps the
// previous catalog snapshot serving.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.ReloadFile(h.catalogPath)
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.catalogPath).Msg("Catalog reload failed, previous snapshot retained")
		writeError(w, http.StatusUnprocessableEntity, "catalog reload failed", err.Error())
		return
	}

	h.logger.Info().Int("brands", snap.Len()).Msg("Catalog reloaded")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"brands":   snap.Len(),
		"loadedAt": snap.LoadedAt(),
	})
}
