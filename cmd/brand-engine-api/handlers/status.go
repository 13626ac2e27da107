package handlers

import (
	"net/http"

	"github.com/brendbot/brand-engine/internal/catalog"
	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/resolver"
)

// StatusHandler reports readiness and degradation state.
type StatusHandler struct {
	logger *observability.Logger
	store  *catalog.Store
	engine *resolver.Engine
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(logger *observability.Logger, store *catalog.Store, engine *resolver.Engine) *StatusHandler {
	return &StatusHandler{logger: logger, store: store, engine: engine}
}

// Ready handles GET /ready. The service is ready as soon as a catalog is
// loaded; a missing semantic index is reported but does not fail readiness,
// since exact and lexical tiers still serve.
func (h *StatusHandler) Ready(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	if snap == nil || snap.Len() == 0 {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded", "")
		return
	}

	semanticTier := "offline"
	var backend string
	if info := h.engine.IndexInfo(); info != nil {
		semanticTier = "online"
		backend = info.BackendID
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ready",
		"brands":          snap.Len(),
		"loadedAt":        snap.LoadedAt(),
		"semanticTier":    semanticTier,
		"semanticBackend": backend,
	})
}
