package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/profile"
)

// ProfileHandler manages sales-rep personalization profiles.
type ProfileHandler struct {
	logger   *observability.Logger
	profiles *profile.Store
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(logger *observability.Logger, profiles *profile.Store) *ProfileHandler {
	return &ProfileHandler{logger: logger, profiles: profiles}
}

// ProfileDTO represents a personalization profile.
type ProfileDTO struct {
	Role       string `json:"role,omitempty"`
	Region     string `json:"region,omitempty"`
	OutletType string `json:"outletType,omitempty"`
}

// Get handles GET /api/v1/profiles/{userID}. A user without a stored profile
// gets the neutral one, not a 404.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userID is required", "")
		return
	}

	p := h.profiles.Get(r.Context(), userID)
	writeJSON(w, http.StatusOK, ProfileDTO{
		Role:       p.Role,
		Region:     p.Region,
		OutletType: p.OutletType,
	})
}

// Put handles PUT /api/v1/profiles/{userID}.
func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userID is required", "")
		return
	}

	var dto ProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	p := profile.Profile{
		Role:       dto.Role,
		Region:     dto.Region,
		OutletType: dto.OutletType,
	}
	if err := h.profiles.Set(r.Context(), userID, p); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Profile store failed")
		writeError(w, http.StatusInternalServerError, "profile store failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto)
}
