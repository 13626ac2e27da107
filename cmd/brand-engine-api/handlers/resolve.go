// Package handlers provides HTTP handlers for the Brand Resolution Engine API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/profile"
	"github.com/brendbot/brand-engine/internal/resolver"
)

// ResolveHandler handles brand resolution requests.
type ResolveHandler struct {
	logger   *observability.Logger
	engine   *resolver.Engine
	profiles *profile.Store
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(logger *observability.Logger, engine *resolver.Engine, profiles *profile.Store) *ResolveHandler {
	return &ResolveHandler{
		logger:   logger,
		engine:   engine,
		profiles: profiles,
	}
}

// ResolveRequestDTO represents the API request for resolution.
type ResolveRequestDTO struct {
	Query  string `json:"query"`
	UserID string `json:"userId,omitempty"`
	TopK   int    `json:"topK,omitempty"`
}

// ResolveResponseDTO represents the API response.
type ResolveResponseDTO struct {
	RequestID  string         `json:"requestId"`
	Query      string         `json:"query"`
	Candidates []CandidateDTO `json:"candidates"`
	Tiers      []string       `json:"tiers"`
	LatencyMs  int64          `json:"latencyMs"`
}

// CandidateDTO represents one ranked brand match.
type CandidateDTO struct {
	Brand         string  `json:"brand"`
	DisplayName   string  `json:"displayName"`
	Category      string  `json:"category"`
	MatchedAlias  string  `json:"matchedAlias,omitempty"`
	Score         float64 `json:"score"`
	ExactScore    float64 `json:"exactScore,omitempty"`
	LexicalScore  float64 `json:"lexicalScore,omitempty"`
	SemanticScore float64 `json:"semanticScore,omitempty"`
}

// Resolve handles POST /api/v1/resolve.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := uuid.NewString()

	var reqDTO ResolveRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if reqDTO.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required", "")
		return
	}

	prof := profile.Profile{}
	if reqDTO.UserID != "" {
		prof = h.profiles.Get(ctx, reqDTO.UserID)
	}

	result, err := h.engine.Resolve(ctx, reqDTO.Query, prof, reqDTO.TopK)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("Resolve failed")
		writeError(w, http.StatusInternalServerError, "resolve failed", err.Error())
		return
	}

	respDTO := ResolveResponseDTO{
		RequestID:  requestID,
		Query:      result.Query,
		Candidates: make([]CandidateDTO, 0, len(result.Candidates)),
		Tiers:      result.Tiers,
		LatencyMs:  result.LatencyMs,
	}
	for _, c := range result.Candidates {
		respDTO.Candidates = append(respDTO.Candidates, CandidateDTO{
			Brand:         c.Brand,
			DisplayName:   c.DisplayName,
			Category:      string(c.Category),
			MatchedAlias:  c.MatchedAlias,
			Score:         c.Score,
			ExactScore:    c.ExactScore,
			LexicalScore:  c.LexicalScore,
			SemanticScore: c.SemanticScore,
		})
	}

	writeJSON(w, http.StatusOK, respDTO)
}
