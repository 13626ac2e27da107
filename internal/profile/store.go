// Package profile provides read access to sales-rep personalization data.
// The resolver only ever reads profiles; they weight ranking and never alter
// the candidate set.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/brendbot/brand-engine/internal/cache"
	"github.com/brendbot/brand-engine/internal/observability"
)

// Profile describes a sales rep. The zero value is the neutral profile: no
// ranking adjustment.
type Profile struct {
	Role       string `json:"role,omitempty"`
	Region     string `json:"region,omitempty"`
	OutletType string `json:"outlet_type,omitempty"`
}

// IsZero reports whether the profile carries no preferences.
func (p Profile) IsZero() bool {
	return p == Profile{}
}

// Store reads and writes profiles through the shared cache backend (Redis in
// production, memory when Redis is unreachable).
type Store struct {
	cache  cache.Client
	logger *observability.Logger
	ttl    time.Duration
}

// NewStore creates a profile store.
func NewStore(c cache.Client, logger *observability.Logger) *Store {
	return &Store{
		cache:  c,
		logger: logger.WithComponent("profile"),
		ttl:    90 * 24 * time.Hour,
	}
}

// Get returns the profile for a user. A missing profile or a store failure
// both yield the neutral profile; personalization is best-effort and never
// fails a resolve call.
func (s *Store) Get(ctx context.Context, userID string) Profile {
	if userID == "" {
		return Profile{}
	}

	raw, err := s.cache.Get(ctx, key(userID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return Profile{}
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Profile lookup failed, using neutral profile")
		return Profile{}
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Profile payload corrupt, using neutral profile")
		return Profile{}
	}
	return p
}

// Set stores the profile for a user.
func (s *Store) Set(ctx context.Context, userID string, p Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key(userID), raw, s.ttl)
}

func key(userID string) string {
	return cache.Key("profile", userID)
}
