package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brendbot/brand-engine/internal/artifact"
	"github.com/brendbot/brand-engine/internal/semantic"
)

// ErrBuild wraps index rebuild failures. A failed rebuild leaves the
// previously published index serving; the error is for operators, not for
// resolve callers.
var ErrBuild = errors.New("index rebuild failed")

// BuildReport summarizes a completed rebuild.
type BuildReport struct {
	Backend   string        `json:"backend"`
	Brands    int           `json:"brands"`
	Dimension int           `json:"dimension"`
	BuiltAt   time.Time     `json:"built_at"`
	Duration  time.Duration `json:"duration"`
	Persisted bool          `json:"persisted"`
}

// Rebuild constructs a fresh semantic artifact from the current catalog
// snapshot and atomically swaps it in. Rebuilds are serialized; concurrent
// resolves keep reading the old index until the swap. backendOverride forces
// a specific backend ID instead of the first available tier.
func (e *Engine) Rebuild(ctx context.Context, backendOverride string) (*BuildReport, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()
	snap := e.catalog.Current()

	backend, err := semantic.Select(ctx, e.chain, backendOverride)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuild, err)
	}

	e.logger.Info().
		Str("backend", backend.ID()).
		Int("brands", snap.Len()).
		Msg("Rebuilding semantic index")

	art, err := semantic.Build(ctx, snap, backend)
	if err != nil {
		e.logger.Error().Err(err).Str("backend", backend.ID()).Msg("Semantic index build failed, previous index retained")
		return nil, fmt.Errorf("%w: %v", ErrBuild, err)
	}

	ix, err := semantic.NewIndex(art, backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuild, err)
	}

	persisted := false
	if e.artifacts != nil {
		if err := e.artifacts.Save(ctx, art); err != nil {
			// The in-memory index still swaps in; persistence is retried on
			// the next rebuild.
			e.logger.Warn().Err(err).Msg("Artifact persistence failed, serving from memory only")
		} else {
			persisted = true
		}
	}

	e.index.Store(ix)

	report := &BuildReport{
		Backend:   art.BackendID,
		Brands:    len(art.Vectors),
		Dimension: art.Dimension,
		BuiltAt:   art.BuiltAt,
		Duration:  time.Since(start),
		Persisted: persisted,
	}

	e.logger.Info().
		Str("backend", report.Backend).
		Int("brands", report.Brands).
		Int("dimension", report.Dimension).
		Dur("duration", report.Duration).
		Msg("Semantic index rebuilt and swapped in")

	return report, nil
}

// LoadPersistedIndex restores the latest persisted artifact at startup. A
// missing artifact, a backend mismatch with the current preferred backend, or
// a corrupt payload all leave the engine without an index, which only
// disables the semantic tier.
func (e *Engine) LoadPersistedIndex(ctx context.Context) {
	if e.artifacts == nil || len(e.chain) == 0 {
		return
	}

	art, err := e.artifacts.LoadLatest(ctx)
	if errors.Is(err, artifact.ErrNotFound) {
		e.logger.Info().Msg("No persisted semantic artifact, semantic tier disabled until first rebuild")
		return
	}
	if err != nil {
		e.logger.Warn().Err(err).Msg("Persisted artifact unreadable, semantic tier disabled until rebuild")
		return
	}

	preferred := e.chain[0]
	backend := semantic.ByID(e.chain, art.BackendID)
	if backend == nil || backend.ID() != preferred.ID() {
		e.logger.Warn().
			Str("artifact_backend", art.BackendID).
			Str("configured_backend", preferred.ID()).
			Msg("Persisted artifact built with a different backend, treating as absent")
		return
	}

	ix, err := semantic.NewIndex(art, backend)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Persisted artifact rejected, semantic tier disabled until rebuild")
		return
	}

	e.index.Store(ix)
	e.logger.Info().
		Str("backend", art.BackendID).
		Int("brands", len(art.Vectors)).
		Time("built_at", art.BuiltAt).
		Msg("Persisted semantic index loaded")
}

// IndexInfo reports the currently serving index, or nil when the semantic
// tier is offline.
func (e *Engine) IndexInfo() *semantic.Artifact {
	ix := e.index.Load()
	if ix == nil {
		return nil
	}
	return ix.Artifact()
}
