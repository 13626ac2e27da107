package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brendbot/brand-engine/internal/catalog"
)

// ArtifactVersion is the current persisted artifact schema version.
const ArtifactVersion = 1

// ErrBackendMismatch indicates the artifact was built by a different backend
// than the one currently configured. Distances are not comparable across
// backends, so a mismatched artifact is treated as absent.
var ErrBackendMismatch = errors.New("artifact backend mismatch")

// Artifact is the persisted semantic index: one unit vector per brand plus
// the backend that produced them. It is immutable once built.
type Artifact struct {
	Version      int                  `json:"version"`
	BackendID    string               `json:"backend_id"`
	Dimension    int                  `json:"dimension"`
	BuiltAt      time.Time            `json:"built_at"`
	Vectors      map[string][]float32 `json:"vectors"`
	BackendState json.RawMessage      `json:"backend_state,omitempty"`
}

// Build computes one vector per brand from its descriptive text using the
// given backend. TF-IDF backends are cloned and the clone fitted on the
// corpus, so an index still serving queries from a shared backend instance is
// never re-fitted underneath; the fitted state is captured in the artifact so
// later queries embed in the same space.
func Build(ctx context.Context, snap *catalog.Snapshot, backend Backend) (*Artifact, error) {
	brands := snap.Brands()
	if len(brands) == 0 {
		return nil, fmt.Errorf("empty catalog snapshot")
	}

	texts := make([]string, len(brands))
	for i, rec := range brands {
		texts[i] = brandDocument(rec)
	}

	var state json.RawMessage
	if tfidf, ok := backend.(*TFIDFBackend); ok {
		fitted := tfidf.Clone()
		fitted.Fit(texts)
		raw, err := fitted.State()
		if err != nil {
			return nil, fmt.Errorf("capture vectorizer state: %w", err)
		}
		state = raw
		backend = fitted
	}

	vectors, err := backend.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed catalog: %w", err)
	}
	if len(vectors) != len(brands) {
		return nil, fmt.Errorf("embed catalog: got %d vectors for %d brands", len(vectors), len(brands))
	}

	artifact := &Artifact{
		Version:      ArtifactVersion,
		BackendID:    backend.ID(),
		Dimension:    backend.Dimension(),
		BuiltAt:      time.Now(),
		Vectors:      make(map[string][]float32, len(brands)),
		BackendState: state,
	}
	for i, rec := range brands {
		artifact.Vectors[rec.Name] = vectors[i]
	}

	return artifact, nil
}

// Match is a nearest-neighbor result.
type Match struct {
	Brand      string
	Similarity float64
}

// Index answers nearest-neighbor queries over an artifact, embedding query
// text with the same backend that built the artifact.
type Index struct {
	artifact *Artifact
	backend  Backend
}

// NewIndex binds an artifact to the backend it was built with. The backend ID
// must match the artifact's recorded one. TF-IDF backends get the artifact's
// vectorizer state restored into a private clone: the chain's shared instance
// is never mutated, so other indexes keep their own embedding space.
func NewIndex(artifact *Artifact, backend Backend) (*Index, error) {
	if artifact == nil {
		return nil, fmt.Errorf("nil artifact")
	}
	if backend.ID() != artifact.BackendID {
		return nil, fmt.Errorf("%w: artifact built with %q, configured backend is %q",
			ErrBackendMismatch, artifact.BackendID, backend.ID())
	}

	if tfidf, ok := backend.(*TFIDFBackend); ok && len(artifact.BackendState) > 0 {
		restored := tfidf.Clone()
		if err := restored.Restore(artifact.BackendState); err != nil {
			return nil, err
		}
		backend = restored
	}

	return &Index{artifact: artifact, backend: backend}, nil
}

// Artifact returns the bound artifact.
func (ix *Index) Artifact() *Artifact {
	return ix.artifact
}

// Query embeds text with the artifact's backend and returns the k most
// similar brands by cosine similarity. If the backend is unreachable the
// query fails with ErrBackendUnavailable; the caller decides whether to
// degrade.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := ix.backend.Embed(ctx, []string{text})
	if err != nil {
		if errors.Is(err, ErrBackendUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	query := vectors[0]

	matches := make([]Match, 0, len(ix.artifact.Vectors))
	for brand, vec := range ix.artifact.Vectors {
		matches = append(matches, Match{
			Brand:      brand,
			Similarity: cosineSimilarity(query, vec),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Brand < matches[j].Brand
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// brandDocument flattens a record into the text that gets embedded.
func brandDocument(rec *catalog.BrandRecord) string {
	parts := []string{rec.Name, string(rec.Category), rec.Description}
	if len(rec.Aliases) > 0 {
		parts = append(parts, strings.Join(rec.Aliases, ", "))
	}
	return strings.Join(parts, "\n")
}
