// Package semantic maps brand descriptive text into a vector space and
// answers nearest-neighbor queries over it. Embedding backends are pluggable
// and selected by a priority-ordered chain.
package semantic

import (
	"context"
	"errors"
	"math"
)

// ErrBackendUnavailable indicates the embedding backend recorded in the
// artifact cannot currently serve (missing credential, network failure,
// timeout). The resolver decides whether to degrade; this package never
// silently downgrades to a different backend.
var ErrBackendUnavailable = errors.New("embedding backend unavailable")

// Backend ID constants. The artifact records which backend built it; vectors
// from different backends are never comparable.
const (
	BackendRemote = "remote"
	BackendONNX   = "local-onnx"
	BackendTFIDF  = "local-tfidf"
)

// Backend turns text into fixed-dimension vectors.
type Backend interface {
	// Embed returns one vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ID identifies the backend family for artifact compatibility checks.
	ID() string

	// Dimension returns the vector width produced by this backend.
	Dimension() int

	// Available reports whether the backend can serve right now.
	Available(ctx context.Context) error
}

// normalizeVector returns a unit vector, leaving zero vectors untouched.
func normalizeVector(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// cosineSimilarity computes the dot product of two unit vectors, clamped to
// [-1, 1] against floating point drift.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return dot
}
