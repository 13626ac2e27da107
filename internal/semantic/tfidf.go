package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/brendbot/brand-engine/internal/catalog"
)

// TFIDFBackend is the guaranteed-available fallback: a hashed TF-IDF
// vectorizer over word unigrams and bigrams. IDF weights are learned from the
// corpus at build time and serialized into the artifact so queries embed
// identically after a restart.
type TFIDFBackend struct {
	mu        sync.RWMutex
	dimension int
	idf       []float32 // per hash bucket; nil until fitted
	docCount  int
}

// NewTFIDFBackend creates a vectorizer with the given bucket count.
func NewTFIDFBackend(dimension int) *TFIDFBackend {
	if dimension <= 0 {
		dimension = 512
	}
	return &TFIDFBackend{dimension: dimension}
}

// Clone returns an independent copy of the vectorizer. Builds and artifact
// restores fit the copy, so an index already serving queries keeps embedding
// in the space its own artifact was built with.
func (b *TFIDFBackend) Clone() *TFIDFBackend {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cp := &TFIDFBackend{dimension: b.dimension, docCount: b.docCount}
	if b.idf != nil {
		cp.idf = append([]float32(nil), b.idf...)
	}
	return cp
}

// Fit learns IDF weights from the corpus.
func (b *TFIDFBackend) Fit(texts []string) {
	df := make([]int, b.dimension)
	for _, text := range texts {
		seen := make(map[int]struct{})
		for _, bucket := range buckets(text, b.dimension) {
			seen[bucket] = struct{}{}
		}
		for bucket := range seen {
			df[bucket]++
		}
	}

	idf := make([]float32, b.dimension)
	n := float64(len(texts))
	for i, d := range df {
		// Smoothed IDF, never zero so unseen terms still contribute.
		idf[i] = float32(math.Log((1+n)/(1+float64(d))) + 1)
	}

	b.mu.Lock()
	b.idf = idf
	b.docCount = len(texts)
	b.mu.Unlock()
}

// Embed maps each text to a unit-normalized TF-IDF vector. Unfitted backends
// fall back to uniform IDF, which keeps the backend usable for ad-hoc
// similarity but artifacts are always built from a fitted state.
func (b *TFIDFBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	b.mu.RLock()
	idf := b.idf
	b.mu.RUnlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, b.dimension)
		for _, bucket := range buckets(text, b.dimension) {
			vec[bucket]++
		}
		for j := range vec {
			if vec[j] == 0 {
				continue
			}
			// Sublinear term frequency scaling.
			vec[j] = float32(1 + math.Log(float64(vec[j])))
			if idf != nil {
				vec[j] *= idf[j]
			}
		}
		out[i] = normalizeVector(vec)
	}
	return out, nil
}

// ID returns the backend identifier.
func (b *TFIDFBackend) ID() string {
	return BackendTFIDF
}

// Dimension returns the bucket count.
func (b *TFIDFBackend) Dimension() int {
	return b.dimension
}

// Available always succeeds; TF-IDF is the last tier of the chain.
func (b *TFIDFBackend) Available(ctx context.Context) error {
	return nil
}

type tfidfState struct {
	Dimension int       `json:"dimension"`
	DocCount  int       `json:"doc_count"`
	IDF       []float32 `json:"idf"`
}

// State serializes the fitted vectorizer for artifact persistence.
func (b *TFIDFBackend) State() (json.RawMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return json.Marshal(tfidfState{
		Dimension: b.dimension,
		DocCount:  b.docCount,
		IDF:       b.idf,
	})
}

// Restore loads vectorizer state recorded in an artifact.
func (b *TFIDFBackend) Restore(raw json.RawMessage) error {
	var st tfidfState
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("restore tfidf state: %w", err)
	}
	if st.Dimension <= 0 {
		return fmt.Errorf("restore tfidf state: invalid dimension %d", st.Dimension)
	}
	if st.IDF != nil && len(st.IDF) != st.Dimension {
		return fmt.Errorf("restore tfidf state: idf length %d != dimension %d", len(st.IDF), st.Dimension)
	}

	b.mu.Lock()
	b.dimension = st.Dimension
	b.idf = st.IDF
	b.docCount = st.DocCount
	b.mu.Unlock()
	return nil
}

// buckets tokenizes text and hashes word unigrams and bigrams into
// [0, dimension) buckets.
func buckets(text string, dimension int) []int {
	tokens := strings.Fields(catalog.NormalizeWords(text))
	out := make([]int, 0, len(tokens)*2)
	for i, tok := range tokens {
		out = append(out, hashBucket(tok, dimension))
		if i+1 < len(tokens) {
			out = append(out, hashBucket(tok+" "+tokens[i+1], dimension))
		}
	}
	return out
}

func hashBucket(term string, dimension int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return int(h.Sum32() % uint32(dimension))
}

var _ Backend = (*TFIDFBackend)(nil)
