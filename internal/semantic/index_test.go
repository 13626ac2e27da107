package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendbot/brand-engine/internal/catalog"
)

const indexCatalog = `[
	{
		"name": "Johnnie Walker",
		"category": "Виски",
		"description": "Купажированный шотландский виски",
		"aliases": ["джонни", "джонни уолкер"]
	},
	{
		"name": "Jack Daniel's",
		"category": "Виски",
		"description": "Теннессийский виски из кукурузы",
		"aliases": ["джек"]
	},
	{
		"name": "Absolut",
		"category": "Водка",
		"description": "Шведская пшеничная водка",
		"aliases": ["абсолют"]
	}
]`

func loadSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.Load(strings.NewReader(indexCatalog))
	require.NoError(t, err)
	return snap
}

func TestBuild_ProducesVectorPerBrand(t *testing.T) {
	snap := loadSnapshot(t)
	backend := NewTFIDFBackend(128)

	art, err := Build(context.Background(), snap, backend)
	require.NoError(t, err)

	assert.Equal(t, ArtifactVersion, art.Version)
	assert.Equal(t, BackendTFIDF, art.BackendID)
	assert.Equal(t, 128, art.Dimension)
	assert.Len(t, art.Vectors, 3)
	assert.NotEmpty(t, art.BackendState)
	assert.False(t, art.BuiltAt.IsZero())
}

func TestBuild_EmptySnapshotFails(t *testing.T) {
	snap, err := catalog.Load(strings.NewReader(`[]`))
	require.NoError(t, err)

	_, err = Build(context.Background(), snap, NewTFIDFBackend(64))
	assert.Error(t, err)
}

func TestIndex_QueryRanksByRelevance(t *testing.T) {
	snap := loadSnapshot(t)
	backend := NewTFIDFBackend(256)

	art, err := Build(context.Background(), snap, backend)
	require.NoError(t, err)

	ix, err := NewIndex(art, backend)
	require.NoError(t, err)

	matches, err := ix.Query(context.Background(), "шотландский виски купажированный", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "Johnnie Walker", matches[0].Brand)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestIndex_QueryAfterStateRestore(t *testing.T) {
	snap := loadSnapshot(t)
	builderBackend := NewTFIDFBackend(256)

	art, err := Build(context.Background(), snap, builderBackend)
	require.NoError(t, err)

	// A process restart rebuilds the backend from scratch; the artifact must
	// carry enough state to embed queries in the same space.
	raw, err := json.Marshal(art)
	require.NoError(t, err)
	var restored Artifact
	require.NoError(t, json.Unmarshal(raw, &restored))

	ix, err := NewIndex(&restored, NewTFIDFBackend(256))
	require.NoError(t, err)

	matches, err := ix.Query(context.Background(), "шведская водка", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Absolut", matches[0].Brand)
}

func TestBuild_LeavesServingIndexUnchanged(t *testing.T) {
	backend := NewTFIDFBackend(256)
	snap := loadSnapshot(t)
	ctx := context.Background()

	art, err := Build(ctx, snap, backend)
	require.NoError(t, err)
	ix, err := NewIndex(art, backend)
	require.NoError(t, err)

	before, err := ix.Query(ctx, "шотландский виски", 3)
	require.NoError(t, err)

	// A rebuild against a different corpus reuses the chain's backend
	// instance; the index published earlier must keep embedding queries in
	// the space its own artifact was built with.
	other, err := catalog.Load(strings.NewReader(`[
		{"name": "Beefeater", "category": "Джин", "description": "Лондонский сухой джин", "aliases": ["бифитер"]},
		{"name": "Olmeca", "category": "Текила", "description": "Текила из долины Лос-Альтос", "aliases": ["ольмека"]}
	]`))
	require.NoError(t, err)
	_, err = Build(ctx, other, backend)
	require.NoError(t, err)

	after, err := ix.Query(ctx, "шотландский виски", 3)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestNewIndex_RestoreDoesNotMutateSharedBackend(t *testing.T) {
	snap := loadSnapshot(t)

	art, err := Build(context.Background(), snap, NewTFIDFBackend(256))
	require.NoError(t, err)

	shared := NewTFIDFBackend(256)
	_, err = NewIndex(art, shared)
	require.NoError(t, err)

	// The artifact's vectorizer state goes into a private copy; the chain's
	// instance stays unfitted.
	raw, err := shared.State()
	require.NoError(t, err)
	var st tfidfState
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Nil(t, st.IDF)
	assert.Zero(t, st.DocCount)
}

func TestNewIndex_BackendMismatch(t *testing.T) {
	snap := loadSnapshot(t)
	backend := NewTFIDFBackend(64)

	art, err := Build(context.Background(), snap, backend)
	require.NoError(t, err)

	_, err = NewIndex(art, &stubBackend{id: BackendRemote, dim: 64})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendMismatch)
}

func TestIndex_QueryBackendFailure(t *testing.T) {
	art := &Artifact{
		Version:   ArtifactVersion,
		BackendID: BackendRemote,
		Dimension: 4,
		Vectors:   map[string][]float32{"X": {1, 0, 0, 0}},
	}
	ix, err := NewIndex(art, &stubBackend{id: BackendRemote, dim: 4, embedErr: errors.New("connection refused")})
	require.NoError(t, err)

	_, err = ix.Query(context.Background(), "запрос", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestIndex_QueryZeroK(t *testing.T) {
	art := &Artifact{
		Version:   ArtifactVersion,
		BackendID: BackendTFIDF,
		Dimension: 64,
		Vectors:   map[string][]float32{"X": make([]float32, 64)},
	}
	ix, err := NewIndex(art, NewTFIDFBackend(64))
	require.NoError(t, err)

	matches, err := ix.Query(context.Background(), "запрос", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

// stubBackend is a controllable Backend for tests.
type stubBackend struct {
	id       string
	dim      int
	embedErr error
	vector   []float32
}

func (s *stubBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := s.vector
		if v == nil {
			v = make([]float32, s.dim)
			v[0] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubBackend) ID() string        { return s.id }
func (s *stubBackend) Dimension() int    { return s.dim }
func (s *stubBackend) Available(ctx context.Context) error {
	if s.embedErr != nil {
		return s.embedErr
	}
	return nil
}
