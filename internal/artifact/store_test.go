package artifact

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendbot/brand-engine/internal/semantic"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "artifacts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testArtifact(backendID string, builtAt time.Time) *semantic.Artifact {
	return &semantic.Artifact{
		Version:   semantic.ArtifactVersion,
		BackendID: backendID,
		Dimension: 4,
		BuiltAt:   builtAt,
		Vectors: map[string][]float32{
			"Johnnie Walker": {1, 0, 0, 0},
			"Absolut":        {0, 1, 0, 0},
		},
	}
}

func TestStore_SaveAndLoadLatest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	original := testArtifact(semantic.BackendTFIDF, time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.Save(ctx, original))

	loaded, err := store.LoadLatest(ctx)
	require.NoError(t, err)

	assert.Equal(t, original.BackendID, loaded.BackendID)
	assert.Equal(t, original.Dimension, loaded.Dimension)
	assert.Equal(t, original.Vectors, loaded.Vectors)
}

func TestStore_LoadLatestReturnsNewest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testArtifact(semantic.BackendTFIDF, time.Now().Add(-time.Hour))))
	require.NoError(t, store.Save(ctx, testArtifact(semantic.BackendRemote, time.Now())))

	loaded, err := store.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, semantic.BackendRemote, loaded.BackendID)
}

func TestStore_LoadLatestEmpty(t *testing.T) {
	store := openTestStore(t)

	_, err := store.LoadLatest(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}
