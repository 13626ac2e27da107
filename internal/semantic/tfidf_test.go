package semantic

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTFIDF_EmbedUnitVectors(t *testing.T) {
	b := NewTFIDFBackend(128)
	b.Fit([]string{
		"купажированный шотландский виски",
		"теннессийский виски",
		"шведская водка",
	})

	vecs, err := b.Embed(context.Background(), []string{"шотландский виски", "водка"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	for _, v := range vecs {
		assert.Len(t, v, 128)
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	}
}

func TestTFIDF_SimilarTextsCloser(t *testing.T) {
	b := NewTFIDFBackend(256)
	corpus := []string{
		"купажированный шотландский виски выдержанный",
		"теннессийский виски кукурузный",
		"шведская водка пшеничная",
	}
	b.Fit(corpus)

	vecs, err := b.Embed(context.Background(), []string{
		"шотландский виски",
		corpus[0],
		corpus[2],
	})
	require.NoError(t, err)

	simWhisky := cosineSimilarity(vecs[0], vecs[1])
	simVodka := cosineSimilarity(vecs[0], vecs[2])
	assert.Greater(t, simWhisky, simVodka)
}

func TestTFIDF_StateRoundTrip(t *testing.T) {
	b := NewTFIDFBackend(64)
	b.Fit([]string{"шотландский виски", "шведская водка"})

	state, err := b.State()
	require.NoError(t, err)

	fresh := NewTFIDFBackend(64)
	require.NoError(t, fresh.Restore(state))

	// Restored vectorizer embeds identically to the fitted one.
	a, err := b.Embed(context.Background(), []string{"шотландский виски"})
	require.NoError(t, err)
	c, err := fresh.Embed(context.Background(), []string{"шотландский виски"})
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestTFIDF_RestoreRejectsCorruptState(t *testing.T) {
	b := NewTFIDFBackend(64)

	assert.Error(t, b.Restore([]byte(`{not json`)))
	assert.Error(t, b.Restore([]byte(`{"dimension": 0}`)))
	assert.Error(t, b.Restore([]byte(`{"dimension": 8, "idf": [1, 2]}`)))
}

func TestTFIDF_AlwaysAvailable(t *testing.T) {
	b := NewTFIDFBackend(0)
	assert.NoError(t, b.Available(context.Background()))
	assert.Equal(t, BackendTFIDF, b.ID())
	assert.Equal(t, 512, b.Dimension())
}
