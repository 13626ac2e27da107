package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendbot/brand-engine/internal/cache"
	"github.com/brendbot/brand-engine/internal/catalog"
	"github.com/brendbot/brand-engine/internal/lexical"
	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/profile"
	"github.com/brendbot/brand-engine/internal/semantic"
)

const testCatalog = `[
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
		"aliases": ["джек", "джек дэниэлс"]
	},
	{
		"name": "Absolut",
		"category": "Водка",
		"description": "Шведская пшеничная водка",
		"aliases": ["абсолют"]
	},
	{
		"name": "Bacardi",
		"category": "Ром",
		"description": "Карибский белый ром",
		"aliases": ["бакарди"]
	}
]`

func newTestEngine(t *testing.T, chain []semantic.Backend, cfg Config) (*Engine, *catalog.Store) {
	t.Helper()
	snap, err := catalog.Load(strings.NewReader(testCatalog))
	require.NoError(t, err)
	store := catalog.NewStore(snap)

	engine := NewEngine(
		observability.DefaultLogger(),
		store,
		lexical.NewMatcher(0.6),
		chain,
		nil,
		nil,
		cfg,
	)
	return engine, store
}

func TestResolve_ExactAliasPinnedTop(t *testing.T) {
	engine, _ := newTestEngine(t, nil, Config{})
	ctx := context.Background()

	result, err := engine.Resolve(ctx, "джонни", profile.Profile{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)

	top := result.Candidates[0]
	assert.Equal(t, "Johnnie Walker", top.Brand)
	assert.Equal(t, 1.0, top.Score)
	assert.Equal(t, "джонни", top.MatchedAlias)
	assert.Contains(t, result.Tiers, TierExact)
}

func TestResolve_MisspelledQueryViaLexical(t *testing.T) {
	engine, _ := newTestEngine(t, nil, Config{})

	result, err := engine.Resolve(context.Background(), "джони уолкер", profile.Profile{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)

	assert.Equal(t, "Johnnie Walker", result.Candidates[0].Brand)
	assert.Less(t, result.Candidates[0].Score, 1.0)
	assert.Contains(t, result.Tiers, TierLexical)
}

func TestResolve_EmptyResultIsValid(t *testing.T) {
	engine, _ := newTestEngine(t, nil, Config{})

	result, err := engine.Resolve(context.Background(), "отчет по продажам за квартал", profile.Profile{}, 5)
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestResolve_Deterministic(t *testing.T) {
	engine, _ := newTestEngine(t, nil, Config{})
	ctx := context.Background()

	first, err := engine.Resolve(ctx, "джони уолкер", profile.Profile{}, 5)
	require.NoError(t, err)
	second, err := engine.Resolve(ctx, "джони уолкер", profile.Profile{}, 5)
	require.NoError(t, err)

	assert.Equal(t, first.Candidates, second.Candidates)
}

func TestResolve_TruncatesToK(t *testing.T) {
	engine, _ := newTestEngine(t, nil, Config{})

	// "джек дэниэлс джонни" brushes against several brands lexically.
	result, err := engine.Resolve(context.Background(), "виски джонни джек", profile.Profile{}, 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Candidates), 1)
}

func TestResolve_SharedAliasReturnsAllOwners(t *testing.T) {
	src := `[
		{"name": "A", "category": "Виски", "description": "d", "aliases": ["премиум"]},
		{"name": "B", "category": "Водка", "description": "d", "aliases": ["премиум"]}
	]`
	snap, err := catalog.Load(strings.NewReader(src))
	require.NoError(t, err)

	engine := NewEngine(
		observability.DefaultLogger(),
		catalog.NewStore(snap),
		lexical.NewMatcher(0.6),
		nil, nil, nil,
		Config{},
	)

	result, err := engine.Resolve(context.Background(), "премиум", profile.Profile{}, 5)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)

	// Both exact hits carry the maximal score; ties break by identifier.
	assert.Equal(t, "A", result.Candidates[0].Brand)
	assert.Equal(t, "B", result.Candidates[1].Brand)
	assert.Equal(t, result.Candidates[0].Score, result.Candidates[1].Score)
}

func TestResolve_SemanticTierAfterRebuild(t *testing.T) {
	chain := []semantic.Backend{semantic.NewTFIDFBackend(256)}
	engine, _ := newTestEngine(t, chain, Config{SemanticFloor: 0.05})
	ctx := context.Background()

	before, err := engine.Resolve(ctx, "шотландский купажированный", profile.Profile{}, 5)
	require.NoError(t, err)
	assert.NotContains(t, before.Tiers, TierSemantic)

	_, err = engine.Rebuild(ctx, "")
	require.NoError(t, err)

	after, err := engine.Resolve(ctx, "шотландский купажированный", profile.Profile{}, 5)
	require.NoError(t, err)
	assert.Contains(t, after.Tiers, TierSemantic)
	require.NotEmpty(t, after.Candidates)
	assert.Equal(t, "Johnnie Walker", after.Candidates[0].Brand)
}

func TestResolve_DegradesWhenBackendFails(t *testing.T) {
	backend := &flakyBackend{id: semantic.BackendRemote, dim: 8}
	engine, _ := newTestEngine(t, []semantic.Backend{backend}, Config{SemanticFloor: 0.05})
	ctx := context.Background()

	_, err := engine.Rebuild(ctx, "")
	require.NoError(t, err)

	// Backend goes down after the build; resolves degrade instead of failing.
	backend.err = errors.New("connection refused")

	result, err := engine.Resolve(ctx, "джонни", profile.Profile{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, "Johnnie Walker", result.Candidates[0].Brand)
	assert.NotContains(t, result.Tiers, TierSemantic)
}

func TestResolve_PersonalizationReordersOnlyNonExact(t *testing.T) {
	src := `[
		{"name": "Вихрь", "category": "Виски", "description": "d", "aliases": ["тестбренд"]},
		{"name": "Агат", "category": "Водка", "description": "d", "aliases": ["тестбренд"]}
	]`
	snap, err := catalog.Load(strings.NewReader(src))
	require.NoError(t, err)

	engine := NewEngine(
		observability.DefaultLogger(),
		catalog.NewStore(snap),
		lexical.NewMatcher(0.6),
		nil, nil, nil,
		Config{PersonalBoostMax: 0.05},
	)
	ctx := context.Background()
	barProfile := profile.Profile{OutletType: "бар"}

	// Typo query: both brands get identical lexical scores; the whisky boost
	// for bar reps breaks the tie.
	boosted, err := engine.Resolve(ctx, "тестбрендд", barProfile, 5)
	require.NoError(t, err)
	require.Len(t, boosted.Candidates, 2)
	assert.Equal(t, "Вихрь", boosted.Candidates[0].Brand)

	neutral, err := engine.Resolve(ctx, "тестбрендд", profile.Profile{}, 5)
	require.NoError(t, err)
	require.Len(t, neutral.Candidates, 2)
	assert.Equal(t, "Агат", neutral.Candidates[0].Brand)

	// Exact hits stay pinned at the maximal score regardless of profile.
	exact, err := engine.Resolve(ctx, "тестбренд", barProfile, 5)
	require.NoError(t, err)
	require.Len(t, exact.Candidates, 2)
	assert.Equal(t, 1.0, exact.Candidates[0].Score)
	assert.Equal(t, 1.0, exact.Candidates[1].Score)
	assert.Equal(t, "Агат", exact.Candidates[0].Brand)
}

func TestResolve_CacheHitKeepsCallerQuery(t *testing.T) {
	snap, err := catalog.Load(strings.NewReader(testCatalog))
	require.NoError(t, err)

	engine := NewEngine(
		observability.DefaultLogger(),
		catalog.NewStore(snap),
		lexical.NewMatcher(0.6),
		nil,
		nil,
		cache.NewMemoryClient(100),
		Config{CacheResults: true},
	)
	ctx := context.Background()

	first, err := engine.Resolve(ctx, "джонни", profile.Profile{}, 5)
	require.NoError(t, err)

	// Same normal form, different raw spelling: the cached ranking serves,
	// but the result echoes the caller's own query text.
	second, err := engine.Resolve(ctx, "Джонни", profile.Profile{}, 5)
	require.NoError(t, err)
	assert.Equal(t, "Джонни", second.Query)
	assert.Equal(t, first.Candidates, second.Candidates)
}

func TestResolve_BoostNeverLiftsAboveExact(t *testing.T) {
	engine, _ := newTestEngine(t, nil, Config{PersonalBoostMax: 0.05})

	result, err := engine.Resolve(context.Background(), "джонни", profile.Profile{OutletType: "магазин"}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)

	assert.Equal(t, "Johnnie Walker", result.Candidates[0].Brand)
	for _, c := range result.Candidates[1:] {
		assert.Less(t, c.Score, result.Candidates[0].Score)
	}
}

// flakyBackend serves until err is set.
type flakyBackend struct {
	id  string
	dim int
	err error
}

func (f *flakyBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, f.dim)
		for _, r := range text {
			v[int(r)%f.dim]++
		}
		out[i] = v
	}
	return out, nil
}

func (f *flakyBackend) ID() string     { return f.id }
func (f *flakyBackend) Dimension() int { return f.dim }

func (f *flakyBackend) Available(ctx context.Context) error {
	return f.err
}
