// Package resolver orchestrates the cascading brand resolution pipeline:
// exact alias lookup, lexical matching, and semantic nearest-neighbor search,
// merged into one deterministic ranking with personalization re-weighting.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brendbot/brand-engine/internal/artifact"
	"github.com/brendbot/brand-engine/internal/cache"
	"github.com/brendbot/brand-engine/internal/catalog"
	"github.com/brendbot/brand-engine/internal/lexical"
	"github.com/brendbot/brand-engine/internal/observability"
	"github.com/brendbot/brand-engine/internal/profile"
	"github.com/brendbot/brand-engine/internal/semantic"
)

// Strategy tier names, recorded on results for observability.
const (
	TierExact    = "exact"
	TierLexical  = "lexical"
	TierSemantic = "semantic"
)

// Candidate is one ranked brand match.
type Candidate struct {
	Brand         string           `json:"brand"`
	DisplayName   string           `json:"display_name"`
	Category      catalog.Category `json:"category"`
	MatchedAlias  string           `json:"matched_alias,omitempty"`
	ExactScore    float64          `json:"exact_score,omitempty"`
	LexicalScore  float64          `json:"lexical_score,omitempty"`
	SemanticScore float64          `json:"semantic_score,omitempty"`
	Score         float64          `json:"score"`
}

// Result is the outcome of one resolve call. An empty candidate list is a
// valid outcome, distinct from a strategy outage.
type Result struct {
	Query      string      `json:"query"`
	Candidates []Candidate `json:"candidates"`
	Tiers      []string    `json:"tiers"` // strategies that actually served
	LatencyMs  int64       `json:"latency_ms"`
}

// Config holds ranking pipeline settings.
type Config struct {
	TopK             int
	ExactScore       float64
	SemanticWeight   float64
	LexicalWeight    float64
	SemanticFloor    float64
	SemanticK        int
	PersonalBoostMax float64
	CacheResults     bool
	CacheTTL         time.Duration
}

// Engine is the resolution engine. Resolve is safe for unbounded concurrent
// use; Rebuild is the only mutating operation and publishes its result via an
// atomic pointer swap.
type Engine struct {
	logger    *observability.Logger
	catalog   *catalog.Store
	matcher   *lexical.Matcher
	chain     []semantic.Backend
	artifacts *artifact.Store // nil disables persistence
	cache     cache.Client    // nil disables result caching
	cfg       Config

	index   atomic.Pointer[semantic.Index]
	buildMu sync.Mutex
}

// NewEngine wires the resolution engine.
func NewEngine(
	logger *observability.Logger,
	store *catalog.Store,
	matcher *lexical.Matcher,
	chain []semantic.Backend,
	artifacts *artifact.Store,
	resultCache cache.Client,
	cfg Config,
) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ExactScore <= 0 {
		cfg.ExactScore = 1.0
	}
	if cfg.SemanticWeight <= 0 {
		cfg.SemanticWeight = 0.55
	}
	if cfg.LexicalWeight <= 0 {
		cfg.LexicalWeight = 0.45
	}
	if cfg.SemanticK <= 0 {
		cfg.SemanticK = 10
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}

	return &Engine{
		logger:    logger.WithComponent("resolver"),
		catalog:   store,
		matcher:   matcher,
		chain:     chain,
		artifacts: artifacts,
		cache:     resultCache,
		cfg:       cfg,
	}
}

// aggregate collects per-strategy raw scores for one brand during a resolve.
type aggregate struct {
	exact    float64
	lexical  float64
	semantic float64
	alias    string
}

// Resolve turns free-text query into a ranked candidate list. Backend and
// index failures are absorbed here and converted into degraded-but-successful
// results; the caller only ever sees a ranked list or an empty one.
func (e *Engine) Resolve(ctx context.Context, query string, prof profile.Profile, k int) (*Result, error) {
	start := time.Now()
	if k <= 0 {
		k = e.cfg.TopK
	}

	snap := e.catalog.Current()
	normalized := catalog.Normalize(query)

	cacheKey := e.resultCacheKey(snap, normalized, prof, k)
	if cached := e.checkCache(ctx, cacheKey); cached != nil {
		// The key is the normal form, so the stored Query may be a different
		// raw spelling than the caller's.
		cached.Query = query
		cached.LatencyMs = time.Since(start).Milliseconds()
		return cached, nil
	}

	agg := make(map[string]*aggregate)
	ensure := func(brand string) *aggregate {
		a, ok := agg[brand]
		if !ok {
			a = &aggregate{}
			agg[brand] = a
		}
		return a
	}

	var tiers []string

	// Exact alias hits. Ambiguous aliases contribute every owner; the other
	// strategies still run to fill the ranking slots below the exact tier.
	if normalized != "" {
		owners := snap.LookupAlias(normalized)
		for _, owner := range owners {
			a := ensure(owner)
			a.exact = 1
			a.alias = matchedAliasFor(snap.Get(owner), normalized)
		}
		if len(owners) > 0 {
			tiers = append(tiers, TierExact)
		}
	}

	// Lexical pass over the full catalog. Below-threshold brands are
	// discarded from this strategy, not down-ranked.
	lexicalHits := 0
	for _, rec := range snap.Brands() {
		score, matched := e.matcher.ScoreBrand(query, rec)
		if !e.matcher.Accepts(score) {
			continue
		}
		lexicalHits++
		a := ensure(rec.Name)
		if score > a.lexical {
			a.lexical = score
			if a.alias == "" && matched != rec.Name {
				a.alias = matched
			}
		}
	}
	if lexicalHits > 0 {
		tiers = append(tiers, TierLexical)
	}

	// Semantic pass, when an index is live and its backend reachable. An
	// outage degrades to exact+lexical and is logged, never surfaced.
	if ix := e.index.Load(); ix != nil {
		matches, err := ix.Query(ctx, query, e.cfg.SemanticK)
		switch {
		case errors.Is(err, semantic.ErrBackendUnavailable):
			e.logger.Warn().Err(err).
				Str("backend", ix.Artifact().BackendID).
				Msg("Semantic backend unreachable, degrading to exact+lexical")
		case err != nil:
			e.logger.Warn().Err(err).Msg("Semantic query failed, degrading to exact+lexical")
		default:
			semanticHits := 0
			for _, m := range matches {
				if m.Similarity < e.cfg.SemanticFloor {
					continue
				}
				semanticHits++
				a := ensure(m.Brand)
				if m.Similarity > a.semantic {
					a.semantic = m.Similarity
				}
			}
			if semanticHits > 0 {
				tiers = append(tiers, TierSemantic)
			}
		}
	} else {
		e.logger.Debug().Msg("No semantic index loaded, resolving with exact+lexical only")
	}

	candidates := e.rank(snap, agg, prof, k)

	result := &Result{
		Query:      query,
		Candidates: candidates,
		Tiers:      tiers,
		LatencyMs:  time.Since(start).Milliseconds(),
	}

	e.storeCache(ctx, cacheKey, result)

	e.logger.Info().
		Str("query", query).
		Int("candidates", len(candidates)).
		Strs("tiers", tiers).
		Int64("latency_ms", result.LatencyMs).
		Msg("Resolve complete")

	return result, nil
}

// rank merges per-strategy scores, applies the bounded personalization boost,
// and produces the deterministic top-k ordering.
func (e *Engine) rank(snap *catalog.Snapshot, agg map[string]*aggregate, prof profile.Profile, k int) []Candidate {
	candidates := make([]Candidate, 0, len(agg))
	for brand, a := range agg {
		rec := snap.Get(brand)
		if rec == nil {
			// A stale artifact can reference brands removed by a reload.
			continue
		}

		var combined float64
		if a.exact > 0 {
			// Exact hits are pinned to the fixed maximal score; the boost
			// never applies, so nothing can reorder them below non-exacts.
			combined = e.cfg.ExactScore
		} else {
			combined = e.cfg.SemanticWeight*a.semantic + e.cfg.LexicalWeight*a.lexical
			combined += e.personalBoost(rec, prof)
			if combined >= e.cfg.ExactScore {
				combined = e.cfg.ExactScore - 1e-6
			}
		}

		candidates = append(candidates, Candidate{
			Brand:         brand,
			DisplayName:   rec.Name,
			Category:      rec.Category,
			MatchedAlias:  a.alias,
			ExactScore:    a.exact,
			LexicalScore:  a.lexical,
			SemanticScore: a.semantic,
			Score:         combined,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Brand < candidates[j].Brand
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates
}

// personalBoost derives a small bounded additive boost from matching the
// brand against the rep's profile. The neutral profile yields zero.
func (e *Engine) personalBoost(rec *catalog.BrandRecord, prof profile.Profile) float64 {
	if prof.IsZero() || e.cfg.PersonalBoostMax <= 0 {
		return 0
	}

	var share float64
	if cats, ok := outletAffinity[catalog.Normalize(prof.OutletType)]; ok {
		for _, c := range cats {
			if rec.Category == c {
				share += 0.6
				break
			}
		}
	}
	if prof.Region != "" {
		needle := catalog.NormalizeWords(prof.Region)
		if needle != "" && containsWords(rec.Description, needle) {
			share += 0.4
		}
	}
	if share > 1 {
		share = 1
	}
	return e.cfg.PersonalBoostMax * share
}

// outletAffinity maps normalized outlet types to the categories that sell
// best in them. Keys use the same normalization as alias lookups.
var outletAffinity = map[string][]catalog.Category{
	catalog.Normalize("бар"):         {catalog.CategoryWhisky, catalog.CategoryRum, catalog.CategoryGin, catalog.CategoryTequila},
	catalog.Normalize("ресторан"):    {catalog.CategoryWine, catalog.CategoryWhisky, catalog.CategoryLiqueur},
	catalog.Normalize("магазин"):     {catalog.CategoryVodka, catalog.CategoryBeer, catalog.CategoryWine},
	catalog.Normalize("супермаркет"): {catalog.CategoryVodka, catalog.CategoryBeer, catalog.CategoryWine},
}

func containsWords(haystack, needle string) bool {
	h := " " + catalog.NormalizeWords(haystack) + " "
	n := " " + needle + " "
	return strings.Contains(h, n)
}

// matchedAliasFor finds the original alias string whose normal form produced
// the exact hit, for display purposes.
func matchedAliasFor(rec *catalog.BrandRecord, normalized string) string {
	if rec == nil {
		return ""
	}
	if catalog.Normalize(rec.Name) == normalized {
		return ""
	}
	for _, alias := range rec.Aliases {
		if catalog.Normalize(alias) == normalized {
			return alias
		}
	}
	return ""
}

func (e *Engine) resultCacheKey(snap *catalog.Snapshot, normalized string, prof profile.Profile, k int) string {
	if !e.cfg.CacheResults || e.cache == nil {
		return ""
	}
	builtAt := ""
	if ix := e.index.Load(); ix != nil {
		builtAt = ix.Artifact().BuiltAt.Format(time.RFC3339Nano)
	}
	return cache.Key("resolve",
		normalized,
		prof.Role, prof.Region, prof.OutletType,
		strconv.Itoa(k),
		snap.LoadedAt().Format(time.RFC3339Nano),
		builtAt,
	)
}

func (e *Engine) checkCache(ctx context.Context, key string) *Result {
	if key == "" {
		return nil
	}
	raw, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	return &r
}

func (e *Engine) storeCache(ctx context.Context, key string, r *Result) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, raw, e.cfg.CacheTTL); err != nil {
		e.logger.Debug().Err(err).Msg("Result cache write failed")
	}
}
