// Package lexical scores approximate string similarity between a free-text
// query and brand names or aliases. The scorer is tolerant of misspellings,
// word reordering, and partial mentions.
package lexical

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/brendbot/brand-engine/internal/catalog"
)

// DefaultThreshold is the minimum similarity for a lexical match to count.
// Chosen so obviously unrelated strings never contribute candidates.
const DefaultThreshold = 0.6

// partialScale discounts substring matches against full-string matches.
const partialScale = 0.9

// Matcher computes similarity scores in [0,1].
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher with the given acceptance threshold.
// Non-positive thresholds fall back to DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Score returns the similarity between query and candidate in [0,1]. It takes
// the best of a plain ratio, a token-sort ratio (reordering tolerant), a
// token-set ratio (subset tolerant), and a discounted sliding-window partial
// ratio (substring tolerant).
func (m *Matcher) Score(query, candidate string) float64 {
	q := catalog.NormalizeWords(query)
	c := catalog.NormalizeWords(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1
	}

	best := ratio(q, c)

	if ts := ratio(tokenSort(q), tokenSort(c)); ts > best {
		best = ts
	}
	if ts := tokenSetRatio(q, c); ts > best {
		best = ts
	}
	if p := partialRatio(q, c) * partialScale; p > best {
		best = p
	}

	return best
}

// ScoreBrand evaluates the query against the brand name and every alias and
// returns the maximum similarity together with the string that achieved it.
func (m *Matcher) ScoreBrand(query string, rec *catalog.BrandRecord) (float64, string) {
	best := m.Score(query, rec.Name)
	matched := rec.Name

	for _, alias := range rec.Aliases {
		if s := m.Score(query, alias); s > best {
			best = s
			matched = alias
		}
	}

	return best, matched
}

// Accepts reports whether a score clears the acceptance threshold.
func (m *Matcher) Accepts(score float64) bool {
	return score >= m.threshold
}

// ratio is the normalized Levenshtein similarity between two strings.
func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// tokenSort joins the sorted tokens of s.
func tokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// tokenSetRatio compares the shared-token core against each full token set.
// A query whose tokens are a subset of the candidate's scores 1.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	var common, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	if len(common) == 0 {
		return 0
	}

	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	core := strings.Join(common, " ")
	full1 := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	best := ratio(full1, full2)
	if r := ratio(core, full1); r > best {
		best = r
	}
	if r := ratio(core, full2); r > best {
		best = r
	}
	return best
}

// partialRatio slides the shorter string across same-length rune windows of
// the longer and returns the best window similarity.
func partialRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	if len(ra) == len(rb) {
		return ratio(string(ra), string(rb))
	}

	short := string(ra)
	var best float64
	// Windows one rune shorter or longer than the query absorb boundary
	// insertions and deletions.
	for _, width := range []int{len(ra) - 1, len(ra), len(ra) + 1} {
		if width < 1 || width > len(rb) {
			continue
		}
		for i := 0; i+width <= len(rb); i++ {
			if r := ratio(short, string(rb[i:i+width])); r > best {
				best = r
				if best == 1 {
					return best
				}
			}
		}
	}
	return best
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[tok] = struct{}{}
	}
	return out
}
