// Package catalog provides the immutable brand catalog snapshot and the
// exact-match alias index derived from it.
package catalog

import (
	"sort"
	"time"
)

// Category is the fixed product category enumeration. Values match the
// catalog source labels used by the sales team.
type Category string

const (
	CategoryWhisky  Category = "Виски"
	CategoryVodka   Category = "Водка"
	CategoryRum     Category = "Ром"
	CategoryGin     Category = "Джин"
	CategoryTequila Category = "Текила"
	CategoryLiqueur Category = "Ликёр"
	CategoryWine    Category = "Вино"
	CategoryBeer    Category = "Пиво"
)

var validCategories = map[Category]struct{}{
	CategoryWhisky:  {},
	CategoryVodka:   {},
	CategoryRum:     {},
	CategoryGin:     {},
	CategoryTequila: {},
	CategoryLiqueur: {},
	CategoryWine:    {},
	CategoryBeer:    {},
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	_, ok := validCategories[c]
	return ok
}

// BrandRecord is a single catalog entry. Name is the canonical identifier,
// unique within a snapshot.
type BrandRecord struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
	MediaRef    string   `json:"media_ref,omitempty"`
}

// Snapshot is an immutable view of the catalog plus the derived alias index.
// Snapshots are never mutated after construction; reloads build a new one and
// publish it through Store.
type Snapshot struct {
	brands   map[string]*BrandRecord
	aliases  map[string][]string // normalized alias -> sorted owner names
	loadedAt time.Time
}

// Get returns the record for a canonical brand name, or nil when absent.
func (s *Snapshot) Get(name string) *BrandRecord {
	return s.brands[name]
}

// Len returns the number of brands in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.brands)
}

// LoadedAt returns the time the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Brands returns all records ordered by canonical name.
func (s *Snapshot) Brands() []*BrandRecord {
	out := make([]*BrandRecord, 0, len(s.brands))
	for _, rec := range s.brands {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupAlias returns the canonical names owning the given normalized alias.
// An alias shared by several brands returns all owners; disambiguation is the
// ranking pipeline's job, never silent dropping.
func (s *Snapshot) LookupAlias(normalized string) []string {
	return s.aliases[normalized]
}

// Categories returns the distinct categories present, sorted.
func (s *Snapshot) Categories() []Category {
	seen := make(map[Category]struct{})
	for _, rec := range s.brands {
		seen[rec.Category] = struct{}{}
	}
	out := make([]Category, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ByCategory returns canonical names in the given category, sorted.
func (s *Snapshot) ByCategory(c Category) []string {
	var out []string
	for name, rec := range s.brands {
		if rec.Category == c {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
