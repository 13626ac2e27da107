package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// ErrLoad indicates an unreadable or malformed catalog source. It is fatal at
// startup: the engine cannot serve without a valid catalog.
var ErrLoad = errors.New("catalog load failed")

// Load parses a JSON catalog source into an immutable Snapshot. The source is
// an array of brand records. Missing required fields, duplicate canonical
// names, and unknown categories all fail with ErrLoad.
func Load(r io.Reader) (*Snapshot, error) {
	var records []BrandRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	snap := &Snapshot{
		brands:   make(map[string]*BrandRecord, len(records)),
		aliases:  make(map[string][]string),
		loadedAt: time.Now(),
	}

	for i := range records {
		rec := records[i]
		if strings.TrimSpace(rec.Name) == "" {
			return nil, fmt.Errorf("%w: record %d has no name", ErrLoad, i)
		}
		if rec.Category == "" {
			return nil, fmt.Errorf("%w: brand %q has no category", ErrLoad, rec.Name)
		}
		if !ValidCategory(rec.Category) {
			return nil, fmt.Errorf("%w: brand %q has unknown category %q", ErrLoad, rec.Name, rec.Category)
		}
		if strings.TrimSpace(rec.Description) == "" {
			return nil, fmt.Errorf("%w: brand %q has no description", ErrLoad, rec.Name)
		}
		if _, dup := snap.brands[rec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate brand %q", ErrLoad, rec.Name)
		}

		snap.brands[rec.Name] = &rec
		snap.indexAlias(rec.Name, rec.Name)
		for _, alias := range rec.Aliases {
			snap.indexAlias(alias, rec.Name)
		}
	}

	for key := range snap.aliases {
		sort.Strings(snap.aliases[key])
	}

	return snap, nil
}

// LoadFile reads and parses the catalog source at path.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()
	return Load(f)
}

func (s *Snapshot) indexAlias(alias, owner string) {
	key := Normalize(alias)
	if key == "" {
		return
	}
	for _, existing := range s.aliases[key] {
		if existing == owner {
			return
		}
	}
	s.aliases[key] = append(s.aliases[key], owner)
}
