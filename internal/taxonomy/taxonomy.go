// Package taxonomy resolves free-form feature names, as produced by
// extractors and review tooling, to canonical feature rows. Lookups go
// through Unicode case folding so that Turkish feature labels match
// regardless of casing or stray diacritics.
package taxonomy

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/asimorth/competitor-lens/internal/model"
)

var (
	fold = cases.Fold()
	// strip combining marks so "Döviz" and "Doviz" resolve identically
	demark = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize produces the canonical lookup key for a feature name.
func Normalize(name string) string {
	s := fold.String(strings.TrimSpace(name))
	if out, _, err := transform.String(demark, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// Index is an immutable normalized-name lookup over the feature taxonomy.
// Build it once per batch; it is safe for concurrent readers.
type Index struct {
	byName   map[string]model.Feature
	byID     map[string]model.Feature
	features []model.Feature
	keys     []string
}

// NewIndex builds an Index from the full feature list. Later duplicates
// of a normalized name are ignored.
func NewIndex(features []model.Feature) *Index {
	idx := &Index{
		byName:   make(map[string]model.Feature, len(features)),
		byID:     make(map[string]model.Feature, len(features)),
		features: features,
	}
	for _, f := range features {
		key := Normalize(f.Name)
		if _, ok := idx.byName[key]; !ok {
			idx.byName[key] = f
		}
		idx.byID[f.ID] = f
		idx.keys = append(idx.keys, key)
	}
	return idx
}

// Resolve looks up a feature by free-form name. An exact normalized hit
// wins; otherwise the first feature whose name contains the guess (or
// vice versa) matches, so "Staking" still resolves "Staking Rewards".
func (idx *Index) Resolve(name string) (model.Feature, bool) {
	key := Normalize(name)
	if key == "" {
		return model.Feature{}, false
	}
	if f, ok := idx.byName[key]; ok {
		return f, true
	}
	for i, fk := range idx.keys {
		if strings.Contains(fk, key) || strings.Contains(key, fk) {
			return idx.features[i], true
		}
	}
	return model.Feature{}, false
}

// ByID looks up a feature by its identifier.
func (idx *Index) ByID(id string) (model.Feature, bool) {
	f, ok := idx.byID[id]
	return f, ok
}

// Features returns the indexed features in their original order.
func (idx *Index) Features() []model.Feature {
	return idx.features
}

// Names returns every canonical feature name, for extractor prompts.
func (idx *Index) Names() []string {
	names := make([]string, len(idx.features))
	for i, f := range idx.features {
		names[i] = f.Name
	}
	return names
}
