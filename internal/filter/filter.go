// Package filter narrows helpline and scheme records by issue category.
package filter

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var embedded string

// Searchable is implemented by records that can be matched by keyword.
type Searchable interface {
	SearchFields() (name, notes string)
}

// KeywordSets maps an issue category to the keywords that identify it.
type KeywordSets struct {
	byKey map[string][]string
	names []string
}

type entry struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

var defaultSets = sync.OnceValue(func() *KeywordSets {
	ks, err := Load(strings.NewReader(embedded))
	if err != nil {
		panic(fmt.Sprintf("filter: embedded keyword sets: %v", err))
	}
	return ks
})

func Default() *KeywordSets { return defaultSets() }

func Load(r io.Reader) (*KeywordSets, error) {
	var entries []entry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("filter: decode yaml: %w", err)
	}
	ks := &KeywordSets{byKey: make(map[string][]string, len(entries))}
	for _, e := range entries {
		key := normalize(e.Category)
		if key == "" {
			return nil, fmt.Errorf("filter: category name is required")
		}
		if _, dup := ks.byKey[key]; dup {
			return nil, fmt.Errorf("filter: duplicate category %q", e.Category)
		}
		words := make([]string, 0, len(e.Keywords))
		for _, w := range e.Keywords {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				words = append(words, w)
			}
		}
		ks.byKey[key] = words
		ks.names = append(ks.names, strings.TrimSpace(e.Category))
	}
	return ks, nil
}

// Categories lists the known categories in file order.
func (ks *KeywordSets) Categories() []string {
	return append([]string(nil), ks.names...)
}

// Known reports whether category has a keyword set.
func (ks *KeywordSets) Known(category string) bool {
	_, ok := ks.byKey[normalize(category)]
	return ok
}

// Keywords returns nil for unknown categories.
func (ks *KeywordSets) Keywords(category string) []string {
	return ks.byKey[normalize(category)]
}

func normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// Apply keeps the records matching category under ks. An empty category
// returns records unchanged; an unknown category matches nothing.
func Apply[T Searchable](ks *KeywordSets, records []T, category string) []T {
	if strings.TrimSpace(category) == "" {
		return records
	}
	keywords := ks.Keywords(category)
	out := make([]T, 0, len(records))
	for _, rec := range records {
		name, notes := rec.SearchFields()
		name, notes = strings.ToLower(name), strings.ToLower(notes)
		for _, kw := range keywords {
			if strings.Contains(name, kw) || strings.Contains(notes, kw) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// Filter applies the default keyword sets.
func Filter[T Searchable](records []T, category string) []T {
	return Apply(Default(), records, category)
}
