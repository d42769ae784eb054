// Package language holds the registry of supported input languages.
package language

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	xlanguage "golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"janai-go/internal/types"
)

// FallbackRegion is used for languages without a regional mapping.
const FallbackRegion = "India"

//go:embed languages.yaml
var embedded string

type document struct {
	Default   string                  `yaml:"default"`
	Languages []types.LanguageProfile `yaml:"languages"`
}

// Registry is an immutable code -> profile table.
type Registry struct {
	profiles    map[string]types.LanguageProfile
	order       []string
	defaultCode string

	matcher    xlanguage.Matcher
	matchCodes []string
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := Load(strings.NewReader(embedded))
	if err != nil {
		panic(fmt.Sprintf("language: embedded registry: %v", err))
	}
	return r
})

// Default returns the registry built from the embedded language table.
func Default() *Registry { return defaultRegistry() }

// Load decodes a registry document and validates it.
func Load(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("language: decode yaml: %w", err)
	}

	reg := &Registry{profiles: make(map[string]types.LanguageProfile, len(doc.Languages))}
	var errs []error
	for i, p := range doc.Languages {
		p.Code = strings.TrimSpace(p.Code)
		switch {
		case p.Code == "":
			errs = append(errs, fmt.Errorf("languages[%d]: code is required", i))
			continue
		case strings.TrimSpace(p.DisplayName) == "":
			errs = append(errs, fmt.Errorf("languages[%d] %q: display_name is required", i, p.Code))
			continue
		}
		if _, dup := reg.profiles[p.Code]; dup {
			errs = append(errs, fmt.Errorf("languages[%d]: duplicate code %q", i, p.Code))
			continue
		}
		if strings.TrimSpace(p.Region) == "" {
			p.Region = FallbackRegion
		}
		for k, w := range p.Keywords {
			p.Keywords[k] = strings.ToLower(w)
		}
		reg.profiles[p.Code] = p
		reg.order = append(reg.order, p.Code)
	}
	if len(reg.order) == 0 {
		errs = append(errs, errors.New("no languages defined"))
	}
	reg.defaultCode = doc.Default
	if _, ok := reg.profiles[reg.defaultCode]; !ok && len(reg.order) > 0 {
		errs = append(errs, fmt.Errorf("default language %q is not defined", doc.Default))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("language: %w", err)
	}

	reg.buildMatcher()
	return reg, nil
}

// buildMatcher indexes every profile whose code is a valid BCP 47 tag, with
// the default language first so that it wins when nothing matches.
func (r *Registry) buildMatcher() {
	codes := append([]string{r.defaultCode}, r.order...)
	var tags []xlanguage.Tag
	seen := map[string]bool{}
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		tag, err := xlanguage.Parse(code)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		r.matchCodes = append(r.matchCodes, code)
	}
	r.matcher = xlanguage.NewMatcher(tags)
}

func (r *Registry) Lookup(code string) (types.LanguageProfile, bool) {
	p, ok := r.profiles[code]
	return p, ok
}

// Profiles returns all profiles in declaration order.
func (r *Registry) Profiles() []types.LanguageProfile {
	out := make([]types.LanguageProfile, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.profiles[code])
	}
	return out
}

func (r *Registry) DefaultCode() string { return r.defaultCode }

// DisplayName falls back to the default language's name for unknown codes.
func (r *Registry) DisplayName(code string) string {
	if p, ok := r.profiles[code]; ok {
		return p.DisplayName
	}
	return r.profiles[r.defaultCode].DisplayName
}

// RegionFor resolves the fixed language -> region mapping.
func (r *Registry) RegionFor(code string) string {
	if p, ok := r.profiles[code]; ok {
		return p.Region
	}
	return FallbackRegion
}

// Preferred picks the profile best matching the given BCP 47 tags or
// Accept-Language strings. The default profile is returned when nothing matches.
func (r *Registry) Preferred(tags ...string) types.LanguageProfile {
	_, idx := xlanguage.MatchStrings(r.matcher, tags...)
	if idx < 0 || idx >= len(r.matchCodes) {
		return r.profiles[r.defaultCode]
	}
	return r.profiles[r.matchCodes[idx]]
}

// Detect scores every profile by how many of its keywords appear as words
// in text. Ties resolve in declaration order.
func (r *Registry) Detect(text string) (types.LanguageProfile, bool) {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsMark(c)
	}) {
		words[w] = true
	}
	if len(words) == 0 {
		return types.LanguageProfile{}, false
	}

	best, bestScore := "", 0
	for _, code := range r.order {
		score := 0
		for _, kw := range r.profiles[code].Keywords {
			if words[kw] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = code, score
		}
	}
	if best == "" {
		return types.LanguageProfile{}, false
	}
	return r.profiles[best], true
}
