// Package directory serves helplines and welfare schemes from a local
// catalogue: the embedded defaults or an operator supplied xlsx workbook.
package directory

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"janai-go/internal/apperr"
	"janai-go/internal/types"
)

// Source is satisfied by the local Directory and by the remote backend.
type Source interface {
	Helplines(ctx context.Context, region string) ([]types.HelplineEntry, error)
	Schemes(ctx context.Context, profile types.SchemeProfile) ([]types.Scheme, error)
}

//go:embed builtin.yaml
var builtinYAML []byte

var builtin = sync.OnceValue(func() *Directory {
	d, err := Parse(bytes.NewReader(builtinYAML))
	if err != nil {
		panic("directory: builtin catalogue: " + err.Error())
	}
	return d
})

type Directory struct {
	helplines []types.HelplineEntry
	schemes   []types.Scheme
}

// Builtin returns the catalogue compiled into the binary.
func Builtin() *Directory { return builtin() }

type document struct {
	Helplines []types.HelplineEntry `yaml:"helplines"`
	Schemes   []types.Scheme        `yaml:"schemes"`
}

// Parse reads a YAML catalogue with top-level helplines and schemes lists.
func Parse(r io.Reader) (*Directory, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	return newDirectory(doc.Helplines, doc.Schemes)
}

func newDirectory(helplines []types.HelplineEntry, schemes []types.Scheme) (*Directory, error) {
	d := &Directory{}
	for i, h := range helplines {
		h.Service = strings.TrimSpace(h.Service)
		h.Number = strings.TrimSpace(h.Number)
		h.State = strings.TrimSpace(h.State)
		if h.Service == "" || h.Number == "" {
			return nil, fmt.Errorf("helpline %d: service and number are required", i+1)
		}
		switch {
		case h.Level == "" && h.State != "":
			h.Level = types.LevelState
		case h.Level == "":
			h.Level = types.LevelCentral
		}
		if h.Level == types.LevelState && h.State == "" {
			return nil, fmt.Errorf("helpline %q: state level entry without a state", h.Service)
		}
		d.helplines = append(d.helplines, h)
	}
	for i, s := range schemes {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("scheme %d: name is required", i+1)
		}
		d.schemes = append(d.schemes, s)
	}
	return d, nil
}

// Open loads a workbook from disk. See ReadWorkbook for the layout.
func Open(path string) (*Directory, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return fromWorkbook(f)
}

// ReadWorkbook loads a workbook with a "Helplines" sheet and a "Schemes"
// sheet. Columns are found by header name, so order does not matter.
func ReadWorkbook(r io.Reader) (*Directory, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return fromWorkbook(f)
}

// Helplines returns every Central entry plus the State entries of region.
func (d *Directory) Helplines(_ context.Context, region string) ([]types.HelplineEntry, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return nil, apperr.Input("directory.helplines", "region is required")
	}
	var out []types.HelplineEntry
	for _, h := range d.helplines {
		if h.Level == types.LevelCentral || strings.EqualFold(h.State, region) {
			out = append(out, h)
		}
	}
	return out, nil
}

// Regions lists the states that have at least one State entry.
func (d *Directory) Regions() []string {
	seen := map[string]bool{}
	var out []string
	for _, h := range d.helplines {
		if h.Level == types.LevelState && !seen[strings.ToLower(h.State)] {
			seen[strings.ToLower(h.State)] = true
			out = append(out, h.State)
		}
	}
	return out
}

func (d *Directory) Len() (helplines, schemes int) { return len(d.helplines), len(d.schemes) }
