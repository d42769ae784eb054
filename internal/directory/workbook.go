package directory

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"janai-go/internal/types"
)

const (
	helplineSheet = "Helplines"
	schemeSheet   = "Schemes"
)

func fromWorkbook(f *excelize.File) (*Directory, error) {
	helplineRows, err := sheetRows(f, helplineSheet)
	if err != nil {
		return nil, err
	}
	schemeRows, err := sheetRows(f, schemeSheet)
	if err != nil {
		return nil, err
	}
	return newDirectory(parseHelplines(helplineRows), parseSchemes(schemeRows))
}

// sheetRows finds a sheet by name ignoring case. A missing sheet is an
// error; a sheet with only a header yields no rows.
func sheetRows(f *excelize.File, name string) ([][]string, error) {
	for _, s := range f.GetSheetList() {
		if !strings.EqualFold(strings.TrimSpace(s), name) {
			continue
		}
		rows, err := f.GetRows(s)
		if err != nil {
			return nil, fmt.Errorf("read %s rows: %w", name, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("sheet %s has no header", name)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("workbook has no %s sheet", name)
}

// columns maps header names to indexes. The first header containing any of
// a field's hints wins.
type columns map[string]int

func detect(header []string, hints map[string][]string) columns {
	cols := columns{}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		for field, words := range hints {
			if _, taken := cols[field]; taken {
				continue
			}
			for _, w := range words {
				if strings.Contains(l, w) {
					cols[field] = i
					break
				}
			}
		}
	}
	return cols
}

func (c columns) get(row []string, field string) string {
	i, ok := c[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var helplineHints = map[string][]string{
	"service":      {"service", "helpline name"},
	"number":       {"number", "phone"},
	"level":        {"level", "scope"},
	"state":        {"state", "region"},
	"notes":        {"note", "description"},
	"website":      {"website", "url", "link"},
	"email":        {"email", "mail"},
	"availability": {"availability", "hours", "timing"},
}

func parseHelplines(rows [][]string) []types.HelplineEntry {
	cols := detect(rows[0], helplineHints)
	var out []types.HelplineEntry
	for _, r := range rows[1:] {
		h := types.HelplineEntry{
			Service:      cols.get(r, "service"),
			Number:       cols.get(r, "number"),
			State:        cols.get(r, "state"),
			Notes:        cols.get(r, "notes"),
			Website:      cols.get(r, "website"),
			Email:        cols.get(r, "email"),
			Availability: cols.get(r, "availability"),
		}
		// blank rows are common at the end of hand edited sheets
		if h.Service == "" && h.Number == "" {
			continue
		}
		switch strings.ToLower(cols.get(r, "level")) {
		case "state":
			h.Level = types.LevelState
		case "central", "national":
			h.Level = types.LevelCentral
		}
		out = append(out, h)
	}
	return out
}

var schemeHints = map[string][]string{
	"name":        {"name", "scheme"},
	"category":    {"category", "type"},
	"description": {"description", "about"},
	"eligibility": {"eligib"},
	"benefits":    {"benefit"},
	"website":     {"website", "url", "link"},
}

func parseSchemes(rows [][]string) []types.Scheme {
	cols := detect(rows[0], schemeHints)
	var out []types.Scheme
	for _, r := range rows[1:] {
		s := types.Scheme{
			Name:        cols.get(r, "name"),
			Category:    cols.get(r, "category"),
			Description: cols.get(r, "description"),
			Eligibility: cols.get(r, "eligibility"),
			Benefits:    cols.get(r, "benefits"),
			Website:     cols.get(r, "website"),
		}
		if s.Name == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
