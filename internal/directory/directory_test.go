package directory

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"janai-go/internal/apperr"
	"janai-go/internal/backend"
	"janai-go/internal/types"
)

var (
	_ Source = (*Directory)(nil)
	_ Source = (*backend.Client)(nil)
)

func services(hs []types.HelplineEntry) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Service)
	}
	return out
}

func names(ss []types.Scheme) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Name)
	}
	return out
}

func TestBuiltinHelplinesForRegion(t *testing.T) {
	hs, err := Builtin().Helplines(context.Background(), "uttar pradesh")
	require.NoError(t, err)

	assert.Contains(t, services(hs), "Emergency Response Support System (ERSS)")
	assert.Contains(t, services(hs), "UPPCL Electricity Complaints")
	assert.NotContains(t, services(hs), "MSEDCL Customer Care")
	for _, h := range hs {
		if h.Level == types.LevelState {
			assert.Equal(t, "Uttar Pradesh", h.State)
		}
	}
}

func TestUnknownRegionGetsCentralOnly(t *testing.T) {
	hs, err := Builtin().Helplines(context.Background(), "Atlantis")
	require.NoError(t, err)
	require.NotEmpty(t, hs)
	for _, h := range hs {
		assert.Equal(t, types.LevelCentral, h.Level)
	}
}

func TestBlankRegionIsInputError(t *testing.T) {
	_, err := Builtin().Helplines(context.Background(), "  ")
	assert.ErrorIs(t, err, apperr.ErrInput)
}

func TestRegions(t *testing.T) {
	regions := Builtin().Regions()
	assert.Contains(t, regions, "Maharashtra")
	assert.Contains(t, regions, "Tamil Nadu")
	assert.NotContains(t, regions, "")
}

func TestParseRejectsStateEntryWithoutState(t *testing.T) {
	_, err := Parse(strings.NewReader("helplines:\n  - {service: X, number: \"1\", level: State}\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("helplines:\n  - {service: X, number: \"1\", colour: red}\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestParseInfersLevel(t *testing.T) {
	d, err := Parse(strings.NewReader(`helplines:
  - {service: A, number: "1"}
  - {service: B, number: "2", state: Goa}
`))
	require.NoError(t, err)
	hs, err := d.Helplines(context.Background(), "Goa")
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, types.LevelCentral, hs[0].Level)
	assert.Equal(t, types.LevelState, hs[1].Level)
}

func TestSchemesByOccupation(t *testing.T) {
	d := Builtin()
	cases := []struct {
		profile types.SchemeProfile
		want    []string
	}{
		{
			types.SchemeProfile{Name: "Ravi", Age: 40, Gender: "Male", Occupation: Farmer},
			[]string{"PM-KISAN", "Pradhan Mantri Fasal Bima Yojana"},
		},
		{
			types.SchemeProfile{Name: "Kamla", Age: 66, Gender: "Female", Occupation: Retired},
			[]string{"Atal Pension Yojana", "Indira Gandhi National Old Age Pension", "Ayushman Bharat PM-JAY"},
		},
		{
			types.SchemeProfile{Name: "Asha", Age: 30, Gender: "Female", Occupation: Homemaker},
			[]string{"Pradhan Mantri Matru Vandana Yojana", "Mahila Shakti Kendra", "Indira Gandhi National Old Age Pension", "PM Ujjwala Yojana"},
		},
		{
			types.SchemeProfile{Name: "Meena", Age: 19, Gender: "Female", Occupation: Student},
			[]string{"National Scholarship Portal", "Skill India (PMKVY)"},
		},
		{
			types.SchemeProfile{Name: "Sunita", Age: 35, Gender: "Female", Occupation: "Artist"},
			[]string{"Pradhan Mantri Matru Vandana Yojana", "Beti Bachao Beti Padhao", "Mahila Shakti Kendra"},
		},
		{
			types.SchemeProfile{Name: "Hari", Age: 70, Gender: "Male", Occupation: "Artist"},
			[]string{"Atal Pension Yojana", "Indira Gandhi National Old Age Pension", "Ayushman Bharat PM-JAY"},
		},
	}
	for _, tc := range cases {
		got, err := d.Schemes(context.Background(), tc.profile)
		require.NoError(t, err)
		assert.Equal(t, tc.want, names(got), tc.profile.Occupation)
	}
}

func TestSchemesGeneralProfileIsCapped(t *testing.T) {
	got, err := Builtin().Schemes(context.Background(), types.SchemeProfile{Name: "Arun", Age: 28, Gender: "Male", Occupation: "Driver"})
	require.NoError(t, err)
	assert.Len(t, got, generalLimit)
}

func TestSchemesValidation(t *testing.T) {
	valid := types.SchemeProfile{Name: "A", Age: 30, Gender: "Male", Occupation: Farmer}
	for field, mutate := range map[string]func(*types.SchemeProfile){
		"name":       func(p *types.SchemeProfile) { p.Name = "" },
		"age":        func(p *types.SchemeProfile) { p.Age = 0 },
		"gender":     func(p *types.SchemeProfile) { p.Gender = " " },
		"occupation": func(p *types.SchemeProfile) { p.Occupation = "" },
	} {
		p := valid
		mutate(&p)
		_, err := Builtin().Schemes(context.Background(), p)
		require.Error(t, err, field)
		assert.ErrorIs(t, err, apperr.ErrInput)
		assert.Contains(t, err.Error(), field+" is required")
	}
}

func writeWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	_, err := f.NewSheet(helplineSheet)
	require.NoError(t, err)
	_, err = f.NewSheet(schemeSheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	helplines := [][]any{
		{"Phone Number", "Service", "State", "Level", "Notes"},
		{"112", "ERSS", "", "Central", "All emergencies"},
		{"1916", "Jal Board", "Delhi", "State", "Water supply"},
		{"", "", "", "", ""},
		{"1912", "PSPCL", "Punjab", "", "Power"},
	}
	for i, row := range helplines {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow(helplineSheet, cell, &row))
	}
	schemes := [][]any{
		{"Scheme Name", "Category", "Eligibility"},
		{"PM-KISAN", "Agricultural Income Support", "Small farmers"},
		{"", "Orphan row", ""},
	}
	for i, row := range schemes {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow(schemeSheet, cell, &row))
	}
	return f
}

func TestOpenWorkbook(t *testing.T) {
	f := writeWorkbook(t)
	path := filepath.Join(t.TempDir(), "directory.xlsx")
	require.NoError(t, f.SaveAs(path))

	d, err := Open(path)
	require.NoError(t, err)
	nh, ns := d.Len()
	assert.Equal(t, 3, nh)
	assert.Equal(t, 1, ns)

	hs, err := d.Helplines(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, []string{"ERSS", "Jal Board"}, services(hs))
	assert.Equal(t, "Water supply", hs[1].Notes)

	hs, err = d.Helplines(context.Background(), "Punjab")
	require.NoError(t, err)
	assert.Equal(t, []string{"ERSS", "PSPCL"}, services(hs))

	ss, err := d.Schemes(context.Background(), types.SchemeProfile{Name: "R", Age: 50, Gender: "Male", Occupation: Farmer})
	require.NoError(t, err)
	require.Len(t, ss, 1)
	assert.Equal(t, "Small farmers", ss[0].Eligibility)
}

func TestReadWorkbookMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ReadWorkbook(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Helplines")
}

func TestEveryRegionKeepsCentralEntries(t *testing.T) {
	d := Builtin()
	central := 0
	for _, h := range d.helplines {
		if h.Level == types.LevelCentral {
			central++
		}
	}

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("central entries are always listed", prop.ForAll(
		func(region string) bool {
			hs, err := d.Helplines(context.Background(), "r"+region)
			if err != nil {
				return false
			}
			n := 0
			for _, h := range hs {
				if h.Level == types.LevelCentral {
					n++
				} else if !strings.EqualFold(h.State, "r"+region) {
					return false
				}
			}
			return n == central
		},
		gen.AlphaString(),
	))
	properties.TestingRun(t)
}
