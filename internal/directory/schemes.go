package directory

import (
	"context"
	"strings"

	"janai-go/internal/apperr"
	"janai-go/internal/types"
)

// Occupations accepted by the scheme finder. Anything else is matched on
// age and gender alone.
const (
	Student       = "Student"
	Farmer        = "Farmer"
	Homemaker     = "Homemaker"
	Employee      = "Employee"
	SelfEmployed  = "Self Employed"
	BusinessOwner = "Business Owner"
	Retired       = "Retired"
)

// generalLimit caps the list for profiles no rule applies to.
const generalLimit = 8

var occupationCategories = map[string][]string{
	Student:       {"education", "scholarship", "skill"},
	Farmer:        {"agricultural", "crop", "rural", "kisan"},
	Homemaker:     {"women", "maternity", "family", "social security"},
	Employee:      {"skill", "entrepreneurship", "pension"},
	SelfEmployed:  {"skill", "entrepreneurship", "pension"},
	BusinessOwner: {"entrepreneurship", "startup", "skill"},
	Retired:       {"pension", "health", "social security"},
}

var (
	seniorCategories = []string{"pension", "health", "social security"}
	womenCategories  = []string{"women", "maternity", "girl child"}
)

// ValidateProfile reports the first missing field of p.
func ValidateProfile(p types.SchemeProfile) error {
	const op = "directory.schemes"
	switch {
	case strings.TrimSpace(p.Name) == "":
		return apperr.Input(op, "name is required")
	case p.Age <= 0:
		return apperr.Input(op, "age is required")
	case strings.TrimSpace(p.Gender) == "":
		return apperr.Input(op, "gender is required")
	case strings.TrimSpace(p.Occupation) == "":
		return apperr.Input(op, "occupation is required")
	}
	return nil
}

// Schemes returns the schemes whose category suits the profile.
func (d *Directory) Schemes(_ context.Context, p types.SchemeProfile) ([]types.Scheme, error) {
	if err := ValidateProfile(p); err != nil {
		return nil, err
	}
	return Match(d.schemes, p), nil
}

// Match applies the occupation rules to schemes in order.
func Match(schemes []types.Scheme, p types.SchemeProfile) []types.Scheme {
	out := []types.Scheme{}
	words, ok := occupationCategories[strings.TrimSpace(p.Occupation)]
	if !ok {
		switch {
		case p.Age >= 60:
			words = seniorCategories
		case strings.EqualFold(strings.TrimSpace(p.Gender), "female"):
			words = womenCategories
		default:
			n := min(len(schemes), generalLimit)
			return append(out, schemes[:n]...)
		}
	}
	for _, s := range schemes {
		if categoryHas(s.Category, words) {
			out = append(out, s)
		}
	}
	return out
}

func categoryHas(category string, words []string) bool {
	c := strings.ToLower(category)
	for _, w := range words {
		if strings.Contains(c, w) {
			return true
		}
	}
	return false
}
