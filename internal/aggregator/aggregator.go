// Package aggregator summarises a user's complaints for the tracking view.
package aggregator

import (
	"strings"

	"janai-go/internal/types"
)

type Summary struct {
	Total          int                           `json:"total"`
	ByStatus       map[types.ComplaintStatus]int `json:"by_status"`
	ByCategory     map[string]int                `json:"by_category"`
	OpenByCategory map[string]int                `json:"open_by_category"`
	ByPinCode      map[string]int                `json:"by_pin_code"`
	ResolutionRate float64                       `json:"resolution_rate"`
}

// Open is the number of complaints not yet resolved.
func (s Summary) Open() int { return s.Total - s.ByStatus[types.StatusResolved] }

func Aggregate(complaints []types.Complaint) Summary {
	s := Summary{
		ByStatus:       map[types.ComplaintStatus]int{},
		ByCategory:     map[string]int{},
		OpenByCategory: map[string]int{},
		ByPinCode:      map[string]int{},
	}
	for _, c := range complaints {
		s.Total++
		status := c.Status
		if status == "" {
			status = types.StatusSubmitted
		}
		s.ByStatus[status]++
		cat := strings.TrimSpace(c.Category)
		if cat == "" {
			cat = "Uncategorised"
		}
		s.ByCategory[cat]++
		if status != types.StatusResolved {
			s.OpenByCategory[cat]++
		}
		if pin := strings.TrimSpace(c.Address.PinCode); pin != "" {
			s.ByPinCode[pin]++
		}
	}
	if s.Total > 0 {
		s.ResolutionRate = float64(s.ByStatus[types.StatusResolved]) / float64(s.Total)
	}
	return s
}
