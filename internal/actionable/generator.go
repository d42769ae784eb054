package actionable

import (
	"fmt"
	"sort"

	"janai-go/internal/aggregator"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// backlogShare is the share of open complaints one category must hold
// before it is called out.
const backlogShare = 0.35

// Generate points at the category holding the largest open backlog.
func Generate(s aggregator.Summary) ActionCard {
	open := s.Open()
	if open == 0 {
		return ActionCard{
			Insight: "No open complaints",
			Action:  "Nothing to follow up",
			Impact:  "None",
		}
	}
	cats := make([]string, 0, len(s.OpenByCategory))
	for c := range s.OpenByCategory {
		cats = append(cats, c)
	}
	// ties go to the alphabetically first category so output is stable
	sort.Slice(cats, func(i, j int) bool {
		ci, cj := s.OpenByCategory[cats[i]], s.OpenByCategory[cats[j]]
		if ci != cj {
			return ci > cj
		}
		return cats[i] < cats[j]
	})
	worst := cats[0]
	share := float64(s.OpenByCategory[worst]) / float64(open)
	if share >= backlogShare {
		return ActionCard{
			Insight: fmt.Sprintf("%d of %d open complaints are about %s (%.0f%%)", s.OpenByCategory[worst], open, worst, share*100),
			Action:  fmt.Sprintf("Follow up with the %s department and mark fixed issues resolved", worst),
			Impact:  "Clears the largest part of the backlog",
		}
	}
	return ActionCard{
		Insight: fmt.Sprintf("%d open complaints spread across %d categories", open, len(cats)),
		Action:  "Review open complaints oldest first",
		Impact:  "Steady reduction of the backlog",
	}
}
