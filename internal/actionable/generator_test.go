package actionable

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"janai-go/internal/aggregator"
	"janai-go/internal/types"
)

func complaints(pairs ...string) []types.Complaint {
	var out []types.Complaint
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, types.Complaint{Category: pairs[i], Status: types.ComplaintStatus(pairs[i+1])})
	}
	return out
}

func TestGenerateCallsOutBacklog(t *testing.T) {
	s := aggregator.Aggregate(complaints(
		"Water", "Submitted",
		"Water", "Pending",
		"Roads", "Submitted",
		"Electricity", "Issue Resolved",
	))
	card := Generate(s)
	assert.Contains(t, card.Insight, "2 of 3 open complaints are about Water")
	assert.Contains(t, card.Action, "Water")
}

func TestGenerateSpreadBacklog(t *testing.T) {
	s := aggregator.Aggregate(complaints(
		"Water", "Submitted", "Roads", "Submitted", "Health", "Submitted",
		"Transport", "Submitted", "Electricity", "Submitted",
	))
	card := Generate(s)
	assert.Equal(t, "5 open complaints spread across 5 categories", card.Insight)
}

func TestGenerateNothingOpen(t *testing.T) {
	card := Generate(aggregator.Aggregate(complaints("Water", "Issue Resolved")))
	assert.Equal(t, "No open complaints", card.Insight)
}
