package aggregator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"janai-go/internal/types"
)

func TestAggregate(t *testing.T) {
	cs := []types.Complaint{
		{ID: "1", Category: "Water", Status: types.StatusResolved, Address: types.Address{PinCode: "226001"}},
		{ID: "2", Category: "Water", Status: types.StatusSubmitted, Address: types.Address{PinCode: "226001"}},
		{ID: "3", Category: "Electricity", Status: types.StatusPending},
		{ID: "4", Category: " ", Status: ""},
	}
	s := Aggregate(cs)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.ByStatus[types.StatusResolved])
	assert.Equal(t, 2, s.ByStatus[types.StatusSubmitted])
	assert.Equal(t, 1, s.ByStatus[types.StatusPending])
	assert.Equal(t, map[string]int{"Water": 2, "Electricity": 1, "Uncategorised": 1}, s.ByCategory)
	assert.Equal(t, map[string]int{"Water": 1, "Electricity": 1, "Uncategorised": 1}, s.OpenByCategory)
	assert.Equal(t, map[string]int{"226001": 2}, s.ByPinCode)
	assert.InDelta(t, 0.25, s.ResolutionRate, 1e-9)
	assert.Equal(t, 3, s.Open())
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.ResolutionRate)
	assert.Zero(t, s.Open())
}

func TestAggregateCountsAddUp(t *testing.T) {
	statuses := []types.ComplaintStatus{types.StatusSubmitted, types.StatusPending, types.StatusResolved}
	complaintGen := gopter.CombineGens(gen.IntRange(0, 2), gen.OneConstOf("Water", "Roads", "Health", "")).
		Map(func(v []interface{}) types.Complaint {
			return types.Complaint{Status: statuses[v[0].(int)], Category: v[1].(string)}
		})

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("status and category counts sum to total", prop.ForAll(
		func(cs []types.Complaint) bool {
			s := Aggregate(cs)
			byStatus, byCat := 0, 0
			for _, n := range s.ByStatus {
				byStatus += n
			}
			for _, n := range s.ByCategory {
				byCat += n
			}
			return byStatus == len(cs) && byCat == len(cs) &&
				s.ResolutionRate >= 0 && s.ResolutionRate <= 1
		},
		gen.SliceOf(complaintGen),
	))
	properties.TestingRun(t)
}
