package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudsave/decision/scenario"
	"cloudsave/pkg/api"
	"cloudsave/resolver"
)

type fakeInventory struct {
	items []resolver.Resolved
	err   error
}

func (f *fakeInventory) List(ctx context.Context) ([]resolver.Resolved, error) {
	return f.items, f.err
}

// commitHeavy builds a resource whose commitment scenarios dominate every
// other action: large hourly spend, commitment-eligible, too busy to rightsize.
func commitHeavy(id string) resolver.Resolved {
	return resolver.Resolved{
		Resource: api.ResourceInfo{ID: id, CSP: api.AWS, Service: "ec2", Region: "us-east-1"},
		Usage: api.UsageMetrics{
			AvgUtilization: 0.5,
			P99Utilization: 0.6,
			IdleRatio:      0.2,
			BilledUnits:    1.0,
		},
		Pricing: api.PricingInfo{
			Unit:               api.UnitHour,
			UnitPrice:          0.1,
			CommitmentEligible: true,
			CommitmentPrice:    0.06,
			Currency:           "USD",
		},
	}
}

func TestTopRecommendationsRanksByPriority(t *testing.T) {
	inv := &fakeInventory{items: []resolver.Resolved{commitHeavy("i-1"), commitHeavy("i-2")}}
	ranker := NewRanker(inv, scenario.NewBuilder())

	recs, err := ranker.TopRecommendations(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, DefaultLimit)

	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Scenario.Priority, recs[i].Scenario.Priority)
	}

	// Deepest commitment saves the most at equal risk, so it wins for both
	// resources; ties between resources keep inventory order.
	assert.Equal(t, "commitment-90-i-1", recs[0].Scenario.ScenarioID)
	assert.Equal(t, "commitment-90-i-2", recs[1].Scenario.ScenarioID)
	assert.Equal(t, "commitment-70-i-1", recs[2].Scenario.ScenarioID)
}

func TestRecommendationShape(t *testing.T) {
	inv := &fakeInventory{items: []resolver.Resolved{commitHeavy("i-1")}}
	recs, err := NewRanker(inv, scenario.NewBuilder()).TopRecommendations(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	top := recs[0]
	assert.True(t, strings.HasPrefix(top.Title, "i-1: "))
	assert.Equal(t, api.ActionCommitment, top.ActionType)
	assert.Equal(t, top.Scenario.Savings, top.EstimatedSavings)
	assert.NotEmpty(t, top.Description)
}

func TestWithLimit(t *testing.T) {
	inv := &fakeInventory{items: []resolver.Resolved{commitHeavy("i-1"), commitHeavy("i-2")}}
	builder := scenario.NewBuilder()

	one, err := NewRanker(inv, builder).WithLimit(1).TopRecommendations(context.Background())
	require.NoError(t, err)
	require.Len(t, one, 1)

	three, err := NewRanker(inv, builder).TopRecommendations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, three[0], one[0])

	// Non-positive limits keep the default.
	kept, err := NewRanker(inv, builder).WithLimit(0).TopRecommendations(context.Background())
	require.NoError(t, err)
	assert.Len(t, kept, DefaultLimit)
}

func TestEmptyInventory(t *testing.T) {
	recs, err := NewRanker(&fakeInventory{}, scenario.NewBuilder()).TopRecommendations(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestInventoryErrorPropagates(t *testing.T) {
	inv := &fakeInventory{err: errors.New("catalog unreadable")}
	_, err := NewRanker(inv, scenario.NewBuilder()).TopRecommendations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog unreadable")
}
