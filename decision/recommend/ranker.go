// Package recommend scans the current resource inventory across every action
// type and surfaces the few scenarios most worth acting on next.
package recommend

import (
	"context"
	"fmt"
	"sort"

	"cloudsave/decision/scenario"
	"cloudsave/pkg/api"
	"cloudsave/resolver"
)

// DefaultLimit bounds the dashboard view to the conventional top three.
const DefaultLimit = 3

// Inventory provides the canonical set of current resources, already
// resolved. resolver.Catalog implements it.
type Inventory interface {
	List(ctx context.Context) ([]resolver.Resolved, error)
}

// Ranker evaluates the inventory and ranks scenarios by priority score.
type Ranker struct {
	inventory Inventory
	builder   *scenario.Builder
	limit     int
}

// NewRanker creates a ranker with the conventional top-3 limit.
func NewRanker(inv Inventory, builder *scenario.Builder) *Ranker {
	return &Ranker{inventory: inv, builder: builder, limit: DefaultLimit}
}

// WithLimit overrides the number of recommendations returned.
func (r *Ranker) WithLimit(n int) *Ranker {
	if n > 0 {
		r.limit = n
	}
	return r
}

// TopRecommendations evaluates every action type against every inventory
// resource and returns the highest-priority scenarios. Ties keep first-seen
// input order so the output is deterministic for a fixed inventory.
func (r *Ranker) TopRecommendations(ctx context.Context) ([]api.Recommendation, error) {
	resources, err := r.inventory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory listing failed: %w", err)
	}

	var candidates []api.SimulationResult
	for _, res := range resources {
		for _, action := range api.ActionTypes() {
			candidates = append(candidates,
				r.builder.Build(&res.Resource, &res.Usage, &res.Pricing, nil, action)...)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})
	if len(candidates) > r.limit {
		candidates = candidates[:r.limit]
	}

	out := make([]api.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, api.Recommendation{
			Title:            fmt.Sprintf("%s: %s", c.ResourceID, c.Name),
			Description:      c.Description,
			ActionType:       c.ActionType,
			EstimatedSavings: c.Savings,
			Scenario:         c,
		})
	}
	return out, nil
}
