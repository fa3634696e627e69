// Package simulation coordinates a simulate call: it validates the request,
// resolves each requested resource through the provider-appropriate resolver,
// invokes the scenario builder, and aggregates the results. Individual
// resource failures reduce the result set; they never fail the batch.
package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cloudsave/decision/scenario"
	"cloudsave/pkg/api"
	cserr "cloudsave/pkg/errors"
	"cloudsave/pkg/metrics"
	"cloudsave/resolver"
)

const (
	// DefaultWorkers bounds concurrent resource resolutions.
	DefaultWorkers = 4
	// DefaultResolveTimeout bounds one external resolution call; a timeout
	// counts as a resolution failure for that resource only.
	DefaultResolveTimeout = 10 * time.Second
)

// Coordinator drives simulations over a resolver registry.
type Coordinator struct {
	resolver       resolver.Resolver
	builder        *scenario.Builder
	log            zerolog.Logger
	workers        int
	resolveTimeout time.Duration
}

// NewCoordinator creates a coordinator with default concurrency bounds.
func NewCoordinator(res resolver.Resolver, builder *scenario.Builder, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		resolver:       res,
		builder:        builder,
		log:            log,
		workers:        DefaultWorkers,
		resolveTimeout: DefaultResolveTimeout,
	}
}

// WithWorkers overrides the resolution concurrency bound.
func (c *Coordinator) WithWorkers(n int) *Coordinator {
	if n > 0 {
		c.workers = n
	}
	return c
}

// WithResolveTimeout overrides the per-resolution timeout.
func (c *Coordinator) WithResolveTimeout(d time.Duration) *Coordinator {
	if d > 0 {
		c.resolveTimeout = d
	}
	return c
}

// Simulate evaluates one action type against the requested resources.
// Validation failures are reported before any lookup; unresolvable resources
// are skipped silently and TotalResources still reports the requested count.
// Scenario order follows the input resource order regardless of which
// resolution finished first.
func (c *Coordinator) Simulate(ctx context.Context, resourceIDs []string, action api.ActionType, params *api.ScenarioParams) (*api.SimulateResponse, error) {
	if len(resourceIDs) == 0 {
		return nil, cserr.NewValidation("resourceIds must not be empty")
	}
	if !action.Valid() {
		return nil, cserr.NewValidation("unknown action type %q", action)
	}
	metrics.Simulations.WithLabelValues(string(action)).Inc()

	perResource := make([][]api.SimulationResult, len(resourceIDs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.workers)
	for i, id := range resourceIDs {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			perResource[slot] = c.evaluate(ctx, id, action, params)
		}(i, id)
	}
	wg.Wait()

	scenarios := make([]api.SimulationResult, 0, len(resourceIDs))
	for _, results := range perResource {
		scenarios = append(scenarios, results...)
	}
	metrics.ScenariosGenerated.WithLabelValues(string(action)).Add(float64(len(scenarios)))

	return &api.SimulateResponse{
		Scenarios:      scenarios,
		ActionType:     action,
		TotalResources: len(resourceIDs),
	}, nil
}

// evaluate resolves one resource and builds its scenarios. Any failure is
// absorbed; the drop is only visible through the log and the failure counter.
func (c *Coordinator) evaluate(ctx context.Context, id string, action api.ActionType, params *api.ScenarioParams) []api.SimulationResult {
	rctx, cancel := context.WithTimeout(ctx, c.resolveTimeout)
	defer cancel()

	resolved, err := c.resolver.Resolve(rctx, id)
	if err != nil {
		metrics.ResolutionFailures.WithLabelValues(string(resolver.Detect(id))).Inc()
		c.log.Warn().Err(cserr.NewResolutionFailed(id, err)).
			Str("resource", id).Str("action", string(action)).
			Msg("skipping unresolvable resource")
		return nil
	}

	return c.builder.Build(&resolved.Resource, &resolved.Usage, &resolved.Pricing, params, action)
}
