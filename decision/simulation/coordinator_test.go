package simulation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudsave/decision/scenario"
	"cloudsave/pkg/api"
	cserr "cloudsave/pkg/errors"
	"cloudsave/resolver"
)

// fakeResolver serves canned triples and fails configured ids, optionally
// delaying some resolutions to shuffle completion order.
type fakeResolver struct {
	entries map[string]resolver.Resolved
	fail    map[string]error
	delays  map[string]time.Duration
}

func (f *fakeResolver) Resolve(ctx context.Context, id string) (*resolver.Resolved, error) {
	if d, ok := f.delays[id]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fail[id]; ok {
		return nil, err
	}
	e, ok := f.entries[id]
	if !ok {
		return nil, cserr.NewNotFound("resource", id)
	}
	return &e, nil
}

func entry(id string) resolver.Resolved {
	return resolver.Resolved{
		Resource: api.ResourceInfo{ID: id, CSP: api.AWS, Service: "AmazonEC2:m5.large", Region: "us-east-1"},
		Usage:    api.UsageMetrics{AvgUtilization: 0.2, P99Utilization: 0.5, IdleRatio: 0.6, BilledUnits: 1.0},
		Pricing:  api.PricingInfo{Unit: api.UnitHour, UnitPrice: 0.1, CommitmentEligible: true, CommitmentPrice: 0.06},
	}
}

func newTestCoordinator(f *fakeResolver) *Coordinator {
	return NewCoordinator(f, scenario.NewBuilder(), zerolog.Nop())
}

func TestSimulateValidation(t *testing.T) {
	c := newTestCoordinator(&fakeResolver{})

	_, err := c.Simulate(context.Background(), nil, api.ActionOffHours, nil)
	require.Error(t, err)
	assert.True(t, cserr.IsCode(err, cserr.CodeValidation))

	_, err = c.Simulate(context.Background(), []string{"i-1"}, "teleport", nil)
	require.Error(t, err)
	assert.True(t, cserr.IsCode(err, cserr.CodeValidation))
}

func TestSimulateSkipsUnresolvableResources(t *testing.T) {
	f := &fakeResolver{
		entries: map[string]resolver.Resolved{"i-1": entry("i-1"), "i-3": entry("i-3")},
		fail:    map[string]error{"i-2": fmt.Errorf("upstream unavailable")},
	}
	resp, err := newTestCoordinator(f).Simulate(context.Background(), []string{"i-1", "i-2", "i-3"}, api.ActionOffHours, nil)
	require.NoError(t, err)

	// The failed resource reduces the scenario set but not the request count.
	assert.Equal(t, 3, resp.TotalResources)
	require.Len(t, resp.Scenarios, 2)
	assert.Equal(t, "i-1", resp.Scenarios[0].ResourceID)
	assert.Equal(t, "i-3", resp.Scenarios[1].ResourceID)
}

func TestSimulatePreservesInputOrderUnderConcurrency(t *testing.T) {
	f := &fakeResolver{
		entries: make(map[string]resolver.Resolved),
		delays:  make(map[string]time.Duration),
	}
	var ids []string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("i-%02d", i)
		ids = append(ids, id)
		f.entries[id] = entry(id)
		// Earlier inputs finish later.
		f.delays[id] = time.Duration(8-i) * 5 * time.Millisecond
	}

	resp, err := newTestCoordinator(f).WithWorkers(4).Simulate(context.Background(), ids, api.ActionOffHours, nil)
	require.NoError(t, err)
	require.Len(t, resp.Scenarios, len(ids))
	for i, sc := range resp.Scenarios {
		assert.Equal(t, ids[i], sc.ResourceID)
	}
}

func TestSimulateTimeoutIsAbsorbed(t *testing.T) {
	f := &fakeResolver{
		entries: map[string]resolver.Resolved{"i-slow": entry("i-slow"), "i-fast": entry("i-fast")},
		delays:  map[string]time.Duration{"i-slow": 200 * time.Millisecond},
	}
	c := newTestCoordinator(f).WithResolveTimeout(20 * time.Millisecond)

	resp, err := c.Simulate(context.Background(), []string{"i-slow", "i-fast"}, api.ActionOffHours, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalResources)
	require.Len(t, resp.Scenarios, 1)
	assert.Equal(t, "i-fast", resp.Scenarios[0].ResourceID)
}

func TestSimulateCommitmentFansOutPerResource(t *testing.T) {
	f := &fakeResolver{entries: map[string]resolver.Resolved{"i-1": entry("i-1"), "i-2": entry("i-2")}}
	resp, err := newTestCoordinator(f).Simulate(context.Background(), []string{"i-1", "i-2"}, api.ActionCommitment, nil)
	require.NoError(t, err)
	require.Len(t, resp.Scenarios, 6)
	for _, sc := range resp.Scenarios[:3] {
		assert.Equal(t, "i-1", sc.ResourceID)
	}
	for _, sc := range resp.Scenarios[3:] {
		assert.Equal(t, "i-2", sc.ResourceID)
	}
}

func TestSimulateIsIdempotent(t *testing.T) {
	f := &fakeResolver{entries: map[string]resolver.Resolved{"i-1": entry("i-1"), "i-2": entry("i-2")}}
	c := newTestCoordinator(f)

	first, err := c.Simulate(context.Background(), []string{"i-1", "i-2"}, api.ActionCommitment, nil)
	require.NoError(t, err)
	second, err := c.Simulate(context.Background(), []string{"i-1", "i-2"}, api.ActionCommitment, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSimulateCleanupReturnsEmptyScenarios(t *testing.T) {
	f := &fakeResolver{entries: map[string]resolver.Resolved{"i-1": entry("i-1")}}
	resp, err := newTestCoordinator(f).Simulate(context.Background(), []string{"i-1"}, api.ActionCleanup, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Scenarios)
	assert.Equal(t, 1, resp.TotalResources)
}
