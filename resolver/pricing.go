package resolver

import (
	"context"
	"fmt"

	"cloudsave/pkg/api"
)

// PricingStore resolves current billing terms for a service in a region.
// db/clickhouse implements it over the active pricing snapshot.
type PricingStore interface {
	ResolvePricing(ctx context.Context, csp api.CloudProvider, service, region string) (*api.PricingInfo, error)
}

// WithPricing decorates a resolver so that unit and commitment prices come
// from the pricing store instead of the inner resolver's snapshot. A miss in
// the store keeps the inner pricing; a store error fails the resolution.
type WithPricing struct {
	Inner Resolver
	Store PricingStore
}

// Resolve implements Resolver.
func (w *WithPricing) Resolve(ctx context.Context, id string) (*Resolved, error) {
	resolved, err := w.Inner.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	pricing, err := w.Store.ResolvePricing(ctx, resolved.Resource.CSP, resolved.Resource.Service, resolved.Resource.Region)
	if err != nil {
		return nil, fmt.Errorf("pricing lookup for %s: %w", id, err)
	}
	if pricing != nil {
		out := *resolved
		out.Pricing = *pricing
		return &out, nil
	}
	return resolved, nil
}
