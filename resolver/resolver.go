// Package resolver resolves resource identifiers into the resource, usage,
// and pricing snapshots the simulation engine consumes. Each cloud provider
// gets its own Resolver; a Registry dispatches on the shape of the id.
package resolver

import (
	"context"
	"strings"

	"cloudsave/pkg/api"
	cserr "cloudsave/pkg/errors"
)

// Resolved bundles everything the scenario builder needs for one resource.
type Resolved struct {
	Resource api.ResourceInfo `json:"resource"`
	Usage    api.UsageMetrics `json:"usage"`
	Pricing  api.PricingInfo  `json:"pricing"`
}

// Resolver looks up a single resource by id. Implementations report unknown
// ids with a NOT_FOUND structured error and upstream problems with a plain
// wrapped error; the coordinator absorbs both.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*Resolved, error)
}

// Detect infers the cloud provider from the identifier shape. Unknown shapes
// map to the empty provider and resolution of such ids fails as not found.
func Detect(id string) api.CloudProvider {
	switch {
	case strings.HasPrefix(id, "arn:aws"), strings.HasPrefix(id, "i-"), strings.HasPrefix(id, "vol-"), strings.HasPrefix(id, "s3://"):
		return api.AWS
	case strings.HasPrefix(id, "/subscriptions/"):
		return api.Azure
	case strings.HasPrefix(id, "projects/"), strings.HasPrefix(id, "//"):
		return api.GCP
	case strings.HasPrefix(id, "ncp:"):
		return api.NCP
	default:
		return ""
	}
}

// Registry dispatches resolution to the resolver configured for the id's
// provider.
type Registry struct {
	byProvider map[api.CloudProvider]Resolver
	fallback   Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byProvider: make(map[api.CloudProvider]Resolver)}
}

// Register installs the resolver for one provider.
func (r *Registry) Register(csp api.CloudProvider, res Resolver) *Registry {
	r.byProvider[csp] = res
	return r
}

// WithFallback installs a resolver for ids whose provider cannot be detected
// or has no dedicated resolver.
func (r *Registry) WithFallback(res Resolver) *Registry {
	r.fallback = res
	return r
}

// Resolve dispatches to the provider-specific resolver.
func (r *Registry) Resolve(ctx context.Context, id string) (*Resolved, error) {
	if res, ok := r.byProvider[Detect(id)]; ok {
		return res.Resolve(ctx, id)
	}
	if r.fallback != nil {
		return r.fallback.Resolve(ctx, id)
	}
	return nil, cserr.NewNotFound("resource", id)
}
