package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	cserr "cloudsave/pkg/errors"
)

// Catalog is a file- or literal-backed resolver holding fully resolved
// resource triples. It serves tests, the one-shot CLI commands, and the
// recommendation inventory.
type Catalog struct {
	entries map[string]Resolved
	order   []string
}

// NewCatalog builds a catalog from literal entries, preserving their order.
func NewCatalog(entries []Resolved) *Catalog {
	c := &Catalog{entries: make(map[string]Resolved, len(entries))}
	for _, e := range entries {
		if _, dup := c.entries[e.Resource.ID]; dup {
			continue
		}
		c.entries[e.Resource.ID] = e
		c.order = append(c.order, e.Resource.ID)
	}
	return c
}

// LoadCatalog reads a JSON catalog file: either a bare array of entries or an
// object with a "resources" array.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var entries []Resolved
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Resources []Resolved `json:"resources"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
		}
		entries = wrapped.Resources
	}
	return NewCatalog(entries), nil
}

// Resolve implements Resolver.
func (c *Catalog) Resolve(ctx context.Context, id string) (*Resolved, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := c.entries[id]
	if !ok {
		return nil, cserr.NewNotFound("resource", id)
	}
	return &e, nil
}

// List returns every catalog entry in insertion order. It backs the
// recommendation inventory.
func (c *Catalog) List(ctx context.Context) ([]Resolved, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Resolved, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out, nil
}

// IDs returns the catalog's resource ids sorted lexically.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	sort.Strings(ids)
	return ids
}
