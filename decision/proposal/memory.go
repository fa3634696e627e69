package proposal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloudsave/pkg/api"
)

// MemoryStore is an in-memory Store used by tests and the one-shot CLI
// commands. It honors the same compare-and-swap semantics as the PostgreSQL
// store.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]api.Proposal
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]api.Proposal)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, p *api.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[p.ID]; exists {
		return fmt.Errorf("duplicate proposal id %s", p.ID)
	}
	s.rows[p.ID] = *p
	return nil
}

// Get implements Store; unknown ids return (nil, nil).
func (s *MemoryStore) Get(ctx context.Context, id string) (*api.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UpdateStatus implements Store's compare-and-swap.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, from, to api.ProposalStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = at
	s.rows[id] = p
	return true, nil
}

// ListPastDue implements Store.
func (s *MemoryStore) ListPastDue(ctx context.Context, now time.Time) ([]api.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []api.Proposal
	for _, p := range s.rows {
		if p.Status == api.ProposalPending && !now.Before(p.ExpiresAt) {
			due = append(due, p)
		}
	}
	return due, nil
}
