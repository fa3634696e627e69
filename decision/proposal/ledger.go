// Package proposal persists chosen scenarios as approvable proposals and
// enforces their lifecycle: PENDING moves exactly once to APPROVED, REJECTED,
// or (by the passage of its TTL) EXPIRED.
package proposal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cloudsave/pkg/api"
	cserr "cloudsave/pkg/errors"
	"cloudsave/pkg/metrics"
)

// Store is the persistence contract for proposals. UpdateStatus is a
// compare-and-swap on the status column: it reports swapped=false when the
// stored status no longer matches from. Get returns (nil, nil) for unknown
// ids, matching the snapshot store convention.
type Store interface {
	Create(ctx context.Context, p *api.Proposal) error
	Get(ctx context.Context, id string) (*api.Proposal, error)
	UpdateStatus(ctx context.Context, id string, from, to api.ProposalStatus, at time.Time) (swapped bool, err error)
	ListPastDue(ctx context.Context, now time.Time) ([]api.Proposal, error)
}

// Ledger is the proposal lifecycle engine.
type Ledger struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewLedger creates a ledger over the given store.
func NewLedger(store Store, log zerolog.Logger) *Ledger {
	return &Ledger{store: store, log: log, now: time.Now}
}

// WithClock overrides the time source. Tests use it to drive expiry.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Create snapshots a scenario as a PENDING proposal. ExpiresAt is fixed at
// creation and never recomputed.
func (l *Ledger) Create(ctx context.Context, scenarioID string, result api.SimulationResult, note string, ttlDays int) (*api.Proposal, error) {
	if scenarioID == "" {
		return nil, cserr.NewValidation("scenarioId must not be empty")
	}
	if ttlDays <= 0 {
		return nil, cserr.NewValidation("ttlDays must be positive, got %d", ttlDays)
	}

	now := l.now().UTC()
	p := &api.Proposal{
		ID:         uuid.New().String(),
		Status:     api.ProposalPending,
		ScenarioID: scenarioID,
		Result:     result,
		Note:       note,
		TTLDays:    ttlDays,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(time.Duration(ttlDays) * 24 * time.Hour),
	}
	if err := l.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist proposal: %w", err)
	}
	metrics.ProposalTransitions.WithLabelValues(string(api.ProposalPending)).Inc()
	l.log.Info().Str("proposal", p.ID).Str("scenario", scenarioID).Int("ttl_days", ttlDays).Msg("proposal created")
	return p, nil
}

// Get loads a proposal, eagerly expiring it when its TTL has passed while it
// was still PENDING. Expiry on read is the authoritative trigger; the sweep
// only catches proposals nobody reads.
func (l *Ledger) Get(ctx context.Context, id string) (*api.Proposal, error) {
	p, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load proposal: %w", err)
	}
	if p == nil {
		return nil, cserr.NewNotFound("proposal", id)
	}
	return l.expireIfDue(ctx, p)
}

// Approve transitions a PENDING proposal to APPROVED.
func (l *Ledger) Approve(ctx context.Context, id string) (*api.Proposal, error) {
	return l.transition(ctx, id, api.ProposalApproved, "approve")
}

// Reject transitions a PENDING proposal to REJECTED.
func (l *Ledger) Reject(ctx context.Context, id string) (*api.Proposal, error) {
	return l.transition(ctx, id, api.ProposalRejected, "reject")
}

func (l *Ledger) transition(ctx context.Context, id string, to api.ProposalStatus, verb string) (*api.Proposal, error) {
	p, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != api.ProposalPending {
		return nil, cserr.NewInvalidState(id, string(p.Status), verb)
	}

	at := l.now().UTC()
	swapped, err := l.store.UpdateStatus(ctx, id, api.ProposalPending, to, at)
	if err != nil {
		return nil, fmt.Errorf("failed to %s proposal: %w", verb, err)
	}
	if !swapped {
		// Lost the race: someone else moved the proposal off PENDING
		// between our read and the swap.
		return nil, cserr.NewConflict(id)
	}

	p.Status = to
	p.UpdatedAt = at
	metrics.ProposalTransitions.WithLabelValues(string(to)).Inc()
	l.log.Info().Str("proposal", id).Str("status", string(to)).Msg("proposal transitioned")
	return p, nil
}

// expireIfDue applies the PENDING->EXPIRED transition when the TTL has
// passed. A lost swap means a concurrent transition already happened, so the
// proposal is reloaded rather than failed.
func (l *Ledger) expireIfDue(ctx context.Context, p *api.Proposal) (*api.Proposal, error) {
	if p.Status != api.ProposalPending || l.now().Before(p.ExpiresAt) {
		return p, nil
	}

	at := l.now().UTC()
	swapped, err := l.store.UpdateStatus(ctx, p.ID, api.ProposalPending, api.ProposalExpired, at)
	if err != nil {
		return nil, fmt.Errorf("failed to expire proposal: %w", err)
	}
	if !swapped {
		fresh, err := l.store.Get(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload proposal: %w", err)
		}
		if fresh == nil {
			return nil, cserr.NewNotFound("proposal", p.ID)
		}
		return fresh, nil
	}

	p.Status = api.ProposalExpired
	p.UpdatedAt = at
	metrics.ProposalTransitions.WithLabelValues(string(api.ProposalExpired)).Inc()
	l.log.Info().Str("proposal", p.ID).Msg("proposal expired on read")
	return p, nil
}

// SweepExpired moves every past-due PENDING proposal to EXPIRED and returns
// how many were transitioned. Safe to run concurrently with reads: both paths
// perform the same compare-and-swap.
func (l *Ledger) SweepExpired(ctx context.Context) (int, error) {
	due, err := l.store.ListPastDue(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list past-due proposals: %w", err)
	}

	expired := 0
	at := l.now().UTC()
	for _, p := range due {
		swapped, err := l.store.UpdateStatus(ctx, p.ID, api.ProposalPending, api.ProposalExpired, at)
		if err != nil {
			return expired, fmt.Errorf("failed to expire proposal %s: %w", p.ID, err)
		}
		if swapped {
			expired++
			metrics.ProposalTransitions.WithLabelValues(string(api.ProposalExpired)).Inc()
		}
	}
	if expired > 0 {
		l.log.Info().Int("expired", expired).Msg("expiry sweep completed")
	}
	return expired, nil
}
