// Package postgres provides the PostgreSQL implementation of the proposal
// store. Status transitions use a compare-and-swap UPDATE so concurrent
// approve/reject calls resolve with exactly one winner.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"cloudsave/pkg/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS proposals (
	id          UUID PRIMARY KEY,
	status      TEXT NOT NULL,
	scenario_id TEXT NOT NULL,
	result      JSONB NOT NULL,
	note        TEXT NOT NULL DEFAULT '',
	ttl_days    INT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_proposals_pending_due
	ON proposals (expires_at) WHERE status = 'PENDING';
`

// Store is a PostgreSQL-backed proposal store.
type Store struct {
	db *sql.DB
}

// NewStore opens a connection pool and ensures the schema exists.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new proposal row. The scenario snapshot is stored as JSON
// and never updated afterwards.
func (s *Store) Create(ctx context.Context, p *api.Proposal) error {
	result, err := json.Marshal(p.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario snapshot: %w", err)
	}

	query := `
		INSERT INTO proposals (id, status, scenario_id, result, note, ttl_days, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID, string(p.Status), p.ScenarioID, result, p.Note, p.TTLDays,
		p.CreatedAt, p.UpdatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", err)
	}
	return nil
}

// Get retrieves a proposal by id; unknown ids return (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*api.Proposal, error) {
	query := `
		SELECT id, status, scenario_id, result, note, ttl_days, created_at, updated_at, expires_at
		FROM proposals WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, id)

	var p api.Proposal
	var status string
	var result []byte
	err := row.Scan(&p.ID, &status, &p.ScenarioID, &result, &p.Note, &p.TTLDays,
		&p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	p.Status = api.ProposalStatus(status)
	if err := json.Unmarshal(result, &p.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario snapshot: %w", err)
	}
	return &p, nil
}

// UpdateStatus performs the compare-and-swap transition. Zero affected rows
// means the stored status no longer matched from (or the row is gone); the
// ledger distinguishes the two by re-reading.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to api.ProposalStatus, at time.Time) (bool, error) {
	query := `UPDATE proposals SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := s.db.ExecContext(ctx, query, string(to), at, id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update proposal status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

// ListPastDue returns PENDING proposals whose expiry has passed.
func (s *Store) ListPastDue(ctx context.Context, now time.Time) ([]api.Proposal, error) {
	query := `
		SELECT id, status, scenario_id, result, note, ttl_days, created_at, updated_at, expires_at
		FROM proposals WHERE status = 'PENDING' AND expires_at <= $1
		ORDER BY expires_at
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list past-due proposals: %w", err)
	}
	defer rows.Close()

	var due []api.Proposal
	for rows.Next() {
		var p api.Proposal
		var status string
		var result []byte
		if err := rows.Scan(&p.ID, &status, &p.ScenarioID, &result, &p.Note, &p.TTLDays,
			&p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		p.Status = api.ProposalStatus(status)
		if err := json.Unmarshal(result, &p.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario snapshot: %w", err)
		}
		due = append(due, p)
	}
	return due, rows.Err()
}
