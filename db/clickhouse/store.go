// Package clickhouse stores versioned cloud pricing snapshots and answers the
// "what does this service currently bill at" lookups the resolvers overlay
// onto resolved resources. Columnar storage fits the write-once, scan-often
// shape of pricing captures.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cloudsave/pkg/api"
)

// PricingSnapshot is a point-in-time capture of a provider's price list for
// one region.
type PricingSnapshot struct {
	ID        uuid.UUID
	Cloud     api.CloudProvider
	Region    string
	Source    string
	FetchedAt time.Time
	IsActive  bool
	CreatedAt time.Time
}

// Rate is one service's billing terms within a snapshot.
type Rate struct {
	ID              uuid.UUID
	SnapshotID      uuid.UUID
	Service         string
	Unit            string
	UnitPrice       decimal.Decimal
	CommitmentPrice decimal.Decimal
	CommitmentType  string
	Currency        string
	CreatedAt       time.Time
}

// Config holds connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns the development defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "cloudsave",
		Username: "default",
	}
}

// Store is the ClickHouse pricing store.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore opens a native-protocol connection.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// CreateSnapshot inserts a new (inactive) pricing snapshot.
func (s *Store) CreateSnapshot(ctx context.Context, snap *PricingSnapshot) error {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	query := `
		INSERT INTO pricing_snapshots (id, cloud, region, source, fetched_at, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	return s.conn.Exec(ctx, query,
		snap.ID, string(snap.Cloud), snap.Region, snap.Source,
		snap.FetchedAt, boolToUInt8(snap.IsActive), time.Now(),
	)
}

// ActivateSnapshot marks one snapshot active and deactivates the rest for the
// same cloud/region.
func (s *Store) ActivateSnapshot(ctx context.Context, id uuid.UUID) error {
	snap, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("snapshot not found: %s", id)
	}

	deactivate := `
		INSERT INTO pricing_snapshots
		SELECT id, cloud, region, source, fetched_at, 0 AS is_active, created_at,
			   _version + 1 AS _version
		FROM pricing_snapshots FINAL
		WHERE cloud = ? AND region = ? AND is_active = 1 AND id != ?
	`
	if err := s.conn.Exec(ctx, deactivate, string(snap.Cloud), snap.Region, id); err != nil {
		return fmt.Errorf("failed to deactivate snapshots: %w", err)
	}

	activate := `
		INSERT INTO pricing_snapshots
		SELECT id, cloud, region, source, fetched_at, 1 AS is_active, created_at,
			   _version + 1 AS _version
		FROM pricing_snapshots FINAL
		WHERE id = ?
	`
	return s.conn.Exec(ctx, activate, id)
}

// GetSnapshot retrieves a snapshot by id; unknown ids return (nil, nil).
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*PricingSnapshot, error) {
	query := `
		SELECT id, cloud, region, source, fetched_at, is_active, created_at
		FROM pricing_snapshots FINAL
		WHERE id = ?
	`
	row := s.conn.QueryRow(ctx, query, id)

	var snap PricingSnapshot
	var isActive uint8
	err := row.Scan(&snap.ID, &snap.Cloud, &snap.Region, &snap.Source, &snap.FetchedAt, &isActive, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	snap.IsActive = isActive == 1
	return &snap, nil
}

// BulkCreateRates inserts rates with a prepared batch.
func (s *Store) BulkCreateRates(ctx context.Context, rates []*Rate) error {
	if len(rates) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pricing_rates (id, snapshot_id, service, unit, unit_price,
			commitment_price, commitment_type, currency, created_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, rate := range rates {
		if rate.ID == uuid.Nil {
			rate.ID = uuid.New()
		}
		if err := batch.Append(
			rate.ID, rate.SnapshotID, rate.Service, rate.Unit,
			rate.UnitPrice, rate.CommitmentPrice, rate.CommitmentType,
			rate.Currency, time.Now(),
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}
	return batch.Send()
}

// ResolvePricing projects the active snapshot's rate for a service into the
// PricingInfo shape the scenario builder consumes. A missing rate returns
// (nil, nil) so the resolver can keep its own pricing.
func (s *Store) ResolvePricing(ctx context.Context, csp api.CloudProvider, service, region string) (*api.PricingInfo, error) {
	query := `
		SELECT pr.unit, pr.unit_price, pr.commitment_price, pr.commitment_type, pr.currency
		FROM pricing_rates pr FINAL
		JOIN pricing_snapshots ps FINAL ON pr.snapshot_id = ps.id
		WHERE ps.cloud = ? AND ps.region = ? AND ps.is_active = 1
		  AND pr.service = ?
		LIMIT 1
	`
	row := s.conn.QueryRow(ctx, query, string(csp), region, service)

	var unit, commitType, currency string
	var unitPrice, commitPrice decimal.Decimal
	err := row.Scan(&unit, &unitPrice, &commitPrice, &commitType, &currency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pricing: %w", err)
	}

	return &api.PricingInfo{
		Unit:               unit,
		UnitPrice:          unitPrice.InexactFloat64(),
		CommitmentEligible: commitPrice.IsPositive(),
		CommitmentPrice:    commitPrice.InexactFloat64(),
		CommitmentType:     commitType,
		Currency:           currency,
	}, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
