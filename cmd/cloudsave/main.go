// cloudsave - cloud cost action simulation engine
//
// Usage:
//   cloudsave serve --catalog resources.json [--postgres-dsn ...]
//   cloudsave simulate --catalog resources.json --action offhours --resource i-abc
//   cloudsave recommend --catalog resources.json
//   cloudsave proposals sweep --postgres-dsn ...
//   cloudsave pricing update --region us-east-1 --service AmazonEC2
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"cloudsave/api"
	"cloudsave/db/clickhouse"
	"cloudsave/db/postgres"
	"cloudsave/decision/proposal"
	"cloudsave/decision/recommend"
	"cloudsave/decision/scenario"
	"cloudsave/decision/simulation"
	contracts "cloudsave/pkg/api"
	"cloudsave/resolver"
	"cloudsave/resolver/awspricing"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "cloudsave",
		Usage:   "Simulate and track cloud cost-saving actions",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CLOUDSAVE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Path to the resolved-resource catalog JSON",
				EnvVars: []string{"CLOUDSAVE_CATALOG"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "PostgreSQL DSN for the proposal store (in-memory when unset)",
				EnvVars: []string{"POSTGRES_DSN"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Usage:   "ClickHouse host for the pricing snapshot store (catalog pricing when unset)",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "cloudsave",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the resolver cache (disabled when unset)",
				EnvVars: []string{"REDIS_ADDR"},
			},
		},

		Commands: []*cli.Command{
			serveCommand(),
			simulateCommand(),
			recommendCommand(),
			proposalsCommand(),
			pricingCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// buildResolver assembles the catalog resolver with the optional ClickHouse
// pricing overlay and Redis cache. The catalog doubles as the recommendation
// inventory.
func buildResolver(c *cli.Context) (resolver.Resolver, *resolver.Catalog, error) {
	path := c.String("catalog")
	if path == "" {
		return nil, nil, fmt.Errorf("--catalog is required")
	}
	catalog, err := resolver.LoadCatalog(path)
	if err != nil {
		return nil, nil, err
	}

	var res resolver.Resolver = catalog
	if c.String("clickhouse-host") != "" {
		store, err := newPricingStore(c)
		if err != nil {
			return nil, nil, err
		}
		res = &resolver.WithPricing{Inner: res, Store: store}
	}
	if addr := c.String("redis-addr"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		res = resolver.NewCached(res, client, resolver.DefaultCacheTTL)
	}
	return res, catalog, nil
}

func newPricingStore(c *cli.Context) (*clickhouse.Store, error) {
	return clickhouse.NewStore(&clickhouse.Config{
		Host:     c.String("clickhouse-host"),
		Port:     c.Int("clickhouse-port"),
		Database: c.String("clickhouse-database"),
		Username: c.String("clickhouse-user"),
		Password: c.String("clickhouse-password"),
	})
}

func newProposalStore(c *cli.Context, log zerolog.Logger) (proposal.Store, error) {
	if dsn := c.String("postgres-dsn"); dsn != "" {
		return postgres.NewStore(dsn)
	}
	log.Warn().Msg("no postgres DSN configured; proposals are held in memory")
	return proposal.NewMemoryStore(), nil
}

// =============================================================================
// SERVE
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP listen port",
				EnvVars: []string{"CLOUDSAVE_PORT"},
			},
			&cli.DurationFlag{
				Name:  "sweep-interval",
				Value: time.Hour,
				Usage: "Proposal expiry sweep interval",
			},
		},
		Action: func(c *cli.Context) error {
			log := newLogger(c)

			res, catalog, err := buildResolver(c)
			if err != nil {
				return err
			}
			store, err := newProposalStore(c, log)
			if err != nil {
				return err
			}

			builder := scenario.NewBuilder()
			coord := simulation.NewCoordinator(res, builder, log)
			ledger := proposal.NewLedger(store, log)
			ranker := recommend.NewRanker(catalog, builder)

			cfg := api.DefaultConfig()
			cfg.Port = c.Int("port")
			cfg.SweepInterval = c.Duration("sweep-interval")

			return api.NewServer(coord, ledger, ranker, log, cfg).Start(c.Context)
		},
	}
}

// =============================================================================
// SIMULATE
// =============================================================================

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run a one-shot simulation against the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "action",
				Aliases:  []string{"a"},
				Usage:    "Action type (offhours, commitment, storage, rightsizing, cleanup)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "resource",
				Aliases: []string{"r"},
				Usage:   "Resource id (repeatable; defaults to the whole catalog)",
			},
			&cli.StringFlag{
				Name:  "params",
				Usage: "Path to a scenario params JSON file",
			},
		},
		Action: func(c *cli.Context) error {
			log := newLogger(c)

			res, catalog, err := buildResolver(c)
			if err != nil {
				return err
			}

			ids := c.StringSlice("resource")
			if len(ids) == 0 {
				ids = catalog.IDs()
			}

			var params *contracts.ScenarioParams
			if path := c.String("params"); path != "" {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read params: %w", err)
				}
				params = &contracts.ScenarioParams{}
				if err := json.Unmarshal(raw, params); err != nil {
					return fmt.Errorf("failed to parse params: %w", err)
				}
			}

			coord := simulation.NewCoordinator(res, scenario.NewBuilder(), log)
			resp, err := coord.Simulate(c.Context, ids, contracts.ActionType(c.String("action")), params)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

// =============================================================================
// RECOMMEND
// =============================================================================

func recommendCommand() *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Print the top recommendations for the catalog",
		Action: func(c *cli.Context) error {
			_, catalog, err := buildResolver(c)
			if err != nil {
				return err
			}
			recs, err := recommend.NewRanker(catalog, scenario.NewBuilder()).TopRecommendations(c.Context)
			if err != nil {
				return err
			}
			return printJSON(recs)
		},
	}
}

// =============================================================================
// PROPOSALS
// =============================================================================

func proposalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "proposals",
		Usage: "Proposal maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "Expire past-due pending proposals",
				Action: func(c *cli.Context) error {
					log := newLogger(c)
					store, err := newProposalStore(c, log)
					if err != nil {
						return err
					}
					expired, err := proposal.NewLedger(store, log).SweepExpired(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("expired %d proposal(s)\n", expired)
					return nil
				},
			},
		},
	}
}

// =============================================================================
// PRICING
// =============================================================================

func pricingCommand() *cli.Command {
	return &cli.Command{
		Name:  "pricing",
		Usage: "Pricing snapshot maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Fetch AWS prices and activate a new snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "region",
						Value: "us-east-1",
						Usage: "Billing region",
					},
					&cli.StringFlag{
						Name:  "service",
						Value: "AmazonEC2",
						Usage: "AWS service code",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 100,
						Usage: "Maximum price documents to fetch",
					},
				},
				Action: func(c *cli.Context) error {
					log := newLogger(c)
					if c.String("clickhouse-host") == "" {
						return fmt.Errorf("--clickhouse-host is required for pricing update")
					}
					store, err := newPricingStore(c)
					if err != nil {
						return err
					}
					defer store.Close()

					return updatePricing(c.Context, store, log,
						c.String("service"), c.String("region"), int32(c.Int("limit")))
				},
			},
		},
	}
}

func updatePricing(ctx context.Context, store *clickhouse.Store, log zerolog.Logger, service, region string, limit int32) error {
	fetcher, err := awspricing.NewFetcher(ctx)
	if err != nil {
		return err
	}

	rates, err := fetcher.FetchOnDemandRates(ctx, service, region, limit)
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		return fmt.Errorf("no rates fetched for %s in %s", service, region)
	}

	snap := &clickhouse.PricingSnapshot{
		Cloud:     contracts.AWS,
		Region:    region,
		Source:    "aws-pricing-api",
		FetchedAt: time.Now(),
	}
	if err := store.CreateSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	for _, rate := range rates {
		rate.SnapshotID = snap.ID
	}
	if err := store.BulkCreateRates(ctx, rates); err != nil {
		return fmt.Errorf("failed to store rates: %w", err)
	}
	if err := store.ActivateSnapshot(ctx, snap.ID); err != nil {
		return fmt.Errorf("failed to activate snapshot: %w", err)
	}

	log.Info().Str("snapshot", snap.ID.String()).Int("rates", len(rates)).
		Str("region", region).Str("service", service).Msg("pricing snapshot activated")
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
