// Package report persists per-run sync outcomes to Postgres. The table is an
// append-only audit log; no run ever reads it back.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunResult is one marketplace target's outcome within a run.
type RunResult struct {
	RunID        uuid.UUID
	Marketplace  string // "ozon" | "market"
	Campaign     string // "" for ozon, "fbs"/"dbs" for market
	Offers       int    // offer ids fetched from the marketplace
	StocksSent   int    // stock rows uploaded (incl. zero-fill)
	NonZero      int    // stock rows with a positive count
	PricesSent   int    // price rows uploaded
	StockBatches int
	PriceBatches int
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       string // "ok" | "timeout" | "connection" | "error"
	Error        string
}

type Config struct {
	DSN        string
	Schema     string
	MaxConns   int
	ViaBouncer bool // use the simple protocol for PgBouncer txn pooling
}

// Sink writes run results into <schema>.sync_runs.
type Sink struct {
	pool   *pgxpool.Pool
	schema string
}

func Open(ctx context.Context, cfg Config) (*Sink, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("PG_DSN parse: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 2
	}
	pc.MaxConns = int32(maxConns)
	if cfg.ViaBouncer {
		pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("PG connect: %w", err)
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &Sink{pool: pool, schema: schema}, nil
}

func (s *Sink) Close() {
	s.pool.Close()
}

func (s *Sink) table() string {
	return fmt.Sprintf(`"%s".sync_runs`, s.schema)
}

// EnsureSchema creates the run-report table when missing.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + s.table() + ` (
		id             BIGSERIAL PRIMARY KEY,
		run_id         UUID        NOT NULL,
		marketplace    TEXT        NOT NULL,
		campaign       TEXT        NOT NULL DEFAULT '',
		offers         INTEGER     NOT NULL,
		stocks_sent    INTEGER     NOT NULL,
		non_zero       INTEGER     NOT NULL,
		prices_sent    INTEGER     NOT NULL,
		stock_batches  INTEGER     NOT NULL,
		price_batches  INTEGER     NOT NULL,
		started_at     TIMESTAMPTZ NOT NULL,
		finished_at    TIMESTAMPTZ NOT NULL,
		status         TEXT        NOT NULL,
		error          TEXT        NOT NULL DEFAULT ''
	)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Record inserts one row per target result in a single batch.
func (s *Sink) Record(ctx context.Context, results []RunResult) error {
	if len(results) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range results {
		b.Queue(
			`INSERT INTO `+s.table()+`
			(run_id, marketplace, campaign, offers, stocks_sent, non_zero, prices_sent,
			 stock_batches, price_batches, started_at, finished_at, status, error)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			r.RunID, r.Marketplace, r.Campaign, r.Offers, r.StocksSent, r.NonZero, r.PricesSent,
			r.StockBatches, r.PriceBatches, r.StartedAt, r.FinishedAt, r.Status, r.Error,
		)
	}
	br := s.pool.SendBatch(ctx, b)
	for range results {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("record run: %w", err)
		}
	}
	return br.Close()
}
