// Package store persists interaction outcomes to PostgreSQL so fallback and
// failure patterns can be analysed across runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/interact"
	"go.uber.org/zap"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the outcomes table and its reporting index.
const Schema = `
CREATE TABLE IF NOT EXISTS interaction_outcomes (
    id             UUID PRIMARY KEY,
    run_id         UUID NOT NULL,
    target         TEXT NOT NULL,
    action         TEXT NOT NULL,
    status         TEXT NOT NULL,
    path           TEXT NOT NULL,
    strategy_index INTEGER NOT NULL,
    error_kind     TEXT,
    error          TEXT,
    duration_ms    BIGINT NOT NULL,
    observed_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS interaction_outcomes_observed_at_idx ON interaction_outcomes (observed_at);
`

const sqlInsertOutcome = `
    INSERT INTO interaction_outcomes (id, run_id, target, action, status, path, strategy_index, error_kind, error, duration_ms, observed_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`

var outcomeColumns = []string{"id", "run_id", "target", "action", "status", "path", "strategy_index", "error_kind", "error", "duration_ms", "observed_at"}

const sqlFallbackReport = `
    SELECT target,
           count(*) AS total,
           count(*) FILTER (WHERE status = 'succeeded') AS native,
           count(*) FILTER (WHERE status = 'succeeded_via_fallback') AS fallback,
           count(*) FILTER (WHERE status = 'failed') AS failed
    FROM interaction_outcomes
    WHERE observed_at >= $1
    GROUP BY target
    ORDER BY fallback DESC, failed DESC, target ASC;
`

// Store is the PostgreSQL outcome store. It implements interact.OutcomeSink.
type Store struct {
	pool  DBPool
	log   *zap.Logger
	runID uuid.UUID
}

var _ interact.OutcomeSink = (*Store)(nil)

// Connect opens a pgx pool for cfg.
func Connect(ctx context.Context, cfg config.StoreConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// New creates a new store instance and verifies the connection. Every
// outcome it records is tagged with a fresh run ID.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	runID := uuid.New()
	return &Store{
		pool:  pool,
		log:   logger.Named("store").With(zap.String("run_id", runID.String())),
		runID: runID,
	}, nil
}

// RunID identifies the outcomes recorded through this store.
func (s *Store) RunID() uuid.UUID { return s.runID }

// EnsureSchema creates the outcomes table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Record inserts one outcome.
func (s *Store) Record(ctx context.Context, o interact.Outcome) error {
	if _, err := s.pool.Exec(ctx, sqlInsertOutcome, s.row(o)...); err != nil {
		return fmt.Errorf("failed to insert outcome for %q: %w", o.Target, err)
	}
	return nil
}

// RecordBatch inserts outcomes in one transaction using COPY.
func (s *Store) RecordBatch(ctx context.Context, outcomes []interact.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	rows := make([][]any, len(outcomes))
	for i, o := range outcomes {
		rows[i] = s.row(o)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"interaction_outcomes"}, outcomeColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy outcomes: %w", err)
	}
	if int(copied) != len(outcomes) {
		return fmt.Errorf("mismatch in copied outcomes count: expected %d, got %d", len(outcomes), copied)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) row(o interact.Outcome) []any {
	var kind, msg any
	if o.Err != nil {
		msg = o.Err.Error()
		if k := o.FailureKind(); k != "" {
			kind = string(k)
		}
	}
	observed := o.StartedAt
	if observed.IsZero() {
		observed = time.Now()
	}
	return []any{
		uuid.New(), s.runID,
		o.Target, string(o.Action), string(o.Status), string(o.Path),
		o.StrategyIndex, kind, msg,
		o.Duration.Milliseconds(),
		observed.UTC(),
	}
}

// TargetStats aggregates outcomes for one logical target.
type TargetStats struct {
	Target   string
	Total    int64
	Native   int64
	Fallback int64
	Failed   int64
}

// FallbackRate is the share of attempts that needed the scripted fallback.
func (t TargetStats) FallbackRate() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Fallback) / float64(t.Total)
}

// FallbackReport returns per-target counts of outcomes observed since since,
// targets leaning hardest on the fallback first.
func (s *Store) FallbackReport(ctx context.Context, since time.Time) ([]TargetStats, error) {
	rows, err := s.pool.Query(ctx, sqlFallbackReport, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query fallback report: %w", err)
	}
	defer rows.Close()

	var stats []TargetStats
	for rows.Next() {
		var t TargetStats
		if err := rows.Scan(&t.Target, &t.Total, &t.Native, &t.Fallback, &t.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		stats = append(stats, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return stats, nil
}
