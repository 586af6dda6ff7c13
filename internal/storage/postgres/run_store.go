package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coinlake/crypto-etl/internal/store"
)

// RunStore keeps the full per-attempt run history in Postgres.
type RunStore struct {
	pool Pool
}

// NewRunStore constructs a RunStore over an existing pool.
func NewRunStore(pool Pool) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// Create inserts a new run row; the run_id unique constraint rejects reuse.
func (s *RunStore) Create(ctx context.Context, run store.Run) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO etl_runs (run_id, source, start_time, status, records_processed, records_failed)
VALUES ($1, $2, $3, $4, $5, $6)`,
		run.RunID, run.Source, run.StartTime, run.Status, run.RecordsProcessed, run.RecordsFailed,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Finalize stamps the terminal state. The duration is derived from the stored
// start_time so clock drift between create and finalize cannot go negative.
func (s *RunStore) Finalize(ctx context.Context, runID string, endTime time.Time, result store.RunResult) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE etl_runs
SET end_time = $2,
    status = $3,
    records_processed = $4,
    records_failed = $5,
    duration_seconds = GREATEST(EXTRACT(EPOCH FROM ($2::timestamptz - start_time)), 0),
    error_message = $6
WHERE run_id = $1`,
		runID, endTime, result.Status, result.RecordsProcessed, result.RecordsFailed, result.Error,
	)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const runColumns = `
run_id, source, start_time, end_time, status, records_processed, records_failed, duration_seconds, error_message`

// Get loads one run by id or returns store.ErrNotFound.
func (s *RunStore) Get(ctx context.Context, runID string) (store.Run, error) {
	row := s.pool.QueryRow(ctx, "SELECT"+runColumns+" FROM etl_runs WHERE run_id = $1", runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Run{}, store.ErrNotFound
		}
		return store.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns run history, newest first, optionally filtered by source.
func (s *RunStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	rows, err := s.pool.Query(ctx, `
SELECT`+runColumns+`
FROM etl_runs
WHERE ($1 = '' OR source = $1)
ORDER BY start_time DESC
LIMIT $2`,
		filter.Source, filter.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (store.Run, error) {
	var run store.Run
	var status string
	err := row.Scan(
		&run.RunID,
		&run.Source,
		&run.StartTime,
		&run.EndTime,
		&status,
		&run.RecordsProcessed,
		&run.RecordsFailed,
		&run.DurationSeconds,
		&run.ErrorMessage,
	)
	if err != nil {
		return store.Run{}, err
	}
	run.Status = store.RunStatus(status)
	return run, nil
}
