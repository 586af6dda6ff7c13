package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coinlake/crypto-etl/internal/store"
)

// CheckpointStore keeps one cursor row per source in Postgres.
type CheckpointStore struct {
	pool Pool
}

// NewCheckpointStore constructs a CheckpointStore over an existing pool.
func NewCheckpointStore(pool Pool) (*CheckpointStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CheckpointStore{pool: pool}, nil
}

const checkpointColumns = `
source, last_processed_id, last_processed_timestamp, records_processed,
last_run_start, last_run_end, last_run_status, last_error, created_at, updated_at`

// Get loads one source checkpoint or returns store.ErrNotFound.
func (s *CheckpointStore) Get(ctx context.Context, source string) (store.Checkpoint, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT"+checkpointColumns+" FROM etl_checkpoints WHERE source = $1", source)
	cp, err := scanCheckpoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Checkpoint{}, store.ErrNotFound
		}
		return store.Checkpoint{}, fmt.Errorf("get checkpoint: %w", err)
	}
	return cp, nil
}

// MarkRunning stamps last_run_start/last_run_status on an existing row. A
// source with no checkpoint yet is left alone; Upsert creates it at run end.
func (s *CheckpointStore) MarkRunning(ctx context.Context, source string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
UPDATE etl_checkpoints
SET last_run_start = $2, last_run_status = $3, updated_at = $2
WHERE source = $1`,
		source, at, store.RunRunning,
	)
	if err != nil {
		return fmt.Errorf("mark checkpoint running: %w", err)
	}
	return nil
}

// Upsert applies one run's contribution: an explicit read-then-update, with
// an insert on first contact. The cumulative counter grows by update.Delta
// and is never overwritten. Single writer assumed; the transaction keeps the
// read-modify-write atomic against readers.
func (s *CheckpointStore) Upsert(ctx context.Context, update store.CheckpointUpdate, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkpoint upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, "SELECT id FROM etl_checkpoints WHERE source = $1", update.Source).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx, `
INSERT INTO etl_checkpoints
	(source, last_processed_id, last_processed_timestamp, records_processed,
	 last_run_start, last_run_end, last_run_status, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $3, $3, $5, $6, $3, $3)`,
			update.Source, update.LastProcessedID, at, update.Delta, update.Status, update.Error,
		)
		if err != nil {
			return fmt.Errorf("insert checkpoint: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read checkpoint: %w", err)
	default:
		_, err = tx.Exec(ctx, `
UPDATE etl_checkpoints
SET last_processed_id = $2,
    last_processed_timestamp = $3,
    records_processed = records_processed + $4,
    last_run_end = $3,
    last_run_status = $5,
    last_error = $6,
    updated_at = $3
WHERE id = $1`,
			id, update.LastProcessedID, at, update.Delta, update.Status, update.Error,
		)
		if err != nil {
			return fmt.Errorf("update checkpoint: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkpoint upsert: %w", err)
	}
	return nil
}

// List returns all source checkpoints ordered by source.
func (s *CheckpointStore) List(ctx context.Context) ([]store.Checkpoint, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT"+checkpointColumns+" FROM etl_checkpoints ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []store.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoint rows: %w", err)
	}
	return checkpoints, nil
}

func scanCheckpoint(row pgx.Row) (store.Checkpoint, error) {
	var cp store.Checkpoint
	var lastProcessedID *string
	var lastRunStatus *string
	err := row.Scan(
		&cp.Source,
		&lastProcessedID,
		&cp.LastProcessedAt,
		&cp.RecordsProcessed,
		&cp.LastRunStart,
		&cp.LastRunEnd,
		&lastRunStatus,
		&cp.LastError,
		&cp.CreatedAt,
		&cp.UpdatedAt,
	)
	if err != nil {
		return store.Checkpoint{}, err
	}
	if lastProcessedID != nil {
		cp.LastProcessedID = *lastProcessedID
	}
	if lastRunStatus != nil {
		cp.LastRunStatus = store.RunStatus(*lastRunStatus)
	}
	return cp, nil
}
