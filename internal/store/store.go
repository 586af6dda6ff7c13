package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RunStatus mirrors the status columns of etl_checkpoints and etl_runs.
type RunStatus string

// Run statuses persisted in etl_runs.status and etl_checkpoints.last_run_status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// RawRecord is an append-only copy of exactly what a source returned for one
// coin at ingestion time. The payload is opaque to everything downstream.
type RawRecord struct {
	// Source is the provider label (coingecko, coinpaprika, csv).
	Source string
	// CoinID is the source-native identifier.
	CoinID string
	// Payload holds the serialized upstream entity.
	Payload []byte
	// IngestedAt captures when the record was stored.
	IngestedAt time.Time
}

// PricePoint is the canonical cross-source price representation. Optional
// numeric fields are nil when the source omitted them or the value fell
// outside the accepted range.
type PricePoint struct {
	CoinID string
	Symbol string
	// Name is optional display text.
	Name *string
	// PriceUSD through Change24h are source-declared USD figures.
	PriceUSD  *float64
	MarketCap *float64
	Volume24h *float64
	Change24h *float64
	// Timestamp is the observation time assigned at normalization.
	Timestamp time.Time
	Source    string
}

// Checkpoint is the latest-state cursor for one source. Exactly one row per
// source; RecordsProcessed only ever grows across runs.
type Checkpoint struct {
	Source string
	// LastProcessedID is the source-native id of the final record of the
	// last successful run. Persisted for cursor-based resume; the current
	// fetchers are full-refresh and do not consume it.
	LastProcessedID string
	LastProcessedAt *time.Time
	// RecordsProcessed accumulates across runs and is never reset.
	RecordsProcessed int64
	LastRunStart     *time.Time
	LastRunEnd       *time.Time
	LastRunStatus    RunStatus
	// LastError holds the most recent failure, nil after a success.
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckpointUpdate carries one run's contribution to a source checkpoint.
type CheckpointUpdate struct {
	Source          string
	LastProcessedID string
	// Delta is added to the cumulative counter, never assigned.
	Delta  int64
	Status RunStatus
	// Error replaces the stored last_error; nil clears it.
	Error *string
}

// Run records one ingestion attempt for one source. Created with status
// running and finalized exactly once to success or failed.
type Run struct {
	RunID     string
	Source    string
	StartTime time.Time
	// EndTime is nil until the run is finalized.
	EndTime          *time.Time
	Status           RunStatus
	RecordsProcessed int64
	RecordsFailed    int64
	DurationSeconds  *float64
	ErrorMessage     *string
}

// RunResult carries the terminal state applied by RunStore.Finalize.
type RunResult struct {
	Status           RunStatus
	RecordsProcessed int64
	RecordsFailed    int64
	// Error is stored only for failed runs.
	Error *string
}

// PriceFilter narrows and pages ListPrices results.
type PriceFilter struct {
	// Symbol is matched case-insensitively as a substring when non-empty.
	Symbol string
	// Source must match exactly when non-empty.
	Source string
	Limit  int
	Offset int
}

// RunFilter narrows and pages ListRuns results.
type RunFilter struct {
	Source string
	Limit  int
}

// MarketStore persists raw source payloads and normalized prices. Both tables
// are append-only; AppendBatch is the only write path and commits one batch
// as a single transaction.
type MarketStore interface {
	AppendBatch(ctx context.Context, raws []RawRecord, prices []PricePoint) error
	// ListPrices returns one page of normalized prices, newest first, plus
	// the unpaged total matching the filter.
	ListPrices(ctx context.Context, filter PriceFilter) ([]PricePoint, int64, error)
}

// CheckpointStore persists one cursor row per source.
type CheckpointStore interface {
	// Get loads a source checkpoint or returns ErrNotFound.
	Get(ctx context.Context, source string) (Checkpoint, error)
	// MarkRunning stamps last_run_start/last_run_status on an existing
	// checkpoint. Missing checkpoints are left for Upsert to create.
	MarkRunning(ctx context.Context, source string, at time.Time) error
	// Upsert creates the checkpoint on first contact with a source and
	// applies the update to it afterwards. The cumulative counter grows by
	// update.Delta.
	Upsert(ctx context.Context, update CheckpointUpdate, at time.Time) error
	// List returns all checkpoints ordered by source.
	List(ctx context.Context) ([]Checkpoint, error)
}

// RunStore persists the full per-attempt run history.
type RunStore interface {
	Create(ctx context.Context, run Run) error
	// Finalize is the only mutation after Create; it stamps end_time and
	// the terminal status.
	Finalize(ctx context.Context, runID string, endTime time.Time, result RunResult) error
	// Get loads a run by id or returns ErrNotFound.
	Get(ctx context.Context, runID string) (Run, error)
	// ListRuns returns run history, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
}
