// Package ingest implements the per-source ingestion run: fetch, normalize,
// persist in batches, checkpoint, and record run metadata.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coinlake/crypto-etl/internal/archive"
	"github.com/coinlake/crypto-etl/internal/metrics"
	"github.com/coinlake/crypto-etl/internal/source"
	"github.com/coinlake/crypto-etl/internal/store"
)

// defaultBatchSize bounds how many processed records may be lost to a crash
// between flushes; re-runs make the loss recoverable.
const defaultBatchSize = 50

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Summary is the per-run outcome returned to the orchestrator.
type Summary struct {
	RunID            string  `json:"run_id"`
	Status           string  `json:"status"`
	RecordsProcessed int64   `json:"records_processed"`
	RecordsFailed    int64   `json:"records_failed"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// Config tunes one Ingestor.
type Config struct {
	// BatchSize is the flush interval in processed records (default 50).
	BatchSize int
}

// Ingestor runs one source through a full ingestion attempt. A fresh attempt
// always opens a new run record; terminal run states are never re-entered.
type Ingestor struct {
	client      source.Client
	normalizer  source.Normalizer
	market      store.MarketStore
	checkpoints store.CheckpointStore
	runs        store.RunStore
	archiver    archive.Store
	clock       Clock
	batchSize   int
	logger      *zap.Logger
}

// New constructs an Ingestor. The archiver may be nil; raw payload archival
// is then skipped.
func New(
	client source.Client,
	normalizer source.Normalizer,
	market store.MarketStore,
	checkpoints store.CheckpointStore,
	runs store.RunStore,
	archiver archive.Store,
	clock Clock,
	cfg Config,
	logger *zap.Logger,
) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Ingestor{
		client:      client,
		normalizer:  normalizer,
		market:      market,
		checkpoints: checkpoints,
		runs:        runs,
		archiver:    archiver,
		clock:       clock,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Source returns the label of the source this ingestor serves.
func (ing *Ingestor) Source() string {
	return ing.client.Name()
}

// Run executes one ingestion attempt. Per-record normalization failures are
// counted and skipped; any other failure finalizes the run as failed and is
// returned as a *RunError.
func (ing *Ingestor) Run(ctx context.Context, limit int) (Summary, error) {
	name := ing.client.Name()
	start := ing.clock.Now()
	runID := fmt.Sprintf("%s_%d", name, start.UnixNano())
	logger := ing.logger.With(zap.String("source", name), zap.String("run_id", runID))

	err := ing.runs.Create(ctx, store.Run{
		RunID:     runID,
		Source:    name,
		StartTime: start,
		Status:    store.RunRunning,
	})
	if err != nil {
		return Summary{}, &PersistenceError{Op: "create run", Err: err}
	}

	var processed, failed int64
	var lastID string

	fail := func(cause error) (Summary, error) {
		errMsg := cause.Error()
		if cpErr := ing.checkpoints.Upsert(ctx, store.CheckpointUpdate{
			Source: name,
			Status: store.RunFailed,
			Error:  &errMsg,
		}, ing.clock.Now()); cpErr != nil {
			logger.Error("checkpoint update after failure", zap.Error(cpErr))
		}
		end := ing.clock.Now()
		if finErr := ing.runs.Finalize(ctx, runID, end, store.RunResult{
			Status:           store.RunFailed,
			RecordsProcessed: processed,
			RecordsFailed:    failed,
			Error:            &errMsg,
		}); finErr != nil {
			logger.Error("run finalize after failure", zap.Error(finErr))
		}
		duration := end.Sub(start).Seconds()
		metrics.ObserveRun(name, string(store.RunFailed), duration)
		logger.Error("ingestion failed", zap.Error(cause))
		return Summary{}, &RunError{
			Source: name,
			Summary: Summary{
				RunID:            runID,
				Status:           string(store.RunFailed),
				RecordsProcessed: processed,
				RecordsFailed:    failed,
				DurationSeconds:  duration,
			},
			Err: cause,
		}
	}

	if err := ing.checkpoints.MarkRunning(ctx, name, start); err != nil {
		return fail(&PersistenceError{Op: "mark checkpoint running", Err: err})
	}

	records, err := ing.client.Fetch(ctx, limit)
	if err != nil {
		return fail(err)
	}
	logger.Info("fetched records", zap.Int("count", len(records)))

	var batchRaws []store.RawRecord
	var batchPrices []store.PricePoint

	flush := func() error {
		if len(batchRaws) == 0 && len(batchPrices) == 0 {
			return nil
		}
		if err := ing.market.AppendBatch(ctx, batchRaws, batchPrices); err != nil {
			return &PersistenceError{Op: "append batch", Err: err}
		}
		batchRaws = batchRaws[:0]
		batchPrices = batchPrices[:0]
		return nil
	}

	for _, rec := range records {
		coinID, _ := source.StringField(rec, "id", "coin_id", "symbol")
		lastID = coinID

		payload, err := json.Marshal(rec)
		if err != nil {
			failed++
			logger.Warn("serialize raw record", zap.String("coin_id", coinID), zap.Error(err))
			continue
		}
		batchRaws = append(batchRaws, store.RawRecord{
			Source:     name,
			CoinID:     coinID,
			Payload:    payload,
			IngestedAt: ing.clock.Now(),
		})

		point, ok := ing.normalizer.Normalize(rec)
		if !ok {
			failed++
			continue
		}
		batchPrices = append(batchPrices, point)
		processed++

		if processed%int64(ing.batchSize) == 0 {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}
	if err := flush(); err != nil {
		return fail(err)
	}

	ing.archiveRaw(ctx, logger, runID, records)

	if err := ing.checkpoints.Upsert(ctx, store.CheckpointUpdate{
		Source:          name,
		LastProcessedID: lastID,
		Delta:           processed,
		Status:          store.RunSuccess,
	}, ing.clock.Now()); err != nil {
		return fail(&PersistenceError{Op: "upsert checkpoint", Err: err})
	}

	end := ing.clock.Now()
	duration := end.Sub(start).Seconds()
	if err := ing.runs.Finalize(ctx, runID, end, store.RunResult{
		Status:           store.RunSuccess,
		RecordsProcessed: processed,
		RecordsFailed:    failed,
	}); err != nil {
		return fail(&PersistenceError{Op: "finalize run", Err: err})
	}

	metrics.ObserveRun(name, string(store.RunSuccess), duration)
	metrics.AddRecords(name, processed, failed)
	logger.Info("ingestion completed",
		zap.Int64("processed", processed),
		zap.Int64("failed", failed),
		zap.Float64("duration_seconds", duration),
	)
	return Summary{
		RunID:            runID,
		Status:           string(store.RunSuccess),
		RecordsProcessed: processed,
		RecordsFailed:    failed,
		DurationSeconds:  duration,
	}, nil
}

// archiveRaw writes the run's raw payload to the archive store. Archival is
// best effort: the canonical raw copy already lives in the database.
func (ing *Ingestor) archiveRaw(ctx context.Context, logger *zap.Logger, runID string, records []source.Record) {
	if ing.archiver == nil || len(records) == 0 {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		logger.Warn("serialize archive payload", zap.Error(err))
		return
	}
	path := fmt.Sprintf("%s/%s.json", ing.client.Name(), runID)
	uri, err := ing.archiver.Put(ctx, path, "application/json", bytes.NewReader(data))
	if err != nil {
		logger.Warn("archive raw payload", zap.Error(err))
		return
	}
	logger.Debug("archived raw payload", zap.String("uri", uri))
}
