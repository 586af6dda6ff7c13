// Package orchestrator drives every configured source through one ingestion
// attempt and aggregates the outcomes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coinlake/crypto-etl/internal/ingest"
	"github.com/coinlake/crypto-etl/internal/publisher"
	"github.com/coinlake/crypto-etl/internal/store"
)

// Overall statuses reported by RunAll. A run that completes all sources with
// at least one failure is partial, never failed.
const (
	OverallSuccess = "success"
	OverallPartial = "partial"
)

// Runner is one source's ingestion entry point.
type Runner interface {
	Source() string
	Run(ctx context.Context, limit int) (ingest.Summary, error)
}

// SourceResult is one source's contribution to an orchestration result.
// Error is empty for successful runs.
type SourceResult struct {
	Source           string  `json:"source"`
	Status           string  `json:"status"`
	RunID            string  `json:"run_id,omitempty"`
	RecordsProcessed int64   `json:"records_processed"`
	RecordsFailed    int64   `json:"records_failed"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Error            string  `json:"error,omitempty"`
}

// Result aggregates all per-source outcomes of one RunAll invocation.
type Result struct {
	OverallStatus string         `json:"overall_status"`
	Sources       []SourceResult `json:"sources"`
}

// Orchestrator runs its ingestors sequentially, in registration order. A
// failing source never stops the remaining sources.
type Orchestrator struct {
	runners []Runner
	pub     publisher.Publisher
	topic   string
	logger  *zap.Logger
}

// New constructs an Orchestrator. The publisher may be nil; run events are
// then not emitted.
func New(runners []Runner, pub publisher.Publisher, topic string, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{runners: runners, pub: pub, topic: topic, logger: logger}
}

// RunAll ingests every registered source, or only the named one when
// sourceFilter is non-empty. Each source's failure is captured into its
// result entry; the returned error is reserved for invocation mistakes such
// as an unknown source filter.
func (o *Orchestrator) RunAll(ctx context.Context, sourceFilter string, limit int) (Result, error) {
	runners := o.runners
	if sourceFilter != "" {
		runners = nil
		for _, r := range o.runners {
			if r.Source() == sourceFilter {
				runners = append(runners, r)
			}
		}
		if len(runners) == 0 {
			return Result{}, fmt.Errorf("unknown source %q", sourceFilter)
		}
	}

	result := Result{OverallStatus: OverallSuccess}
	o.logger.Info("orchestration started",
		zap.Int("sources", len(runners)),
		zap.Int("limit", limit),
	)

	for _, runner := range runners {
		name := runner.Source()
		summary, err := runner.Run(ctx, limit)
		if err != nil {
			result.OverallStatus = OverallPartial
			entry := SourceResult{
				Source: name,
				Status: string(store.RunFailed),
				Error:  err.Error(),
			}
			var runErr *ingest.RunError
			if errors.As(err, &runErr) {
				entry.RunID = runErr.Summary.RunID
				entry.RecordsProcessed = runErr.Summary.RecordsProcessed
				entry.RecordsFailed = runErr.Summary.RecordsFailed
				entry.DurationSeconds = runErr.Summary.DurationSeconds
			}
			result.Sources = append(result.Sources, entry)
			o.publishEvent(ctx, entry)
			o.logger.Error("source ingestion failed", zap.String("source", name), zap.Error(err))
			continue
		}

		entry := SourceResult{
			Source:           name,
			Status:           summary.Status,
			RunID:            summary.RunID,
			RecordsProcessed: summary.RecordsProcessed,
			RecordsFailed:    summary.RecordsFailed,
			DurationSeconds:  summary.DurationSeconds,
		}
		result.Sources = append(result.Sources, entry)
		o.publishEvent(ctx, entry)
		o.logger.Info("source ingestion completed",
			zap.String("source", name),
			zap.Int64("processed", summary.RecordsProcessed),
			zap.Int64("failed", summary.RecordsFailed),
		)
	}

	o.logger.Info("orchestration completed", zap.String("overall_status", result.OverallStatus))
	return result, nil
}

// publishEvent emits a run event, best effort. Event loss is tolerable: the
// run history remains queryable from storage.
func (o *Orchestrator) publishEvent(ctx context.Context, entry SourceResult) {
	if o.pub == nil {
		return
	}
	event := publisher.RunEvent{
		RunID:            entry.RunID,
		Source:           entry.Source,
		Status:           entry.Status,
		RecordsProcessed: entry.RecordsProcessed,
		RecordsFailed:    entry.RecordsFailed,
		DurationSeconds:  entry.DurationSeconds,
		CompletedAt:      time.Now().UTC(),
	}
	if _, err := o.pub.Publish(ctx, o.topic, event); err != nil {
		o.logger.Warn("publish run event", zap.String("source", entry.Source), zap.Error(err))
	}
}
