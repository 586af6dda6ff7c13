// Package publisher defines the run-event publishing contract.
package publisher

import (
	"context"
	"time"
)

// Publisher emits run lifecycle events to an external topic. Implementations
// must be safe for concurrent use.
type Publisher interface {
	// Publish sends the payload to the topic and returns the broker's
	// message id.
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunEvent is the payload published when a source run reaches a terminal
// state.
type RunEvent struct {
	RunID            string    `json:"run_id"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	RecordsProcessed int64     `json:"records_processed"`
	RecordsFailed    int64     `json:"records_failed"`
	DurationSeconds  float64   `json:"duration_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
}
