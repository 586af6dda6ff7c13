package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coinlake/crypto-etl/internal/store"
)

// CheckpointStore keeps one checkpoint per source in process memory.
type CheckpointStore struct {
	mu          sync.Mutex
	checkpoints map[string]store.Checkpoint
}

// NewCheckpointStore creates an empty CheckpointStore.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{checkpoints: make(map[string]store.Checkpoint)}
}

// Get loads a source checkpoint or returns store.ErrNotFound.
func (s *CheckpointStore) Get(_ context.Context, source string) (store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[source]
	if !ok {
		return store.Checkpoint{}, store.ErrNotFound
	}
	return cp, nil
}

// MarkRunning stamps last_run_start on an existing checkpoint; a missing
// checkpoint is a no-op, Upsert creates it at run end.
func (s *CheckpointStore) MarkRunning(_ context.Context, source string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[source]
	if !ok {
		return nil
	}
	start := at
	cp.LastRunStart = &start
	cp.LastRunStatus = store.RunRunning
	cp.UpdatedAt = at
	s.checkpoints[source] = cp
	return nil
}

// Upsert creates or updates the source checkpoint; the cumulative counter
// grows by update.Delta.
func (s *CheckpointStore) Upsert(_ context.Context, update store.CheckpointUpdate, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := at
	cp, ok := s.checkpoints[update.Source]
	if !ok {
		cp = store.Checkpoint{
			Source:       update.Source,
			LastRunStart: &end,
			CreatedAt:    at,
		}
	}
	cp.LastProcessedID = update.LastProcessedID
	cp.LastProcessedAt = &end
	cp.RecordsProcessed += update.Delta
	cp.LastRunEnd = &end
	cp.LastRunStatus = update.Status
	cp.LastError = update.Error
	cp.UpdatedAt = at
	s.checkpoints[update.Source] = cp
	return nil
}

// List returns all checkpoints ordered by source.
func (s *CheckpointStore) List(_ context.Context) ([]store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}
