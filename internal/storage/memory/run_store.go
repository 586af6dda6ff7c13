package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coinlake/crypto-etl/internal/store"
)

// RunStore keeps the run history in process memory.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]store.Run
}

// NewRunStore creates an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]store.Run)}
}

// Create persists a new run record; duplicate run ids are rejected.
func (s *RunStore) Create(_ context.Context, run store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.RunID]; ok {
		return fmt.Errorf("run %s already exists", run.RunID)
	}
	s.runs[run.RunID] = run
	return nil
}

// Finalize stamps the terminal state onto an existing run.
func (s *RunStore) Finalize(_ context.Context, runID string, endTime time.Time, result store.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	end := endTime
	duration := end.Sub(run.StartTime).Seconds()
	run.EndTime = &end
	run.Status = result.Status
	run.RecordsProcessed = result.RecordsProcessed
	run.RecordsFailed = result.RecordsFailed
	run.DurationSeconds = &duration
	run.ErrorMessage = result.Error
	s.runs[runID] = run
	return nil
}

// Get loads a run by id or returns store.ErrNotFound.
func (s *RunStore) Get(_ context.Context, runID string) (store.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return store.Run{}, store.ErrNotFound
	}
	return run, nil
}

// ListRuns returns run history, newest first.
func (s *RunStore) ListRuns(_ context.Context, filter store.RunFilter) ([]store.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if filter.Source != "" && run.Source != filter.Source {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
