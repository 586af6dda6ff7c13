package ingest

import "fmt"

// PersistenceError reports a storage write failure mid-run. It aborts the
// current source's run and is never retried automatically.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RunError wraps a failed run together with its summary so the orchestrator
// can record a per-source failure without losing the run identity.
type RunError struct {
	Source  string
	Summary Summary
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
