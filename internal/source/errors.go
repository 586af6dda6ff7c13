package source

import "fmt"

// FetchError reports a network or API-level failure reaching a source. It is
// fatal to that source's run and non-fatal to the orchestrator.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFoundError reports a missing file or resource backing a source.
type NotFoundError struct {
	Source string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %s: %s not found", e.Source, e.Path)
}
