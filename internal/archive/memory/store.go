// Package memory implements an in-memory archive store for tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Store keeps archive objects in a map keyed by path.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

// Put records the object and returns a mem:// URI.
func (s *Store) Put(_ context.Context, path string, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return "mem://" + path, nil
}

// Get returns a stored object (test helper).
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	return data, ok
}

// Len reports the number of stored objects (test helper).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
