// Package memory provides an in-memory log store, used in tests and for
// single-shot parses that only need the in-process result.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rhanqtl/aiops/pkg/tabular"
)

// Store is an in-memory log store holding one table.
type Store struct {
	name string

	mu    sync.RWMutex
	table *tabular.Table
}

// New creates an empty in-memory store for the named table.
func New(name string) *Store {
	return &Store{name: name}
}

// Seed replaces the store contents, bypassing append semantics. Intended for
// pre-loading an existing catalog in tests and tooling.
func (s *Store) Seed(t *tabular.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t.Clone()
}

// Get returns a copy of all rows saved so far.
func (s *Store) Get(ctx context.Context) (*tabular.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil || s.table.Len() == 0 {
		return nil, tabular.ErrNoSuchLogData
	}
	return s.table.Clone(), nil
}

// Save appends the given rows.
func (s *Store) Save(ctx context.Context, t *tabular.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		s.table = t.Clone()
		return nil
	}
	if err := s.table.Extend(t); err != nil {
		return fmt.Errorf("saving to %s: %w", s.name, err)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
