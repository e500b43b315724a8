// Package csvfile provides a CSV-file-backed log store. One store maps to one
// file; the first row is the header, saves append below it.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rhanqtl/aiops/pkg/tabular"
)

// Store is a CSV-file log store.
type Store struct {
	path string
}

// New creates a store backed by the given file path. The file is created on
// first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Get reads the whole file. A missing or header-only file yields
// ErrNoSuchLogData.
func (s *Store) Get(ctx context.Context) (*tabular.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, tabular.ErrNoSuchLogData
		}
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if len(records) <= 1 {
		return nil, tabular.ErrNoSuchLogData
	}

	t := tabular.New(records[0]...)
	for _, row := range records[1:] {
		if err := t.Append(row...); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
	}
	return t, nil
}

// Save appends the given rows, writing the header first if the file is new.
func (s *Store) Save(ctx context.Context, t *tabular.Table) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", s.path, err)
	}

	_, statErr := os.Stat(s.path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(t.Columns); err != nil {
			f.Close()
			return fmt.Errorf("writing header to %s: %w", s.path, err)
		}
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("writing row to %s: %w", s.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", s.path, err)
	}
	return f.Close()
}

// Close is a no-op; files are opened per call.
func (s *Store) Close() error {
	return nil
}
