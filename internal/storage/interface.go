// Package storage defines the tabular log store interface the parser reads
// from and writes to, plus the backend factory.
package storage

import (
	"context"

	"github.com/rhanqtl/aiops/pkg/tabular"
)

// ErrNoSuchLogData is returned by Get when the store holds no rows, either
// because the backing table/file does not exist yet or because it is empty.
var ErrNoSuchLogData = tabular.ErrNoSuchLogData

// Well-known table names used by the parsing pipeline.
const (
	TableStructuredLogs = "structured_logs"
	TableEventTemplates = "event_templates"
	TableHDFSFeatures   = "hdfs_features"
)

// LogStore is one tabular store. Get returns every row saved so far; Save
// appends rows, so subsequent Gets observe the union of all saves.
//
// Stores are accessed only at parse boundaries and assume no concurrent
// writer; hosts running concurrent parses must use disjoint stores.
type LogStore interface {
	Get(ctx context.Context) (*tabular.Table, error)
	Save(ctx context.Context, t *tabular.Table) error
	Close() error
}
