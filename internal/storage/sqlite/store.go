// Package sqlite provides a SQLite-backed log store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rhanqtl/aiops/pkg/tabular"
	_ "modernc.org/sqlite"
)

// intColumns lists the columns stored as INTEGER; everything else is TEXT.
var intColumns = map[string]bool{
	"LineId":      true,
	"EventId":     true,
	"Occurrences": true,
}

// Store is a SQLite-backed log store bound to one table.
type Store struct {
	db    *sql.DB
	table string
}

// New opens (or creates) the database file and binds the store to the named
// table. The table itself is created lazily on first Save, from the saved
// table's columns.
func New(dbPath, table string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	return &Store{db: db, table: table}, nil
}

// Get reads every row of the bound table in insertion order.
func (s *Store) Get(ctx context.Context) (*tabular.Table, error) {
	exists, err := s.tableExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, tabular.ErrNoSuchLogData
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q ORDER BY rowid`, s.table))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", s.table, err)
	}

	t := tabular.New(columns...)
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", s.table, err)
		}
		values := make([]string, len(columns))
		for i, c := range cells {
			values[i] = c.String
		}
		if err := t.Append(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s.table, err)
	}

	if t.Len() == 0 {
		return nil, tabular.ErrNoSuchLogData
	}
	return t, nil
}

// Save appends the given rows in a single transaction, creating the table
// from the row schema if it does not exist yet.
func (s *Store) Save(ctx context.Context, t *tabular.Table) error {
	if err := s.ensureTable(ctx, t.Columns); err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	quoted := make([]string, len(t.Columns))
	placeholders := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
		placeholders[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (%s) VALUES (%s)`,
		s.table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
	))
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", s.table, err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", s.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) tableExists(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", s.table, err)
	}
	return true, nil
}

func (s *Store) ensureTable(ctx context.Context, columns []string) error {
	defs := make([]string, len(columns))
	for i, c := range columns {
		typ := "TEXT"
		if intColumns[c] {
			typ = "INTEGER"
		}
		defs[i] = fmt.Sprintf("%q %s", c, typ)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (%s)`, s.table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}
