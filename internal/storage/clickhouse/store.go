// Package clickhouse provides a ClickHouse-backed log store for large
// corpora, using the native protocol driver.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rhanqtl/aiops/pkg/tabular"
)

// intColumns lists the columns stored as Int64; everything else is String.
var intColumns = map[string]bool{
	"LineId":      true,
	"EventId":     true,
	"Occurrences": true,
}

// Config holds the ClickHouse connection parameters. Zero values fall back
// to localhost defaults; ConnectAttempts defaults to 3.
type Config struct {
	Addr            string
	Database        string
	Username        string
	Password        string
	DialTimeout     time.Duration
	ConnectAttempts int
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "localhost:9000"
	}
	if c.Database == "" {
		c.Database = "default"
	}
	if c.Username == "" {
		c.Username = "default"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ConnectAttempts < 1 {
		c.ConnectAttempts = 3
	}
	return c
}

// Store is a ClickHouse-backed log store bound to one table.
type Store struct {
	conn   driver.Conn
	table  string
	logger *slog.Logger
}

// NewStore connects to ClickHouse and binds the store to the named table.
// The table is created lazily on first Save.
func NewStore(ctx context.Context, cfg Config, table string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dial(ctx, cfg.withDefaults(), logger)
	if err != nil {
		return nil, err
	}

	return &Store{conn: conn, table: table, logger: logger}, nil
}

// dial opens a native-protocol connection and verifies it with a ping. The
// server may still be coming up when the pipeline starts, so unreachable
// pings are retried with a doubling delay until ConnectAttempts runs out or
// the context is cancelled. The store only touches the server at parse
// boundaries, so the driver's default pool settings are left alone.
func dial(ctx context.Context, cfg Config, logger *slog.Logger) (driver.Conn, error) {
	var lastErr error
	delay := 500 * time.Millisecond

	for attempt := 1; ; attempt++ {
		conn, err := clickhouse.Open(&clickhouse.Options{
			Addr: []string{cfg.Addr},
			Auth: clickhouse.Auth{
				Database: cfg.Database,
				Username: cfg.Username,
				Password: cfg.Password,
			},
			DialTimeout: cfg.DialTimeout,
		})
		if err == nil {
			err = conn.Ping(ctx)
			if err == nil {
				return conn, nil
			}
			conn.Close()
		}
		lastErr = err

		if attempt >= cfg.ConnectAttempts {
			return nil, fmt.Errorf("connecting to ClickHouse at %s (%d attempts): %w", cfg.Addr, attempt, lastErr)
		}
		logger.Debug("ClickHouse not reachable yet", "addr", cfg.Addr, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
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

	rows, err := s.conn.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY insert_seq", s.table))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	columns := rows.Columns()
	// insert_seq is internal ordering state, not part of the table contract.
	visible := columns[:len(columns)-1]

	t := tabular.New(visible...)
	for rows.Next() {
		dest := make([]any, len(columns))
		for i, c := range columns {
			if c == "insert_seq" || intColumns[c] {
				dest[i] = new(int64)
			} else {
				dest[i] = new(string)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", s.table, err)
		}
		values := make([]string, len(visible))
		for i := range visible {
			switch v := dest[i].(type) {
			case *int64:
				values[i] = strconv.FormatInt(*v, 10)
			case *string:
				values[i] = *v
			}
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

// Save appends the given rows as a single batch, creating the table from the
// row schema if it does not exist yet.
func (s *Store) Save(ctx context.Context, t *tabular.Table) error {
	if err := s.ensureTable(ctx, t.Columns); err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}

	nextSeq, err := s.nextInsertSeq(ctx)
	if err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table))
	if err != nil {
		return fmt.Errorf("preparing batch for %s: %w", s.table, err)
	}

	for rowIdx, row := range t.Rows {
		values := make([]any, 0, len(row)+1)
		for i, v := range row {
			if intColumns[t.Columns[i]] {
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return fmt.Errorf("column %s of row %d: %w", t.Columns[i], rowIdx, err)
				}
				values = append(values, n)
			} else {
				values = append(values, v)
			}
		}
		values = append(values, nextSeq+int64(rowIdx))
		if err := batch.Append(values...); err != nil {
			return fmt.Errorf("appending row to %s batch: %w", s.table, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("sending %s batch: %w", s.table, err)
	}
	s.logger.Debug("saved batch", "table", s.table, "rows", t.Len())
	return nil
}

// Close closes the ClickHouse connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) tableExists(ctx context.Context) (bool, error) {
	var exists uint8
	if err := s.conn.QueryRow(ctx, fmt.Sprintf("EXISTS TABLE %s", s.table)).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking table %s: %w", s.table, err)
	}
	return exists == 1, nil
}

func (s *Store) nextInsertSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.conn.QueryRow(ctx, fmt.Sprintf("SELECT max(insert_seq) FROM %s", s.table)).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("reading insert_seq of %s: %w", s.table, err)
	}
	return maxSeq + 1, nil
}

func (s *Store) ensureTable(ctx context.Context, columns []string) error {
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		typ := "String"
		if intColumns[c] {
			typ = "Int64"
		}
		defs = append(defs, fmt.Sprintf("`%s` %s", c, typ))
	}
	defs = append(defs, "`insert_seq` Int64")

	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY insert_seq",
		s.table, strings.Join(defs, ", "),
	)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}
