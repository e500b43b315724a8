package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/rhanqtl/aiops/internal/storage/clickhouse"
	"github.com/rhanqtl/aiops/internal/storage/csvfile"
	"github.com/rhanqtl/aiops/internal/storage/memory"
	"github.com/rhanqtl/aiops/internal/storage/sqlite"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend selects the storage backend: "memory", "csv", "sqlite" or "clickhouse"
	Backend string `yaml:"backend"`

	// CSVDir is the directory CSV-backed tables are written to
	CSVDir string `yaml:"csv_dir"`

	// SQLitePath is the database file for the sqlite backend
	SQLitePath string `yaml:"sqlite_path"`

	// ClickHouse connection parameters
	ClickHouseAddr     string `yaml:"clickhouse_addr"`
	ClickHouseDatabase string `yaml:"clickhouse_database"`
	ClickHouseUsername string `yaml:"clickhouse_username"`
	ClickHousePassword string `yaml:"clickhouse_password"`

	// ClickHouseConnectAttempts bounds the startup ping retries
	ClickHouseConnectAttempts int `yaml:"clickhouse_connect_attempts"`
}

// DefaultConfig returns default storage configuration.
func DefaultConfig() Config {
	return Config{
		Backend:                   "csv",
		CSVDir:                    "./data",
		SQLitePath:                "./data/aiops.db",
		ClickHouseAddr:            "localhost:9000",
		ClickHouseDatabase:        "default",
		ClickHouseUsername:        "default",
		ClickHouseConnectAttempts: 3,
	}
}

// NewLogStore creates a log store bound to the named table.
func NewLogStore(ctx context.Context, cfg Config, table string, logger *slog.Logger) (LogStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "memory":
		return memory.New(table), nil

	case "csv":
		path := filepath.Join(cfg.CSVDir, table+".csv")
		return csvfile.New(path), nil

	case "sqlite":
		store, err := sqlite.New(cfg.SQLitePath, table)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store for %s: %w", table, err)
		}
		return store, nil

	case "clickhouse":
		store, err := clickhouse.NewStore(ctx, clickhouse.Config{
			Addr:            cfg.ClickHouseAddr,
			Database:        cfg.ClickHouseDatabase,
			Username:        cfg.ClickHouseUsername,
			Password:        cfg.ClickHousePassword,
			ConnectAttempts: cfg.ClickHouseConnectAttempts,
		}, table, logger)
		if err != nil {
			return nil, fmt.Errorf("creating ClickHouse store for %s: %w", table, err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, csv, sqlite, clickhouse)", cfg.Backend)
	}
}
