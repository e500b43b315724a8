//go:build integration

package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/rhanqtl/aiops/pkg/tabular"
)

// TestClickHouseIntegration exercises the store against a live server.
// Run with: go test -tags=integration ./internal/storage/clickhouse -v
func TestClickHouseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	config := Config{Addr: os.Getenv("CLICKHOUSE_ADDR"), ConnectAttempts: 1}

	table := fmt.Sprintf("event_templates_it_%d", time.Now().UnixNano())
	store, err := NewStore(ctx, config, table, logger)
	if err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}
	defer func() {
		_ = store.conn.Exec(ctx, "DROP TABLE IF EXISTS "+table)
		store.Close()
	}()

	t.Run("GetMissingTable", func(t *testing.T) {
		if _, err := store.Get(ctx); !errors.Is(err, tabular.ErrNoSuchLogData) {
			t.Errorf("Get() error = %v, want ErrNoSuchLogData", err)
		}
	})

	t.Run("SaveGetRoundtrip", func(t *testing.T) {
		in := tabular.New("EventId", "EventTemplate", "Occurrences")
		in.Append("1", "user <*> login", "3")
		in.Append("2", "send <*> bytes", "7")
		if err := store.Save(ctx, in); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Get(ctx)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", got.Len())
		}
		if v, _ := got.Value(0, "EventTemplate"); v != "user <*> login" {
			t.Errorf("row 0 EventTemplate = %q", v)
		}
	})

	t.Run("SaveAppendsUnion", func(t *testing.T) {
		more := tabular.New("EventId", "EventTemplate", "Occurrences")
		more.Append("3", "heartbeat ok", "1")
		if err := store.Save(ctx, more); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Get(ctx)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Len() != 3 {
			t.Errorf("Len() = %d, want 3", got.Len())
		}
	})
}
