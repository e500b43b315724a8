package features

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rhanqtl/aiops/internal/storage"
	"github.com/rhanqtl/aiops/internal/storage/memory"
	"github.com/rhanqtl/aiops/pkg/tabular"
)

func structuredFixture(t *testing.T) *tabular.Table {
	t.Helper()
	logs := tabular.New("LineId", "Content", "EventId", "EventTemplate")
	rows := [][]string{
		{"1", "Receiving block blk_1 src node1", "1", "Receiving block <*> src <*>"},
		{"2", "Receiving block blk_2 src node2", "1", "Receiving block <*> src <*>"},
		{"3", "PacketResponder for blk_1 terminating", "2", "PacketResponder for <*> terminating"},
		{"4", "Verification succeeded for blk_-3", "3", "Verification succeeded for <*>"},
		{"5", "Deleting blk_1 blk_1 duplicate mention", "4", "Deleting <*> <*> duplicate mention"},
	}
	for _, row := range rows {
		if err := logs.Append(row...); err != nil {
			t.Fatal(err)
		}
	}
	return logs
}

func TestGroupByBlockID(t *testing.T) {
	grouped, err := GroupByBlockID(structuredFixture(t))
	if err != nil {
		t.Fatalf("GroupByBlockID() error = %v", err)
	}

	if grouped.Len() != 3 {
		t.Fatalf("groups = %d, want 3", grouped.Len())
	}

	// First-seen order, one event id per mentioning row, duplicates within a
	// row counted once.
	want := [][2]string{
		{"blk_1", "1 2 4"},
		{"blk_2", "1"},
		{"blk_-3", "3"},
	}
	for i, w := range want {
		blockID, _ := grouped.Value(i, "BlockId")
		sequence, _ := grouped.Value(i, "Sequence")
		if blockID != w[0] || sequence != w[1] {
			t.Errorf("row %d = (%q, %q), want (%q, %q)", i, blockID, sequence, w[0], w[1])
		}
	}
}

func TestGroupByBlockIDMissingColumns(t *testing.T) {
	bad := tabular.New("LineId", "Content")
	if _, err := GroupByBlockID(bad); err == nil {
		t.Error("GroupByBlockID() without EventId column should fail")
	}
}

func TestAttachLabels(t *testing.T) {
	labelPath := filepath.Join(t.TempDir(), "labels.csv")
	csv := "BlockId,Label\nblk_1,Anomaly\nblk_2,Normal\n"
	if err := os.WriteFile(labelPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	grouped, err := GroupByBlockID(structuredFixture(t))
	if err != nil {
		t.Fatalf("GroupByBlockID() error = %v", err)
	}
	joined, err := AttachLabels(grouped, labelPath)
	if err != nil {
		t.Fatalf("AttachLabels() error = %v", err)
	}

	// blk_-3 has no ground truth row and is dropped by the inner join.
	if joined.Len() != 2 {
		t.Fatalf("joined rows = %d, want 2", joined.Len())
	}
	if v, _ := joined.Value(0, "Label"); v != "1" {
		t.Errorf("blk_1 Label = %q, want 1 (Anomaly)", v)
	}
	if v, _ := joined.Value(1, "Label"); v != "0" {
		t.Errorf("blk_2 Label = %q, want 0", v)
	}
}

func TestExtract(t *testing.T) {
	ctx := context.Background()

	logStore := memory.New(storage.TableStructuredLogs)
	if err := logStore.Save(ctx, structuredFixture(t)); err != nil {
		t.Fatal(err)
	}
	featureStore := memory.New(storage.TableHDFSFeatures)

	if err := Extract(ctx, logStore, featureStore, ""); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	got, err := featureStore.Get(ctx)
	if err != nil {
		t.Fatalf("featureStore.Get() error = %v", err)
	}
	if got.Len() != 3 {
		t.Errorf("feature rows = %d, want 3", got.Len())
	}
}
