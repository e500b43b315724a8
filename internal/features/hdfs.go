// Package features groups structured HDFS log rows into per-block event
// sequences (session window sampling keyed on block id).
package features

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rhanqtl/aiops/internal/storage"
	"github.com/rhanqtl/aiops/pkg/tabular"
)

var blockIDPattern = regexp.MustCompile(`blk_-?\d+`)

// GroupByBlockID builds one (BlockId, Sequence) row per distinct HDFS block
// id found in the structured log contents. Sequence is the space-joined list
// of event ids of every row mentioning the block, in row order; blocks are
// emitted in first-seen order.
func GroupByBlockID(logs *tabular.Table) (*tabular.Table, error) {
	if logs.ColumnIndex("Content") < 0 || logs.ColumnIndex("EventId") < 0 {
		return nil, fmt.Errorf("grouping logs: need Content and EventId columns, have %v", logs.Columns)
	}

	var order []string
	sequences := make(map[string][]string)

	for i := 0; i < logs.Len(); i++ {
		content, _ := logs.Value(i, "Content")
		eventID, _ := logs.Value(i, "EventId")

		seen := make(map[string]bool)
		for _, blockID := range blockIDPattern.FindAllString(content, -1) {
			if seen[blockID] {
				continue
			}
			seen[blockID] = true
			if _, ok := sequences[blockID]; !ok {
				order = append(order, blockID)
			}
			sequences[blockID] = append(sequences[blockID], eventID)
		}
	}

	grouped := tabular.New("BlockId", "Sequence")
	for _, blockID := range order {
		if err := grouped.Append(blockID, strings.Join(sequences[blockID], " ")); err != nil {
			return nil, err
		}
	}
	return grouped, nil
}

// AttachLabels inner-joins the grouped sequences with a ground-truth CSV of
// (BlockId, Label) rows, mapping the label "Anomaly" to 1 and anything else
// to 0. Blocks without a label row are dropped.
func AttachLabels(grouped *tabular.Table, labelPath string) (*tabular.Table, error) {
	f, err := os.Open(labelPath)
	if err != nil {
		return nil, fmt.Errorf("opening label file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading label file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("label file %s is empty", labelPath)
	}

	header := records[0]
	blockIdx, labelIdx := -1, -1
	for i, name := range header {
		switch name {
		case "BlockId":
			blockIdx = i
		case "Label":
			labelIdx = i
		}
	}
	if blockIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("label file %s: need BlockId and Label columns, have %v", labelPath, header)
	}

	labels := make(map[string]string, len(records)-1)
	for _, row := range records[1:] {
		label := "0"
		if row[labelIdx] == "Anomaly" {
			label = "1"
		}
		labels[row[blockIdx]] = label
	}

	joined := tabular.New("BlockId", "Sequence", "Label")
	for i := 0; i < grouped.Len(); i++ {
		blockID, _ := grouped.Value(i, "BlockId")
		label, ok := labels[blockID]
		if !ok {
			continue
		}
		sequence, _ := grouped.Value(i, "Sequence")
		if err := joined.Append(blockID, sequence, label); err != nil {
			return nil, err
		}
	}
	return joined, nil
}

// Extract reads the structured log store, groups rows by block id,
// optionally attaches labels, and saves the result to the feature store.
func Extract(ctx context.Context, logs, featureStore storage.LogStore, labelPath string) error {
	table, err := logs.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading structured logs: %w", err)
	}

	grouped, err := GroupByBlockID(table)
	if err != nil {
		return err
	}
	if labelPath != "" {
		grouped, err = AttachLabels(grouped, labelPath)
		if err != nil {
			return err
		}
	}

	if err := featureStore.Save(ctx, grouped); err != nil {
		return fmt.Errorf("saving features: %w", err)
	}
	return nil
}
