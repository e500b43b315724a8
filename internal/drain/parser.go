// Package drain implements online log template mining with a fixed-depth
// prefix tree, after "Drain: An Online Log Parsing Approach with Fixed Depth
// Tree" (ICWS'17).
//
// A Parser runs one single-threaded pass over a raw line source: each line is
// split by the configured log format, masked by the preprocessing patterns,
// tokenized, and routed through the prefix tree to its best-matching cluster.
// At end of stream the mined templates are reconciled against the persisted
// event catalog (existing templates keep their event ids) and both the
// structured log table and the new catalog rows are saved.
package drain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/rhanqtl/aiops/internal/storage"
	"github.com/rhanqtl/aiops/pkg/tabular"
)

// ErrInvalidConfig is returned by New before any parsing begins when the
// options or the log format are unusable.
var ErrInvalidConfig = errors.New("invalid configuration")

// Options tunes a Parser. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// Depth of the parse tree, counting the root and length layers. Must be
	// at least 3; the tree routes on at most Depth-3 leading tokens below the
	// length layer.
	Depth int

	// SimilarityThreshold is the minimum similarity for joining an existing
	// cluster, in [0,1].
	SimilarityThreshold float64

	// MaxChildren bounds the branching of every internal tree node.
	MaxChildren int

	// Preprocess patterns are applied to each content in order; every match
	// is replaced by the wildcard token before tokenization.
	Preprocess []*regexp.Regexp

	// KeepParams adds the ParameterList column to the structured log table.
	KeepParams bool

	Logger *slog.Logger
}

// DefaultOptions returns the standard Drain parameters.
func DefaultOptions() Options {
	return Options{
		Depth:               4,
		SimilarityThreshold: 0.4,
		MaxChildren:         100,
		KeepParams:          true,
	}
}

// Parser mines log templates from one log source and persists the results
// through two tabular stores. A Parser is single-threaded; concurrent parses
// require independent parsers with disjoint stores.
type Parser struct {
	format     *formatMatcher
	opts       Options
	structured storage.LogStore
	events     storage.LogStore
	logger     *slog.Logger
	params     *paramExtractor
}

// New validates the configuration and builds a Parser. structured receives
// one row per accepted line; events is the persistent template catalog.
func New(format string, structured, events storage.LogStore, opts Options) (*Parser, error) {
	if opts.Depth < 3 {
		return nil, fmt.Errorf("%w: depth must be at least 3, got %d", ErrInvalidConfig, opts.Depth)
	}
	if opts.SimilarityThreshold < 0 || opts.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("%w: similarity threshold must be in [0,1], got %v", ErrInvalidConfig, opts.SimilarityThreshold)
	}
	if opts.MaxChildren < 1 {
		return nil, fmt.Errorf("%w: max children must be positive, got %d", ErrInvalidConfig, opts.MaxChildren)
	}

	matcher, err := compileFormat(format)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Parser{
		format:     matcher,
		opts:       opts,
		structured: structured,
		events:     events,
		logger:     logger,
		params:     newParamExtractor(),
	}, nil
}

// Parse runs one pass over src and persists both output tables. The context
// is passed through to the stores; the parse loop itself never suspends.
func (p *Parser) Parse(ctx context.Context, src LineSource) error {
	records, err := p.loadRecords(src)
	if err != nil {
		return err
	}

	tree := newPrefixTree(p.opts.Depth-2, p.opts.MaxChildren)
	var clusters []*logCluster

	for i, rec := range records {
		tokens := preprocess(rec.Content(), p.opts.Preprocess)

		match := bestMatch(tree.search(tokens), tokens, p.opts.SimilarityThreshold)
		if match == nil {
			c := &logCluster{template: tokens, members: []int{rec.LineID}}
			clusters = append(clusters, c)
			tree.insert(c)
		} else {
			merged := mergeTemplate(tokens, match.template)
			match.members = append(match.members, rec.LineID)
			if !tokensEqual(merged, match.template) {
				match.template = merged
			}
		}

		if (i+1)%1000 == 0 || i+1 == len(records) {
			p.logger.Debug("parse progress", "processed", i+1, "total", len(records))
		}
	}

	p.logger.Info("parse complete", "lines", len(records), "clusters", len(clusters))
	return p.outputResult(ctx, records, clusters)
}

// loadRecords drains the line source, keeping lines that match the log
// format. Non-matching lines are skipped and do not consume a line id.
func (p *Parser) loadRecords(src LineSource) ([]Record, error) {
	var records []Record
	skipped := 0
	for {
		line, ok := src.Next()
		if !ok {
			break
		}
		fields, ok := p.format.match(line)
		if !ok {
			skipped++
			continue
		}
		records = append(records, Record{LineID: len(records) + 1, Fields: fields})
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("reading log source: %w", err)
	}
	if skipped > 0 {
		p.logger.Debug("skipped lines not matching log format", "count", skipped)
	}
	return records, nil
}

// outputResult reconciles clusters with the existing event catalog, assigns
// event ids, and saves the new catalog rows and the structured log table.
func (p *Parser) outputResult(ctx context.Context, records []Record, clusters []*logCluster) error {
	existing, err := p.events.Get(ctx)
	if errors.Is(err, storage.ErrNoSuchLogData) {
		existing = tabular.New("EventId", "EventTemplate", "Occurrences")
	} else if err != nil {
		return fmt.Errorf("loading event catalog: %w", err)
	}
	p.warnNonContiguous(existing)

	nextID := existing.Len() + 1
	templates := make([]string, len(records))
	templateIDs := make([]int, len(records))
	newEvents := tabular.New("EventId", "EventTemplate", "Occurrences")

	for _, c := range clusters {
		templateStr := c.templateString()

		id, exists := lookupEvent(existing, templateStr)
		if !exists {
			id = nextID
			nextID++
		}
		for _, lineID := range c.members {
			templates[lineID-1] = templateStr
			templateIDs[lineID-1] = id
		}
		if !exists {
			if err := newEvents.Append(strconv.Itoa(id), templateStr, strconv.Itoa(len(c.members))); err != nil {
				return err
			}
		}
	}

	if err := p.events.Save(ctx, newEvents); err != nil {
		return fmt.Errorf("saving event templates: %w", err)
	}

	columns := append([]string{"LineId"}, p.format.headers...)
	columns = append(columns, "EventId", "EventTemplate")
	if p.opts.KeepParams {
		columns = append(columns, "ParameterList")
	}

	structured := tabular.New(columns...)
	for i, rec := range records {
		row := make([]string, 0, len(columns))
		row = append(row, strconv.Itoa(rec.LineID))
		for _, h := range p.format.headers {
			row = append(row, rec.Fields[h])
		}
		row = append(row, strconv.Itoa(templateIDs[i]), templates[i])
		if p.opts.KeepParams {
			row = append(row, encodeParams(p.params.extract(templates[i], rec.Content())))
		}
		if err := structured.Append(row...); err != nil {
			return err
		}
	}

	if err := p.structured.Save(ctx, structured); err != nil {
		return fmt.Errorf("saving structured logs: %w", err)
	}
	return nil
}

// warnNonContiguous flags catalogs whose event ids are not the contiguous
// range 1..N: new ids are still minted from the row count, which may collide
// with custom ids.
func (p *Parser) warnNonContiguous(catalog *tabular.Table) {
	seen := make(map[int]bool, catalog.Len())
	for i := 0; i < catalog.Len(); i++ {
		id, err := catalog.Int(i, "EventId")
		if err != nil {
			return
		}
		seen[id] = true
	}
	for id := 1; id <= catalog.Len(); id++ {
		if !seen[id] {
			p.logger.Warn("event catalog ids are not contiguous from 1; newly minted ids may collide",
				"rows", catalog.Len())
			return
		}
	}
}

// lookupEvent finds the event id of a template already in the catalog.
func lookupEvent(catalog *tabular.Table, template string) (int, bool) {
	for i := 0; i < catalog.Len(); i++ {
		v, _ := catalog.Value(i, "EventTemplate")
		if v != template {
			continue
		}
		id, err := catalog.Int(i, "EventId")
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// encodeParams serializes a parameter list as a JSON array cell.
func encodeParams(params []string) string {
	b, err := json.Marshal(params)
	if err != nil {
		return "[]"
	}
	return string(b)
}
