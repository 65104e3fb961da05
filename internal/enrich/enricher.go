// Package enrich fills empty marketing fields of the canonical table with
// generated text.
package enrich

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"catalog/internal/metrics"
	"catalog/internal/productctx"
	"catalog/internal/storage"
)

// Generator is the text-generation collaborator. It may fail or return "";
// either way the field stays unset.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Checkpoint persists the table as enriched so far.
type Checkpoint func(ctx context.Context, t storage.Table) error

const (
	FieldURLKey = "url_key"

	DefaultDelay           = time.Second
	DefaultCheckpointEvery = 10
	DefaultContextColumn   = "additional_context"
)

// DefaultFields are enriched when Options.Fields is empty.
var DefaultFields = []string{"name", "description", "short_description", FieldURLKey}

type Options struct {
	Fields []string
	// Prompts maps a field to its template. Placeholders are {column} names
	// from the row or keys of the parsed context column.
	Prompts map[string]string
	// Delay is the minimum spacing between two Generate calls.
	Delay           time.Duration
	CheckpointEvery int
	// Limit > 0 processes only the first Limit rows.
	Limit         int
	ContextColumn string
	Logger        Logger
}

// Stats counts one enrichment run.
type Stats struct {
	Rows        int
	Calls       int
	Generated   int
	Failed      int
	Checkpoints int
}

// Enricher calls the Generator sequentially, one row at a time.
type Enricher struct {
	gen     Generator
	limiter *rate.Limiter
	opt     Options
}

func New(gen Generator, opt Options) *Enricher {
	if len(opt.Fields) == 0 {
		opt.Fields = DefaultFields
	}
	if opt.Delay <= 0 {
		opt.Delay = DefaultDelay
	}
	if opt.CheckpointEvery <= 0 {
		opt.CheckpointEvery = DefaultCheckpointEvery
	}
	if opt.ContextColumn == "" {
		opt.ContextColumn = DefaultContextColumn
	}
	return &Enricher{
		gen:     gen,
		limiter: rate.NewLimiter(rate.Every(opt.Delay), 1),
		opt:     opt,
	}
}

// Run enriches t and returns the result. checkpoint, when non-nil, is called
// every CheckpointEvery rows; a checkpoint error aborts the run.
func (e *Enricher) Run(ctx context.Context, t storage.Table, checkpoint Checkpoint) (storage.Table, Stats, error) {
	var st Stats
	out := prepare(t, e.opt.Fields, e.opt.Limit)
	if e.opt.Limit > 0 {
		e.logf("stage=enrich limit=%d total=%d", len(out.Rows), len(t.Rows))
	}

	ctxIdx := out.Index(e.opt.ContextColumn)
	skuIdx := out.Index("sku")

	for i, row := range out.Rows {
		if err := ctx.Err(); err != nil {
			return out, st, err
		}
		vars := e.variables(out.Columns, row, ctxIdx)
		sku := ""
		if skuIdx >= 0 {
			sku = row[skuIdx]
		}

		for _, field := range e.opt.Fields {
			col := out.Index(field)
			if !isBlank(row[col]) {
				continue
			}
			tmpl, ok := e.opt.Prompts[field]
			if !ok || strings.TrimSpace(tmpl) == "" {
				continue
			}
			if err := e.limiter.Wait(ctx); err != nil {
				return out, st, err
			}
			st.Calls++
			text, err := e.gen.Generate(ctx, Render(tmpl, vars))
			text = strings.TrimSpace(text)
			switch {
			case err != nil:
				st.Failed++
				metrics.RecordEnrichCall(field, "error")
				e.logf("stage=enrich row=%d sku=%s field=%s err=%v", i+1, sku, field, err)
				continue
			case text == "":
				st.Failed++
				metrics.RecordEnrichCall(field, "empty")
				e.logf("stage=enrich row=%d sku=%s field=%s warn=%q", i+1, sku, field, "empty response")
				continue
			}
			if field == FieldURLKey {
				text = URLKey(text)
			}
			row[col] = text
			vars[field] = text
			st.Generated++
			metrics.RecordEnrichCall(field, "ok")
		}
		st.Rows++

		if checkpoint != nil && (i+1)%e.opt.CheckpointEvery == 0 {
			if err := checkpoint(ctx, out); err != nil {
				return out, st, fmt.Errorf("checkpoint after row %d: %w", i+1, err)
			}
			st.Checkpoints++
			e.logf("stage=checkpoint rows=%d/%d", i+1, len(out.Rows))
		}
	}
	e.logf("stage=enrich rows=%d calls=%d generated=%d failed=%d", st.Rows, st.Calls, st.Generated, st.Failed)
	return out, st, nil
}

// prepare copies t (limited to limit rows) and appends missing field columns.
func prepare(t storage.Table, fields []string, limit int) storage.Table {
	out := storage.Table{Columns: append([]string(nil), t.Columns...)}
	for _, f := range fields {
		if out.Index(f) < 0 {
			out.Columns = append(out.Columns, f)
		}
	}
	rows := t.Rows
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out.Rows = make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, len(out.Columns))
		copy(row, r)
		out.Rows[i] = row
	}
	return out
}

// variables merges the parsed context (lowercase keys) under the row's own
// columns; non-empty row values win.
func (e *Enricher) variables(columns, row []string, ctxIdx int) map[string]string {
	vars := map[string]string{}
	if ctxIdx >= 0 && row[ctxIdx] != "" {
		c, err := productctx.Parse(row[ctxIdx])
		if err != nil {
			e.logf("stage=enrich warn=%q err=%v", "unparseable context", err)
		}
		for k, v := range c.Map() {
			vars[k] = v
		}
	}
	for i, col := range columns {
		if v := row[i]; !isBlank(v) || vars[col] == "" {
			vars[col] = v
		}
	}
	return vars
}

func isBlank(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "nan")
}

var placeholder = regexp.MustCompile(`\{\{|\}\}|\{([^{}]*)\}`)

// Render substitutes {key} placeholders from vars (exact key, then
// lowercase). Unknown keys render empty; {{ and }} are literal braces.
func Render(tmpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		switch m {
		case "{{":
			return "{"
		case "}}":
			return "}"
		}
		key := strings.TrimSpace(m[1 : len(m)-1])
		if v, ok := vars[key]; ok {
			return v
		}
		return vars[strings.ToLower(key)]
	})
}

// URLKey lowercases s and replaces spaces with "-".
func URLKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// TestOutputPath maps "out/db.csv" to "out/db_test.csv" for limited runs.
func TestOutputPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_test" + ext
}

func (e *Enricher) logf(format string, v ...any) {
	if e.opt.Logger != nil {
		e.opt.Logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}
