// Package assembler walks the per-supplier input directories, transforms
// every row and produces the deduplicated canonical table.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"catalog/internal/catalogerr"
	"catalog/internal/config"
	"catalog/internal/mapping"
	"catalog/internal/metrics"
	csvparser "catalog/internal/parser/csv"
	xlsxparser "catalog/internal/parser/xlsx"
	"catalog/internal/productctx"
	"catalog/internal/records"
	"catalog/internal/storage"
	"catalog/internal/transformer"
)

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Options tune an Assembler.
type Options struct {
	// AllFiles processes every spreadsheet of a supplier; otherwise only the
	// first one in lexical order.
	AllFiles bool
	// Workers > 1 processes suppliers in parallel. Output order is unchanged.
	Workers int
	// DedupeKeys are the canonical fields forming the identity key
	// (default: sku).
	DedupeKeys []string
	// CSV holds options for supplier .csv files (comma, encoding, ...).
	CSV config.Options

	Logger Logger
}

// Assembler is the catalog run driver.
type Assembler struct {
	tr      *transformer.Transformer
	mapping *mapping.Table
	context *productctx.Extractor
	readers map[string]records.Reader
	key     transformer.KeySpec
	opt     Options

	// RunID tags log lines; optional.
	RunID string
}

func New(tr *transformer.Transformer, mt *mapping.Table, ce *productctx.Extractor, opt Options) *Assembler {
	if opt.Workers < 1 {
		opt.Workers = 1
	}
	keys := opt.DedupeKeys
	if len(keys) == 0 {
		keys = []string{transformer.FieldSKU}
	}
	a := &Assembler{
		tr:      tr,
		mapping: mt,
		context: ce,
		key:     transformer.KeySpec{Fields: keys},
		opt:     opt,
	}
	a.readers = map[string]records.Reader{
		".xlsx": xlsxparser.Reader{},
		".xlsm": xlsxparser.Reader{},
		".csv": csvparser.Reader{Options: opt.CSV, OnError: func(line int, err error) {
			a.logf("stage=csv_row_error line=%d err=%v", line, err)
		}},
	}
	return a
}

// SetReader installs the reader used for files with extension ext (".xlsx").
func (a *Assembler) SetReader(ext string, r records.Reader) {
	a.readers[strings.ToLower(ext)] = r
}

// Columns is the output header.
func (a *Assembler) Columns() []string { return a.tr.Columns() }

// supplierResult is filled by exactly one worker.
type supplierResult struct {
	name  string
	rows  []transformer.CanonicalRow
	stats Summary
}

// ProcessAll transforms every supplier directory under dir and returns the
// deduplicated rows in first-seen order. Only context cancellation and an
// unreadable dir are errors; supplier, file and row problems are logged,
// counted in the Summary and skipped.
func (a *Assembler) ProcessAll(ctx context.Context, dir string) ([]transformer.CanonicalRow, Summary, error) {
	start := time.Now()
	sum := newSummary(a.RunID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, sum, fmt.Errorf("read input dir: %w", err)
	}
	var suppliers []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			suppliers = append(suppliers, e.Name())
		}
	}
	sort.Strings(suppliers)

	results := make([]supplierResult, len(suppliers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opt.Workers)
	for i, name := range suppliers {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.processSupplier(gctx, name, filepath.Join(dir, name))
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, sum, err
	}

	var all []transformer.CanonicalRow
	for _, r := range results {
		sum.merge(r.stats)
		all = append(all, r.rows...)
	}

	dedupStart := time.Now()
	out, dups := a.dedupe(all)
	metrics.ObserveStep("dedupe", "ok", time.Since(dedupStart))
	sum.Duplicates = dups
	sum.Rows = len(out)
	for _, r := range out {
		sum.SizeSets[r.Get(transformer.FieldSizeSet)]++
	}
	sum.Elapsed = time.Since(start)
	metrics.ObserveStep("run", "ok", sum.Elapsed)
	return out, sum, nil
}

// Run is ProcessAll followed by a single write of the canonical table. When
// no row survived, nothing is written and a warning is logged.
func (a *Assembler) Run(ctx context.Context, dir string, sink storage.Sink) (Summary, error) {
	rows, sum, err := a.ProcessAll(ctx, dir)
	if err != nil {
		return sum, err
	}
	sum.Log(a.logger())
	if len(rows) == 0 {
		sum.NoData = true
		a.logf("stage=write warn=%q", catalogerr.ErrNoDataProcessed.Error())
		return sum, nil
	}

	writeStart := time.Now()
	if err := sink.Write(ctx, a.Table(rows)); err != nil {
		metrics.ObserveStep("write", "error", time.Since(writeStart))
		return sum, fmt.Errorf("write catalog: %w", err)
	}
	metrics.ObserveStep("write", "ok", time.Since(writeStart))
	a.logf("stage=write rows=%d columns=%d", len(rows), len(a.Columns()))
	return sum, nil
}

// Table renders rows in output column order.
func (a *Assembler) Table(rows []transformer.CanonicalRow) storage.Table {
	cols := a.Columns()
	t := storage.Table{Columns: cols, Rows: make([][]string, len(rows))}
	for i, r := range rows {
		t.Rows[i] = r.Values(cols)
	}
	return t
}

// dedupe keeps the first row per identity key. Rows without any key value
// are always kept.
func (a *Assembler) dedupe(rows []transformer.CanonicalRow) ([]transformer.CanonicalRow, int) {
	seen := make(map[string]struct{}, len(rows))
	out := make([]transformer.CanonicalRow, 0, len(rows))
	dups := 0
	for _, r := range rows {
		k, ok := a.key.Key(r)
		if ok {
			if _, dup := seen[k]; dup {
				dups++
				metrics.RecordRow(r.Supplier(), "duplicate")
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, r)
	}
	if dups > 0 {
		a.logf("stage=dedupe keys=%s duplicates=%d", strings.Join(a.key.Fields, "+"), dups)
	}
	return out, dups
}

func (a *Assembler) processSupplier(ctx context.Context, name, dir string) supplierResult {
	res := supplierResult{name: name, stats: newSummary("")}
	start := time.Now()

	files, unsupported, err := listSpreadsheets(dir, a.readers)
	if err != nil {
		a.logf("stage=supplier supplier=%s err=%v", name, err)
		return res
	}
	for _, f := range unsupported {
		a.logf("stage=file_skip supplier=%s file=%s reason=%s", name, filepath.Base(f), catalogerr.Reason(catalogerr.ErrUnsupportedFormat))
		metrics.RecordFile("unsupported")
		res.stats.FilesSkipped++
	}
	if len(files) == 0 {
		a.logf("stage=supplier supplier=%s warn=%q", name, "no spreadsheet found")
		return res
	}
	if !a.mapping.HasSupplier(name) {
		a.logf("stage=file_skip supplier=%s files=%d reason=%s", name, len(files), catalogerr.Reason(catalogerr.ErrUnmappedSupplier))
		for range files {
			metrics.RecordFile("unmapped")
		}
		res.stats.FilesSkipped += len(files)
		res.stats.Unmapped = append(res.stats.Unmapped, name)
		return res
	}
	if !a.opt.AllFiles && len(files) > 1 {
		a.logf("stage=supplier supplier=%s files=%d using=%s", name, len(files), filepath.Base(files[0]))
		files = files[:1]
	}

	for _, path := range files {
		if ctx.Err() != nil {
			return res
		}
		rows, err := a.processFile(ctx, name, path, &res.stats)
		if err != nil {
			a.logf("stage=file_skip supplier=%s file=%s err=%v", name, filepath.Base(path), err)
			metrics.RecordFile("error")
			res.stats.FilesSkipped++
			continue
		}
		res.rows = append(res.rows, rows...)
	}
	if res.stats.Files > 0 {
		res.stats.Suppliers = 1
	}
	metrics.ObserveStep("supplier", "ok", time.Since(start))
	return res
}

func (a *Assembler) processFile(ctx context.Context, supplier, path string, stats *Summary) ([]transformer.CanonicalRow, error) {
	start := time.Now()
	file := filepath.Base(path)

	rd, ok := a.readers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, catalogerr.ErrUnsupportedFormat
	}
	recs, err := rd.ReadRows(ctx, path)
	if err != nil {
		metrics.ObserveStep("read", "error", time.Since(start))
		return nil, err
	}
	metrics.ObserveStep("read", "ok", time.Since(start))

	if a.context != nil {
		a.context.Prime(supplier, recs, a.mapping.MappedColumns(supplier))
	}

	out := make([]transformer.CanonicalRow, 0, len(recs))
	for _, rec := range recs {
		stats.RowsRead++
		row, err := a.transformRow(rec, supplier, file)
		if err != nil {
			reason := catalogerr.Reason(err)
			stats.Skipped[reason]++
			metrics.RecordRow(supplier, reason)
			a.logf("stage=row_skip supplier=%s file=%s row=%d reason=%s err=%v", supplier, file, rec.Line, reason, err)
			continue
		}
		if row.Size().Fallback {
			stats.Fallbacks++
		}
		metrics.RecordRow(supplier, "ok")
		out = append(out, row)
	}

	stats.Files++
	metrics.RecordFile("ok")
	metrics.ObserveStep("file", "ok", time.Since(start))
	a.logf("stage=file supplier=%s file=%s read=%d kept=%d took=%s", supplier, file, len(recs), len(out), time.Since(start).Round(time.Millisecond))
	return out, nil
}

// transformRow converts panics into *catalogerr.RowError so one bad row never
// aborts its file.
func (a *Assembler) transformRow(rec records.Record, supplier, file string) (row transformer.CanonicalRow, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &catalogerr.RowError{Supplier: supplier, File: file, Row: rec.Line, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	row, err = a.tr.Transform(rec, supplier)
	var re *catalogerr.RowError
	if errors.As(err, &re) && re.File == "" {
		re.File = file
	}
	return row, err
}

// listSpreadsheets returns readable files of dir in lexical order and, apart,
// the spreadsheet-looking files no reader handles (legacy .xls). Hidden and
// Office lock files ("~$...") are ignored.
func listSpreadsheets(dir string, readers map[string]records.Reader) (files, unsupported []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case readers[ext] != nil:
			files = append(files, filepath.Join(dir, name))
		case ext == ".xls" || ext == ".ods":
			unsupported = append(unsupported, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, unsupported, nil
}

func (a *Assembler) logger() Logger {
	if a.opt.Logger != nil {
		return a.opt.Logger
	}
	return log.Default()
}

func (a *Assembler) logf(format string, v ...any) {
	if a.RunID != "" {
		format = "run=" + a.RunID + " " + format
	}
	a.logger().Printf(format, v...)
}
