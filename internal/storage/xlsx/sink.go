// Package xlsx writes the canonical table as an Excel workbook.
package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"catalog/internal/storage"
)

func init() {
	storage.Register("xlsx", NewSink)
}

// Sink writes one sheet (cfg.Table, default "catalog") per Write, replacing
// the file atomically.
type Sink struct {
	path  string
	sheet string
}

func NewSink(_ context.Context, cfg storage.Config) (storage.Sink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("xlsx sink: missing path")
	}
	sheet := cfg.Table
	if sheet == "" {
		sheet = "catalog"
	}
	return &Sink{path: cfg.Path, sheet: sheet}, nil
}

func (s *Sink) Close() error { return nil }

func (s *Sink) Write(ctx context.Context, t storage.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
		return fmt.Errorf("xlsx sink: %w", err)
	}
	sw, err := f.NewStreamWriter(s.sheet)
	if err != nil {
		return fmt.Errorf("xlsx sink: %w", err)
	}
	if err := writeRow(sw, 1, t.Columns); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := writeRow(sw, i+2, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx sink: flush: %w", err)
	}
	return storage.WriteFileAtomic(s.path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func writeRow(sw *excelize.StreamWriter, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := sw.SetRow(cell, row); err != nil {
		return fmt.Errorf("xlsx sink: row %d: %w", n, err)
	}
	return nil
}
