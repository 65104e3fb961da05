package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"catalog/internal/textutil"
)

func init() {
	Register("csv", NewCSVSink)
}

// CSVSink writes the table as UTF-8 CSV. Each Write goes to a temp file in
// the target directory that is renamed over the target, so readers never see
// a partial file.
type CSVSink struct {
	path  string
	comma rune
	bom   bool
}

// NewCSVSink options: comma (default ","), bom (default false).
func NewCSVSink(_ context.Context, cfg Config) (Sink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv sink: missing path")
	}
	return &CSVSink{
		path:  cfg.Path,
		comma: cfg.Options.Rune("comma", ','),
		bom:   cfg.Options.Bool("bom", false),
	}, nil
}

func (s *CSVSink) Write(ctx context.Context, t Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteFileAtomic(s.path, func(w io.Writer) error {
		if s.bom {
			if _, err := io.WriteString(w, "\uFEFF"); err != nil {
				return err
			}
		}
		cw := csv.NewWriter(w)
		cw.Comma = s.comma
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

func (s *CSVSink) Close() error { return nil }

// WriteFileAtomic writes through fill into a temp file in the target
// directory and renames it to path.
func WriteFileAtomic(path string, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = fill(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadCSV loads a canonical table written by CSVSink. A leading BOM is
// ignored and short rows are padded to the header width.
func ReadCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	r, err := textutil.DecodeReader(f, "utf-8")
	if err != nil {
		return Table{}, err
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	recs, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(recs) == 0 {
		return Table{}, fmt.Errorf("read %s: empty file", path)
	}
	t := Table{Columns: recs[0], Rows: make([][]string, 0, len(recs)-1)}
	for _, rec := range recs[1:] {
		row := make([]string, len(t.Columns))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
