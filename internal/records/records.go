// Package records defines the row shape handed from spreadsheet readers to the
// transform stage.
package records

import (
	"context"
	"strings"
)

// Cell is a spreadsheet cell value. A cell is either plain text (Target empty)
// or a hyperlink whose visible Text may differ from its Target.
type Cell struct {
	Text   string
	Target string
}

// PlainText builds a text-only cell.
func PlainText(s string) Cell { return Cell{Text: s} }

// Hyperlink builds a hyperlink cell.
func Hyperlink(display, target string) Cell { return Cell{Text: display, Target: target} }

func (c Cell) IsHyperlink() bool { return c.Target != "" }

// URL returns the hyperlink target when there is one, otherwise the text.
func (c Cell) URL() string {
	if c.Target != "" {
		return c.Target
	}
	return c.Text
}

// Record is one supplier row. Columns keeps the header order; lookups are
// exact first and case-insensitive second.
type Record struct {
	Line    int
	Columns []string

	cells map[string]Cell
	upper map[string]string
}

// NewRecord builds a record from a header and its aligned cells. Missing
// trailing cells are treated as empty; duplicate headers keep the first cell.
func NewRecord(line int, header []string, cells []Cell) Record {
	r := Record{
		Line:    line,
		Columns: make([]string, 0, len(header)),
		cells:   make(map[string]Cell, len(header)),
		upper:   make(map[string]string, len(header)),
	}
	for i, h := range header {
		if h == "" {
			continue
		}
		if _, dup := r.cells[h]; dup {
			continue
		}
		var c Cell
		if i < len(cells) {
			c = cells[i]
		}
		r.Columns = append(r.Columns, h)
		r.cells[h] = c
		u := strings.ToUpper(h)
		if _, ok := r.upper[u]; !ok {
			r.upper[u] = h
		}
	}
	return r
}

// FromMap is a convenience constructor for tests and plain-text sources.
// Column order follows header.
func FromMap(line int, header []string, values map[string]string) Record {
	cells := make([]Cell, len(header))
	for i, h := range header {
		cells[i] = PlainText(values[h])
	}
	return NewRecord(line, header, cells)
}

// Get returns the cell for col. ok is false when the column does not exist.
func (r Record) Get(col string) (Cell, bool) {
	if c, ok := r.cells[col]; ok {
		return c, true
	}
	if name, ok := r.upper[strings.ToUpper(strings.TrimSpace(col))]; ok {
		return r.cells[name], true
	}
	return Cell{}, false
}

// Has reports whether the record has a column named col.
func (r Record) Has(col string) bool {
	_, ok := r.Get(col)
	return ok
}

// Value returns the display text of col, or "".
func (r Record) Value(col string) string {
	c, _ := r.Get(col)
	return c.Text
}

// Canonical returns the header name matching col, resolving case differences.
func (r Record) Canonical(col string) (string, bool) {
	if _, ok := r.cells[col]; ok {
		return col, true
	}
	name, ok := r.upper[strings.ToUpper(strings.TrimSpace(col))]
	return name, ok
}

// Reader is the spreadsheet-reading collaborator: it turns one supplier file
// into records. Implementations must keep hyperlink targets distinct from the
// visible cell text.
type Reader interface {
	ReadRows(ctx context.Context, path string) ([]Record, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, path string) ([]Record, error)

func (f ReaderFunc) ReadRows(ctx context.Context, path string) ([]Record, error) {
	return f(ctx, path)
}
