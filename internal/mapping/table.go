// Package mapping loads the declarative supplier -> canonical field table.
//
// The table is tabular text with one row per canonical field:
//
//	canonical_field,default,acme,widmann
//	sku,,CODE,Art.Nr.
//	description,,DESCR;NOTE,Beschreibung
//
// Every non-reserved header is a supplier column. A supplier cell may list
// several source columns separated by ';', and a canonical field may appear on
// several rows; either way the columns are tried in order.
package mapping

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"catalog/internal/catalogerr"
	"catalog/internal/textutil"
)

var (
	keyHeaders     = []string{"canonical_field", "magento field", "magento_field", "field"}
	defaultHeaders = []string{"default", "default_value"}
	promptHeaders  = []string{"prompt template", "prompt_template", "prompt"}
)

// Entry is one (canonical field, supplier) mapping.
type Entry struct {
	CanonicalField  string
	Supplier        string
	SupplierColumns []string
	Default         *string
}

// Table is the loaded mapping. It is read-only after Load and safe for
// concurrent readers.
type Table struct {
	fields    []string
	suppliers []string
	defaults  map[string]string
	prompts   map[string]string

	// bySupplier[normalized supplier][canonical field] = ordered columns
	bySupplier map[string]map[string][]string
}

// NormalizeSupplier is the key used for supplier lookups: trimmed, lowercase.
func NormalizeSupplier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Load reads and parses a mapping file. Any failure is a *catalogerr.ConfigError.
func Load(path, encoding string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &catalogerr.ConfigError{Source: path, Err: err}
	}
	data, err := textutil.DecodeBytes(raw, encoding)
	if err != nil {
		return nil, &catalogerr.ConfigError{Source: path, Err: err}
	}
	t, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &catalogerr.ConfigError{Source: path, Err: err}
	}
	return t, nil
}

// Parse builds a Table from UTF-8 tabular text. The delimiter is sniffed from
// the header line (',' or ';').
func Parse(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffComma(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("mapping table is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	keyIdx, defIdx, promptIdx := -1, -1, -1
	var supplierIdx []int
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		switch {
		case h == "":
		case keyIdx < 0 && oneOf(h, keyHeaders):
			keyIdx = i
		case defIdx < 0 && oneOf(h, defaultHeaders):
			defIdx = i
		case promptIdx < 0 && oneOf(h, promptHeaders):
			promptIdx = i
		default:
			supplierIdx = append(supplierIdx, i)
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("missing key column (one of %s)", strings.Join(keyHeaders, ", "))
	}
	if len(supplierIdx) == 0 {
		return nil, fmt.Errorf("no supplier columns in header %v", header)
	}

	t := &Table{
		defaults:   map[string]string{},
		prompts:    map[string]string{},
		bySupplier: map[string]map[string][]string{},
	}
	for _, i := range supplierIdx {
		t.suppliers = append(t.suppliers, header[i])
		t.bySupplier[NormalizeSupplier(header[i])] = map[string][]string{}
	}

	seen := map[string]bool{}
	line := 1
	for {
		rec, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := cell(rec, keyIdx)
		if field == "" {
			continue
		}
		if !seen[field] {
			seen[field] = true
			t.fields = append(t.fields, field)
		}
		if d := cell(rec, defIdx); d != "" && !textutil.IsPlaceholder(d) {
			if _, ok := t.defaults[field]; !ok {
				t.defaults[field] = d
			}
		}
		if p := cell(rec, promptIdx); p != "" {
			if _, ok := t.prompts[field]; !ok {
				t.prompts[field] = p
			}
		}
		for _, si := range supplierIdx {
			cols := splitColumns(cell(rec, si))
			if len(cols) == 0 {
				continue
			}
			m := t.bySupplier[NormalizeSupplier(header[si])]
			m[field] = append(m[field], cols...)
		}
	}
	return t, nil
}

func sniffComma(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func oneOf(h string, names []string) bool {
	for _, n := range names {
		if strings.EqualFold(h, n) {
			return true
		}
	}
	return false
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func splitColumns(s string) []string {
	if s == "" || textutil.IsPlaceholder(s) {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Fields returns the canonical fields in table order.
func (t *Table) Fields() []string { return append([]string(nil), t.fields...) }

// Suppliers returns supplier names as written in the header.
func (t *Table) Suppliers() []string { return append([]string(nil), t.suppliers...) }

// HasSupplier reports whether any canonical field is mapped for supplier.
func (t *Table) HasSupplier(supplier string) bool {
	return len(t.bySupplier[NormalizeSupplier(supplier)]) > 0
}

// Lookup returns the ordered supplier columns for a canonical field, or nil.
func (t *Table) Lookup(supplier, canonicalField string) []string {
	return t.bySupplier[NormalizeSupplier(supplier)][canonicalField]
}

// DefaultFor returns the configured default of a canonical field.
func (t *Table) DefaultFor(canonicalField string) (string, bool) {
	d, ok := t.defaults[canonicalField]
	return d, ok
}

// Prompt returns the enrichment prompt template of a canonical field.
func (t *Table) Prompt(canonicalField string) (string, bool) {
	p, ok := t.prompts[canonicalField]
	return p, ok
}

// Prompts returns a copy of all prompt templates keyed by canonical field.
func (t *Table) Prompts() map[string]string {
	out := make(map[string]string, len(t.prompts))
	for k, v := range t.prompts {
		out[k] = v
	}
	return out
}

// Entries lists the mappings of supplier in table field order.
func (t *Table) Entries(supplier string) []Entry {
	m := t.bySupplier[NormalizeSupplier(supplier)]
	out := make([]Entry, 0, len(m))
	for _, f := range t.fields {
		cols, ok := m[f]
		if !ok {
			continue
		}
		e := Entry{CanonicalField: f, Supplier: supplier, SupplierColumns: cols}
		if d, ok := t.defaults[f]; ok {
			e.Default = &d
		}
		out = append(out, e)
	}
	return out
}

// MappedColumns returns the set of supplier columns consumed by any canonical
// field for supplier, upper-cased for case-insensitive comparison.
func (t *Table) MappedColumns(supplier string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, cols := range t.bySupplier[NormalizeSupplier(supplier)] {
		for _, c := range cols {
			out[strings.ToUpper(c)] = struct{}{}
		}
	}
	return out
}
