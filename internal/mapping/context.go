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

// ContextField maps one supplier column to a descriptive context type
// ("supplier_field" -> "context_type", e.g. "COLORE" -> "color").
type ContextField struct {
	SupplierField string
	ContextType   string
}

// ContextTable holds explicit context mappings per supplier.
type ContextTable struct {
	bySupplier map[string][]ContextField
}

// LoadContext reads a supplier,supplier_field,context_type table. An empty
// path yields an empty table.
func LoadContext(path, encoding string) (*ContextTable, error) {
	if path == "" {
		return &ContextTable{bySupplier: map[string][]ContextField{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &catalogerr.ConfigError{Source: path, Err: err}
	}
	data, err := textutil.DecodeBytes(raw, encoding)
	if err != nil {
		return nil, &catalogerr.ConfigError{Source: path, Err: err}
	}
	ct, err := ParseContext(bytes.NewReader(data))
	if err != nil {
		return nil, &catalogerr.ConfigError{Source: path, Err: err}
	}
	return ct, nil
}

// ParseContext parses the context mapping table from UTF-8 text.
func ParseContext(r io.Reader) (*ContextTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffComma(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("context mapping is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{"supplier", "supplier_field", "context_type"} {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("missing column %q", want)
		}
	}

	ct := &ContextTable{bySupplier: map[string][]ContextField{}}
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
		sup := NormalizeSupplier(cell(rec, idx["supplier"]))
		field := cell(rec, idx["supplier_field"])
		typ := cell(rec, idx["context_type"])
		if sup == "" || field == "" || typ == "" {
			continue
		}
		ct.bySupplier[sup] = append(ct.bySupplier[sup], ContextField{SupplierField: field, ContextType: typ})
	}
	return ct, nil
}

// For returns the explicit context fields of supplier, in table order.
func (c *ContextTable) For(supplier string) []ContextField {
	if c == nil {
		return nil
	}
	return c.bySupplier[NormalizeSupplier(supplier)]
}
