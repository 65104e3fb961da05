// Package transformer maps one supplier row onto the canonical catalog schema.
package transformer

import (
	"strings"

	"catalog/internal/catalogerr"
	"catalog/internal/mapping"
	"catalog/internal/productctx"
	"catalog/internal/records"
	"catalog/internal/sizes"
)

// Canonical field names with dedicated handling.
const (
	FieldSKU              = "sku"
	FieldSize             = "size"
	FieldSizeSet          = "size_set"
	FieldSizeType         = "size_type"
	FieldBaseImage        = "base_image"
	FieldSmallImage       = "small_image"
	FieldThumbnailImage   = "thumbnail_image"
	FieldAdditionalImages = "additional_images"

	DefaultSupplierColumn = "supplier"
	DefaultContextColumn  = "additional_context"
)

var singleImageFields = map[string]bool{
	FieldBaseImage:      true,
	FieldSmallImage:     true,
	FieldThumbnailImage: true,
}

// DefaultMultiSourceFields concatenate all mapped columns.
var DefaultMultiSourceFields = []string{"description", "categories"}

// DefaultHintFields feed the size classifier's indicator fallback.
var DefaultHintFields = []string{"name", "description", "categories"}

// CanonicalRow is a fully resolved output row. It is immutable: accessors
// return copies.
type CanonicalRow struct {
	supplier string
	line     int
	values   map[string]string
	size     sizes.Resolution
	context  *productctx.Context
}

// NewCanonicalRow builds a row from plain values, e.g. when reading a
// canonical table back.
func NewCanonicalRow(supplier string, line int, values map[string]string) CanonicalRow {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return CanonicalRow{supplier: supplier, line: line, values: cp}
}

func (r CanonicalRow) Supplier() string { return r.supplier }

// Line is the source row number.
func (r CanonicalRow) Line() int { return r.line }

func (r CanonicalRow) SKU() string { return r.values[FieldSKU] }

func (r CanonicalRow) Size() sizes.Resolution { return r.size }

// Context is the descriptive context, nil when absent.
func (r CanonicalRow) Context() *productctx.Context { return r.context }

// Get returns the value of a canonical column, "" when absent.
func (r CanonicalRow) Get(field string) string { return r.values[field] }

// Lookup is Get with presence.
func (r CanonicalRow) Lookup(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Values renders the row in the given column order.
func (r CanonicalRow) Values(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.values[c]
	}
	return out
}

// Options tune a Transformer. Zero values select the defaults.
type Options struct {
	MultiSourceFields []string
	HintFields        []string
	SupplierColumn    string
	ContextColumn     string
}

// Transformer turns supplier rows into CanonicalRows. It holds only
// read-only configuration and is safe for concurrent use.
type Transformer struct {
	mapping *mapping.Table
	sizes   *sizes.Classifier
	context *productctx.Extractor

	multi          map[string]bool
	hints          []string
	supplierColumn string
	contextColumn  string
	columns        []string
}

func New(mt *mapping.Table, sc *sizes.Classifier, ce *productctx.Extractor, opt Options) *Transformer {
	t := &Transformer{
		mapping:        mt,
		sizes:          sc,
		context:        ce,
		multi:          map[string]bool{},
		hints:          opt.HintFields,
		supplierColumn: opt.SupplierColumn,
		contextColumn:  opt.ContextColumn,
	}
	multi := opt.MultiSourceFields
	if multi == nil {
		multi = DefaultMultiSourceFields
	}
	for _, f := range multi {
		t.multi[f] = true
	}
	if t.hints == nil {
		t.hints = DefaultHintFields
	}
	if t.supplierColumn == "" {
		t.supplierColumn = DefaultSupplierColumn
	}
	if t.contextColumn == "" {
		t.contextColumn = DefaultContextColumn
	}
	t.columns = t.buildColumns()
	return t
}

func (t *Transformer) trailing() []string {
	return []string{FieldSize, FieldSizeSet, FieldSizeType, t.supplierColumn, t.contextColumn}
}

func (t *Transformer) buildColumns() []string {
	skip := map[string]bool{}
	for _, c := range t.trailing() {
		skip[c] = true
	}
	var cols []string
	for _, f := range t.mapping.Fields() {
		if !skip[f] {
			cols = append(cols, f)
		}
	}
	return append(cols, t.trailing()...)
}

// Columns is the output header: mapping field order, then size, size_set,
// size_type, supplier and context columns.
func (t *Transformer) Columns() []string { return append([]string(nil), t.columns...) }

func (t *Transformer) SupplierColumn() string { return t.supplierColumn }

func (t *Transformer) ContextColumn() string { return t.contextColumn }

// Transform maps row. Rows without a resolvable SKU are rejected with a
// *catalogerr.RowError wrapping catalogerr.ErrMissingIdentity.
func (t *Transformer) Transform(row records.Record, supplier string) (CanonicalRow, error) {
	out := CanonicalRow{supplier: supplier, line: row.Line, values: map[string]string{}}

	sku, ok := ResolveField(row, t.mapping.Lookup(supplier, FieldSKU))
	if !ok {
		return CanonicalRow{}, &catalogerr.RowError{
			Supplier: supplier, Row: row.Line, Field: FieldSKU, Err: catalogerr.ErrMissingIdentity,
		}
	}
	out.values[FieldSKU] = sku

	trailing := map[string]bool{}
	for _, c := range t.trailing() {
		trailing[c] = true
	}
	for _, field := range t.mapping.Fields() {
		if field == FieldSKU || trailing[field] {
			continue
		}
		cands := t.mapping.Lookup(supplier, field)
		var (
			v     string
			found bool
		)
		switch {
		case singleImageFields[field]:
			if names := imageCells(row, cands, true); len(names) > 0 {
				v, found = names[0], true
			}
		case field == FieldAdditionalImages:
			out.values[field] = strings.Join(imageCells(row, cands, false), ",")
			continue
		case t.multi[field] && len(cands) > 1:
			v, found = ConcatFields(row, cands)
		default:
			v, found = ResolveField(row, cands)
		}
		if !found {
			v, _ = t.mapping.DefaultFor(field)
		}
		out.values[field] = v
	}

	out.size = t.resolveSize(row, supplier, out.values)
	out.values[FieldSize] = out.size.Size
	out.values[FieldSizeSet] = out.size.Set
	out.values[FieldSizeType] = out.size.Type

	if t.context != nil {
		out.context = t.context.Extract(row, supplier, t.mapping.MappedColumns(supplier))
	}
	out.values[t.contextColumn] = out.context.Encode()
	out.values[t.supplierColumn] = supplier
	return out, nil
}

func (t *Transformer) resolveSize(row records.Record, supplier string, resolved map[string]string) sizes.Resolution {
	cands := t.mapping.Lookup(supplier, FieldSize)
	if len(cands) == 0 || t.sizes == nil {
		return sizes.Unmapped()
	}
	raw, _ := ResolveField(row, cands)
	hints := make([]string, 0, len(t.hints))
	for _, f := range t.hints {
		if v := resolved[f]; v != "" {
			hints = append(hints, v)
		}
	}
	return t.sizes.ClassifyWithHints(raw, supplier, hints...)
}
