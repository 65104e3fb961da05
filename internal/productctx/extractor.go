package productctx

import (
	"log"
	"sort"
	"strings"
	"sync"

	"catalog/internal/mapping"
	"catalog/internal/records"
	"catalog/internal/textutil"
)

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Extractor builds the descriptive context of a row. Suppliers with explicit
// entries in the context table use them; everyone else falls back to
// categorizing the unmapped columns by name.
type Extractor struct {
	Contexts *mapping.ContextTable
	Logger   Logger

	mu          sync.Mutex
	descriptive map[string]map[string]bool
}

func NewExtractor(ct *mapping.ContextTable) *Extractor {
	return &Extractor{Contexts: ct, descriptive: map[string]map[string]bool{}}
}

// Prime scores the unmapped columns of supplier over rows and remembers which
// ones read as free text. Only the first call per supplier has an effect.
func (e *Extractor) Prime(supplier string, rows []records.Record, mapped map[string]struct{}) {
	key := mapping.NormalizeSupplier(supplier)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.descriptive == nil {
		e.descriptive = map[string]map[string]bool{}
	}
	if _, done := e.descriptive[key]; done {
		return
	}
	cols := map[string]bool{}
	if len(rows) > 0 {
		for _, col := range rows[0].Columns {
			if isMapped(mapped, col) || Categorize(col) != Other {
				continue
			}
			values := make([]string, 0, len(rows))
			for _, r := range rows {
				values = append(values, r.Value(col))
			}
			if IsDescriptive(values) {
				cols[strings.ToUpper(col)] = true
			}
		}
	}
	e.descriptive[key] = cols
	e.logf("stage=context_prime supplier=%s descriptive=%d", key, len(cols))
}

func (e *Extractor) isDescriptive(supplier, col string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.descriptive[mapping.NormalizeSupplier(supplier)][strings.ToUpper(col)]
}

// Extract returns the context of row, or nil when nothing was found.
func (e *Extractor) Extract(row records.Record, supplier string, mapped map[string]struct{}) *Context {
	var fields []mapping.ContextField
	if e.Contexts != nil {
		fields = e.Contexts.For(supplier)
	}
	var c *Context
	if len(fields) > 0 {
		c = e.explicit(row, fields)
	} else {
		c = e.heuristic(row, supplier, mapped)
	}
	if c.IsEmpty() {
		return nil
	}
	return c
}

func (e *Extractor) explicit(row records.Record, fields []mapping.ContextField) *Context {
	c := &Context{}
	for _, f := range fields {
		cell, ok := row.Get(f.SupplierField)
		if !ok {
			continue
		}
		v, ok := textutil.CleanValue(cell.Text)
		if !ok || textutil.IsPlaceholder(v) {
			continue
		}
		if v = textutil.PlainText(v); v == "" {
			continue
		}
		c.Add(f.ContextType, v, false)
	}
	return c
}

func (e *Extractor) heuristic(row records.Record, supplier string, mapped map[string]struct{}) *Context {
	c := &Context{}
	for _, col := range row.Columns {
		if isMapped(mapped, col) {
			continue
		}
		v := textutil.PlainText(textutil.Trim(row.Value(col)))
		if !Valuable(v) {
			continue
		}
		cat := Categorize(col)
		if cat == Other && !e.isDescriptive(supplier, col) {
			continue
		}
		c.Add(cat, v, true)
	}
	sort.SliceStable(c.Pairs, func(i, j int) bool {
		return categoryRank(c.Pairs[i].Key) < categoryRank(c.Pairs[j].Key)
	})
	return c
}

func isMapped(mapped map[string]struct{}, col string) bool {
	_, ok := mapped[strings.ToUpper(strings.TrimSpace(col))]
	return ok
}

func (e *Extractor) logf(format string, v ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}
