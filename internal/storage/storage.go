// Package storage persists the canonical catalog table. Backends register a
// factory under a kind from init(); callers select one with New.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"catalog/internal/config"
)

// Config selects and configures a sink.
type Config struct {
	Kind    string
	Path    string // file sinks
	DSN     string // SQL sinks
	Table   string // SQL table or xlsx sheet name
	Options config.Options
}

// Table is the canonical output: a header and rows aligned with it.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of column name, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Sink writes a whole table, replacing whatever a previous Write left behind.
// Write may be called repeatedly (checkpoints); Close releases resources.
type Sink interface {
	Write(ctx context.Context, t Table) error
	Close() error
}

type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a sink kind available to New. It panics on an empty kind, a
// nil factory or a duplicate registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs the sink registered for cfg.Kind. An empty kind means "csv".
func New(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.Kind == "" {
		cfg.Kind = "csv"
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered sink kinds.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
