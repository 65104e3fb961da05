// Package metrics is the process-wide metrics facade. Core code records
// through the package functions; cmd/ selects a Backend at startup.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names recorded by the catalog pipeline.
const (
	RowsTotal           = "catalog_rows_total"            // supplier, status
	FilesTotal          = "catalog_files_total"           // status
	EnrichCallsTotal    = "catalog_enrich_calls_total"    // field, status
	StepDurationSeconds = "catalog_step_duration_seconds" // step, status
)

type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}
func (nop) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nop{}
)

// SetBackend installs b; nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nop{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

func Flush() error { return current().Flush() }

// RecordRow counts one supplier row by outcome ("ok", "missing_identity",
// "row_error", "duplicate").
func RecordRow(supplier, status string) {
	IncCounter(RowsTotal, 1, Labels{"supplier": supplier, "status": status})
}

// RecordFile counts one supplier file by outcome.
func RecordFile(status string) {
	IncCounter(FilesTotal, 1, Labels{"status": status})
}

// RecordEnrichCall counts one generation call.
func RecordEnrichCall(field, status string) {
	IncCounter(EnrichCallsTotal, 1, Labels{"field": field, "status": status})
}

// ObserveStep records how long a pipeline step took.
func ObserveStep(step, status string, d time.Duration) {
	ObserveHistogram(StepDurationSeconds, d.Seconds(), Labels{"step": step, "status": status})
}
