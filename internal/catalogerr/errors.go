// Package catalogerr holds the error taxonomy shared by the catalog pipeline.
//
// Only *ConfigError is fatal. Everything else is scoped to a row, a file or
// the run summary and must not stop other suppliers from being processed.
package catalogerr

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentity: no mapped identity (sku) column carried a value.
	ErrMissingIdentity = errors.New("missing identity")

	// ErrUnmappedSupplier: the mapping table has no entries for a supplier.
	ErrUnmappedSupplier = errors.New("unmapped supplier")

	// ErrNoDataProcessed: zero rows survived across all suppliers.
	ErrNoDataProcessed = errors.New("no data processed")

	// ErrUnsupportedFormat: a supplier file has an extension no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ConfigError reports a missing or unparseable mapping or size configuration.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a *ConfigError with a formatted cause.
func Configf(source, format string, a ...any) error {
	return &ConfigError{Source: source, Err: fmt.Errorf(format, a...)}
}

// RowError is a recoverable failure while transforming one supplier row.
type RowError struct {
	Supplier string
	File     string
	Row      int
	Field    string
	Err      error
}

func (e *RowError) Error() string {
	msg := fmt.Sprintf("supplier=%s file=%s row=%d", e.Supplier, e.File, e.Row)
	if e.Field != "" {
		msg += " field=" + e.Field
	}
	return msg + ": " + e.Err.Error()
}

func (e *RowError) Unwrap() error { return e.Err }

// IsConfig reports whether err is (or wraps) a *ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Reason returns a short stable label for counters and log lines.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingIdentity):
		return "missing_identity"
	case errors.Is(err, ErrUnmappedSupplier):
		return "unmapped_supplier"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrNoDataProcessed):
		return "no_data"
	case IsConfig(err):
		return "config"
	default:
		return "row_error"
	}
}
