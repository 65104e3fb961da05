package config

import (
	"fmt"
	"strings"
	"time"

	"catalog/internal/textutil"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding produced by ValidatePipeline.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

var knownOutputKinds = map[string]bool{
	"csv": true, "xlsx": true, "sqlite": true, "postgres": true, "mssql": true,
}

// ValidatePipeline reports configuration problems. It does not touch the
// filesystem; missing files surface later as load errors.
func ValidatePipeline(p Pipeline) []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, a ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(p.Mapping.Path) == "" {
		add(SeverityError, "mapping.path", "is required")
	}
	if _, err := textutil.LookupEncoding(p.Mapping.Encoding); err != nil {
		add(SeverityError, "mapping.encoding", "%v", err)
	}
	if enc := p.Source.Options.String("encoding", ""); enc != "" {
		if _, err := textutil.LookupEncoding(enc); err != nil {
			add(SeverityError, "source.options.encoding", "%v", err)
		}
	}
	if strings.TrimSpace(p.Sizes.Path) == "" {
		add(SeverityError, "sizes.path", "is required")
	}
	if strings.TrimSpace(p.Source.Dir) == "" {
		add(SeverityError, "source.dir", "is required")
	}

	kind := p.Output.Kind
	if kind == "" {
		kind = DefaultOutputKind
	}
	if !knownOutputKinds[kind] {
		add(SeverityError, "output.kind", "unknown kind %q", kind)
	}
	switch kind {
	case "postgres", "mssql":
		if p.Output.DSN == "" {
			add(SeverityError, "output.dsn", "is required for kind %s", kind)
		}
	case "sqlite":
		if p.Output.DSN == "" && p.Output.Path == "" {
			add(SeverityError, "output.path", "sqlite needs output.path or output.dsn")
		}
	}
	for i, k := range p.Output.DedupeKeys {
		if strings.TrimSpace(k) == "" {
			add(SeverityError, fmt.Sprintf("output.dedupe_keys[%d]", i), "must not be empty")
		}
	}
	if len(p.Output.DedupeKeys) > 0 && p.Output.DedupeKeys[0] != "sku" {
		add(SeverityWarning, "output.dedupe_keys", "first key is %q; sku is the primary identity", p.Output.DedupeKeys[0])
	}
	if p.Runtime.Workers < 0 {
		add(SeverityError, "runtime.workers", "must be >= 0")
	}
	if p.Enrich.Delay != "" {
		if d, err := time.ParseDuration(p.Enrich.Delay); err != nil || d < 0 {
			add(SeverityWarning, "enrich.delay", "could not parse %q; using 1s", p.Enrich.Delay)
		}
	}
	return out
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
