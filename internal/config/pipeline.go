// Package config defines the JSON pipeline configuration for catalog runs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Pipeline is the top-level run configuration.
type Pipeline struct {
	Job       string          `json:"job"`
	Mapping   MappingConfig   `json:"mapping"`
	Sizes     SizesConfig     `json:"sizes"`
	Source    SourceConfig    `json:"source"`
	Transform TransformConfig `json:"transform"`
	Output    OutputConfig    `json:"output"`
	Runtime   RuntimeConfig   `json:"runtime"`
	Enrich    EnrichConfig    `json:"enrich"`
}

type MappingConfig struct {
	Path string `json:"path"`
	// Encoding of the mapping table: "latin1" (default), "windows-1252" or "utf-8".
	Encoding string `json:"encoding"`
	// ContextPath is the optional supplier_field -> context_type table.
	ContextPath string `json:"context_path"`
}

type SizesConfig struct {
	Path string `json:"path"`
}

type SourceConfig struct {
	Dir string `json:"dir"`
	// AllFiles processes every spreadsheet in a supplier directory instead of
	// only the first one found.
	AllFiles bool    `json:"all_files"`
	Options  Options `json:"options"`
}

type TransformConfig struct {
	// MultiSourceFields concatenate every mapped column with "," instead of
	// taking the first present one.
	MultiSourceFields []string `json:"multi_source_fields"`
	// HintFields are resolved canonical fields passed to the size classifier
	// as free-text category hints.
	HintFields []string `json:"hint_fields"`
}

type OutputConfig struct {
	Kind           string   `json:"kind"` // csv | xlsx | sqlite | postgres | mssql
	Path           string   `json:"path"`
	DSN            string   `json:"dsn"`
	Table          string   `json:"table"`
	SupplierColumn string   `json:"supplier_column"`
	ContextColumn  string   `json:"context_column"`
	DedupeKeys     []string `json:"dedupe_keys"`
	Options        Options  `json:"options"`
}

type RuntimeConfig struct {
	// Workers > 1 processes supplier directories in parallel. Output order is
	// unaffected.
	Workers int `json:"workers"`
}

type EnrichConfig struct {
	Input           string            `json:"input"`
	Output          string            `json:"output"`
	Model           string            `json:"model"`
	SystemPrompt    string            `json:"system_prompt"`
	Fields          []string          `json:"fields"`
	Prompts         map[string]string `json:"prompts"`
	Delay           string            `json:"delay"`
	CheckpointEvery int               `json:"checkpoint_every"`
	MaxTokens       int               `json:"max_tokens"`
	Temperature     float32           `json:"temperature"`
}

const (
	DefaultSupplierColumn = "supplier"
	DefaultContextColumn  = "additional_context"
	DefaultOutputKind     = "csv"
	DefaultOutputPath     = "database_globale.csv"
	DefaultTable          = "catalog_products"
)

// ApplyDefaults fills zero values with the documented defaults.
func (p *Pipeline) ApplyDefaults() {
	if p.Job == "" {
		p.Job = "catalog"
	}
	if p.Mapping.Encoding == "" {
		p.Mapping.Encoding = "latin1"
	}
	if p.Output.Kind == "" {
		p.Output.Kind = DefaultOutputKind
	}
	if p.Output.Path == "" && p.Output.Kind != "postgres" && p.Output.Kind != "mssql" {
		p.Output.Path = DefaultOutputPath
	}
	if p.Output.Table == "" {
		p.Output.Table = DefaultTable
	}
	if p.Output.SupplierColumn == "" {
		p.Output.SupplierColumn = DefaultSupplierColumn
	}
	if p.Output.ContextColumn == "" {
		p.Output.ContextColumn = DefaultContextColumn
	}
	if len(p.Output.DedupeKeys) == 0 {
		p.Output.DedupeKeys = []string{"sku"}
	}
	if p.Transform.MultiSourceFields == nil {
		p.Transform.MultiSourceFields = []string{"description", "categories"}
	}
	if p.Transform.HintFields == nil {
		p.Transform.HintFields = []string{"name", "description", "categories"}
	}
	if p.Runtime.Workers <= 0 {
		p.Runtime.Workers = 1
	}
	if len(p.Enrich.Fields) == 0 {
		p.Enrich.Fields = []string{"name", "description", "short_description", "url_key"}
	}
	if p.Enrich.CheckpointEvery <= 0 {
		p.Enrich.CheckpointEvery = 10
	}
	if p.Enrich.Model == "" {
		p.Enrich.Model = "gpt-4"
	}
	if p.Enrich.MaxTokens <= 0 {
		p.Enrich.MaxTokens = 1000
	}
	if p.Enrich.Input == "" {
		p.Enrich.Input = p.Output.Path
	}
	if p.Enrich.Output == "" {
		p.Enrich.Output = p.Enrich.Input
	}
}

// EnrichDelay parses Enrich.Delay, defaulting to one second between calls.
func (p Pipeline) EnrichDelay() time.Duration {
	if p.Enrich.Delay == "" {
		return time.Second
	}
	d, err := time.ParseDuration(p.Enrich.Delay)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// Load reads, decodes and defaults a pipeline config file.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode config %s: %w", path, err)
	}
	p.ApplyDefaults()
	return p, nil
}
