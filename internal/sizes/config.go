package sizes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"catalog/internal/catalogerr"
)

// Config is the per-supplier size configuration file.
//
//	{
//	  "size_sets": {"guirca": {"abbigliamento": ["TU", "S", "M"]}},
//	  "size_type_mapping": {"abbigliamento": "clothing", "bambino": "kids"},
//	  "category_indicators": {"bambino": ["CHILD", "KID"]},
//	  "supplier_rules": {"widmann": {"numeric_ranges": [{"min": 1, "max": 16, "size_set": "bambino"}]}}
//	}
//
// Object key order is significant for size_sets and category_indicators: the
// first matching set wins.
type Config struct {
	SizeSets           map[string]Ordered[[]string] `json:"size_sets"`
	SizeTypeMapping    map[string]string            `json:"size_type_mapping"`
	CategoryIndicators Ordered[[]string]            `json:"category_indicators"`
	SupplierRules      map[string]SupplierRule      `json:"supplier_rules"`
}

// SupplierRule describes supplier-specific size encodings checked before the
// generic pipeline.
type SupplierRule struct {
	// LeadingToken: the size column is a combined "size-color" value and the
	// size is its first token.
	LeadingToken bool `json:"leading_token"`
	// Separators split the combined value; default "-/ _".
	Separators string `json:"separators"`
	// NumericRanges assign bare numbers (or n-m ranges) to a size set.
	NumericRanges []NumericRange `json:"numeric_ranges"`
}

type NumericRange struct {
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	SizeSet string `json:"size_set"`
}

// KV is one entry of an Ordered object.
type KV[T any] struct {
	Key   string
	Value T
}

// Ordered is a JSON object decoded with its key order preserved.
type Ordered[T any] []KV[T]

func (o *Ordered[T]) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	var out Ordered[T]
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", kt)
		}
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		out = append(out, KV[T]{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

// LoadConfig reads and validates a size configuration file. Every failure is
// a *catalogerr.ConfigError.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &catalogerr.ConfigError{Source: path, Err: err}
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, &catalogerr.ConfigError{Source: path, Err: err}
	}
	return cfg, nil
}

// ParseConfig decodes and validates configuration bytes.
func ParseConfig(raw []byte) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode size config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SizeSets == nil {
		return fmt.Errorf("size_sets is required")
	}
	if len(c.SizeTypeMapping) == 0 {
		return fmt.Errorf("size_type_mapping is required")
	}
	for sup, r := range c.SupplierRules {
		for i, nr := range r.NumericRanges {
			if nr.SizeSet == "" || nr.Min > nr.Max {
				return fmt.Errorf("supplier_rules.%s.numeric_ranges[%d]: need size_set and min <= max", sup, i)
			}
		}
	}
	return nil
}

func (c *Config) normalize() {
	sets := make(map[string]Ordered[[]string], len(c.SizeSets))
	for sup, v := range c.SizeSets {
		sets[strings.ToLower(strings.TrimSpace(sup))] = v
	}
	c.SizeSets = sets

	rules := make(map[string]SupplierRule, len(c.SupplierRules))
	for sup, r := range c.SupplierRules {
		if r.Separators == "" {
			r.Separators = "-/ _"
		}
		rules[strings.ToLower(strings.TrimSpace(sup))] = r
	}
	c.SupplierRules = rules
}
