// Package sizes resolves raw supplier size strings into the normalized
// {size, size_set, size_type} taxonomy.
package sizes

import (
	"log"
	"regexp"
	"strconv"
	"strings"
)

// Size sets and types produced by the built-in rules.
const (
	SetClothing = "abbigliamento"
	SetKids     = "bambino"
	SetShoes    = "calzature"
	SetHats     = "cappelli"
	SetDefault  = "default"

	TypeClothing    = "clothing"
	TypeKids        = "kids"
	TypeShoes       = "shoes"
	TypeAccessories = "accessories"
	TypeDefault     = "default"
)

// Resolution is the classification result. Set and Type always come from the
// same rule.
type Resolution struct {
	Size string
	Set  string
	Type string

	// Rule names the rule that matched ("supplier_exact", "pattern:calzature",
	// "fallback", ...).
	Rule string
	// Fallback is true when nothing matched and the clothing default was used.
	Fallback bool
}

// Empty is the resolution of an absent size value.
func Empty() Resolution { return Resolution{Rule: "empty"} }

// Unmapped is used when a supplier has no size column at all.
func Unmapped() Resolution {
	return Resolution{Set: SetDefault, Type: TypeDefault, Rule: "unmapped"}
}

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Classifier applies the layered size rules. It is read-only after New and
// safe for concurrent use.
type Classifier struct {
	cfg    *Config
	Logger Logger
}

// New builds a Classifier over a loaded configuration.
func New(cfg *Config) *Classifier {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Classifier{cfg: cfg}
}

var builtinTypes = map[string]string{
	SetClothing: TypeClothing,
	SetKids:     TypeKids,
	SetShoes:    TypeShoes,
	SetHats:     TypeAccessories,
	SetDefault:  TypeDefault,
}

// typeFor maps a size set to its type: configuration first, then built-ins,
// then clothing.
func (c *Classifier) typeFor(set string) string {
	if t, ok := c.cfg.SizeTypeMapping[set]; ok && t != "" {
		return t
	}
	if t, ok := builtinTypes[set]; ok {
		return t
	}
	return TypeClothing
}

func (c *Classifier) resolve(size, set, rule string) Resolution {
	return Resolution{Size: size, Set: set, Type: c.typeFor(set), Rule: rule}
}

// Normalize trims, upper-cases and strips parentheses.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	return strings.TrimSpace(s)
}

// Classify resolves rawSize for supplier.
func (c *Classifier) Classify(rawSize, supplier string) Resolution {
	return c.ClassifyWithHints(rawSize, supplier)
}

// ClassifyWithHints is Classify with free-text hints (description, name,
// categories). Hints are matched against category indicators only when the
// size value alone would fall through to the clothing default.
//
// Rule order:
//  1. normalize; empty -> Empty()
//  2. supplier pre-pass (leading token of combined fields)
//  3. supplier exact literals, then supplier numeric ranges
//  4. pattern families: abbigliamento, bambino, calzature, cappelli
//  5. category indicators on the size value
//  6. heuristics: CM+YEARS, shoe pairs, universal tokens, letter sizes, hats
//  7. category indicators on hints
//  8. clothing default, flagged Fallback
func (c *Classifier) ClassifyWithHints(rawSize, supplier string, hints ...string) Resolution {
	v := Normalize(rawSize)
	if v == "" {
		return Empty()
	}
	sup := strings.ToLower(strings.TrimSpace(supplier))

	rule, hasRule := c.cfg.SupplierRules[sup]
	if hasRule && rule.LeadingToken {
		if tok := leadingToken(v, rule.Separators); tok != "" {
			v = tok
		}
	}

	for _, kv := range c.cfg.SizeSets[sup] {
		for _, s := range kv.Value {
			if strings.EqualFold(strings.TrimSpace(s), v) {
				return c.resolve(v, kv.Key, "supplier_exact")
			}
		}
	}

	if hasRule {
		for _, nr := range rule.NumericRanges {
			if nums, ok := numericValues(v); ok && allWithin(nums, nr.Min, nr.Max) {
				return c.resolve(v, nr.SizeSet, "supplier_range")
			}
		}
	}

	for _, fam := range families {
		if fam.match(v) {
			return c.resolve(v, fam.set, "pattern:"+fam.set)
		}
	}

	if set, ok := c.indicatorMatch(v); ok {
		return c.resolve(v, set, "indicator")
	}

	if r, ok := heuristic(v); ok {
		return r
	}

	for _, h := range hints {
		if h = Normalize(h); h == "" {
			continue
		}
		if set, ok := c.indicatorMatch(h); ok {
			return c.resolve(v, set, "hint")
		}
	}

	c.logf("stage=size_fallback supplier=%s size=%q set=%s", supplier, v, SetClothing)
	return Resolution{Size: v, Set: SetClothing, Type: TypeClothing, Rule: "fallback", Fallback: true}
}

func (c *Classifier) indicatorMatch(v string) (string, bool) {
	for _, kv := range c.cfg.CategoryIndicators {
		for _, ind := range kv.Value {
			ind = strings.ToUpper(strings.TrimSpace(ind))
			if ind != "" && strings.Contains(v, ind) {
				return kv.Key, true
			}
		}
	}
	return "", false
}

func (c *Classifier) logf(format string, v ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}

func leadingToken(v, seps string) string {
	i := strings.IndexAny(v, seps)
	if i <= 0 {
		return v
	}
	return strings.TrimSpace(v[:i])
}

var numericRange = regexp.MustCompile(`^(\d{1,3})(?:\s*[-/]\s*(\d{1,3}))?$`)

// numericValues parses "12" or "12-14" / "12/14".
func numericValues(v string) ([]int, bool) {
	m := numericRange.FindStringSubmatch(v)
	if m == nil {
		return nil, false
	}
	out := make([]int, 0, 2)
	for _, s := range m[1:] {
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func allWithin(nums []int, lo, hi int) bool {
	if len(nums) == 0 {
		return false
	}
	for _, n := range nums {
		if n < lo || n > hi {
			return false
		}
	}
	return true
}
