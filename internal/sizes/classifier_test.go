package sizes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"catalog/internal/catalogerr"
)

const testConfig = `{
  "size_sets": {
    "Guirca": {
      "abbigliamento": ["TU", "S", "M", "L"],
      "bambino": ["3-4", "5-6", "7-9"]
    },
    "widmann": {}
  },
  "size_type_mapping": {
    "abbigliamento": "clothing",
    "bambino": "kids",
    "calzature": "shoes",
    "cappelli": "accessories",
    "adulto": "clothing"
  },
  "category_indicators": {
    "bambino": ["CHILD", "KID", "BAMBIN"],
    "adulto": ["ADULT"]
  },
  "supplier_rules": {
    "widmann": {"numeric_ranges": [{"min": 1, "max": 16, "size_set": "bambino"}]},
    "carnival": {"leading_token": true}
  }
}`

type captureLogger struct{ lines []string }

func (c *captureLogger) Printf(format string, v ...any) { c.lines = append(c.lines, format) }

func newTestClassifier(t *testing.T) (*Classifier, *captureLogger) {
	t.Helper()
	cfg, err := ParseConfig([]byte(testConfig))
	require.NoError(t, err)
	c := New(cfg)
	l := &captureLogger{}
	c.Logger = l
	return c, l
}

func TestClassify_Table(t *testing.T) {
	c, _ := newTestClassifier(t)

	tests := []struct {
		name     string
		raw      string
		supplier string
		size     string
		set      string
		typ      string
		rule     string
	}{
		{"empty", "", "guirca", "", "", "", "empty"},
		{"blank", "   ", "acme", "", "", "", "empty"},
		{"letter", "XL", "acme", "XL", SetClothing, TypeClothing, "pattern:abbigliamento"},
		{"lowercase_parens", " (m) ", "acme", "M", SetClothing, TypeClothing, "pattern:abbigliamento"},
		{"letter_range", "S/M", "acme", "S/M", SetClothing, TypeClothing, "pattern:abbigliamento"},
		{"kids_cm_years", "110 CM / 3-4 YEARS", "acme", "110 CM / 3-4 YEARS", SetKids, TypeKids, "pattern:bambino"},
		{"kids_years", "5-6 anni", "acme", "5-6 ANNI", SetKids, TypeKids, "pattern:bambino"},
		{"kids_bare", "8", "acme", "8", SetKids, TypeKids, "pattern:bambino"},
		{"shoe_range", "36-37", "acme", "36-37", SetShoes, TypeShoes, "pattern:calzature"},
		{"shoe_single", "42", "acme", "42", SetShoes, TypeShoes, "pattern:calzature"},
		{"hat", "58", "acme", "58", SetHats, TypeAccessories, "pattern:cappelli"},
		{"hat_cm", "56 CM", "acme", "56 CM", SetHats, TypeAccessories, "pattern:cappelli"},
		{"height_cm", "128 CM", "acme", "128 CM", SetKids, TypeKids, "pattern:bambino"},
		{"indicator", "CHILD STANDARD", "acme", "CHILD STANDARD", SetKids, TypeKids, "indicator"},
		{"indicator_custom_set", "ADULT STD", "acme", "ADULT STD", "adulto", TypeClothing, "indicator"},
		{"heuristic_letter_token", "M-RED", "acme", "M-RED", SetClothing, TypeClothing, "heuristic:letter"},
		{"heuristic_universal", "TU COLOR", "acme", "TU COLOR", SetClothing, TypeClothing, "heuristic:universal"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.raw, tc.supplier)
			require.Equal(t, tc.size, got.Size)
			require.Equal(t, tc.set, got.Set)
			require.Equal(t, tc.typ, got.Type)
			require.Equal(t, tc.rule, got.Rule)
			require.False(t, got.Fallback)
		})
	}
}

func TestClassify_EmptyForEverySupplier(t *testing.T) {
	c, _ := newTestClassifier(t)
	for _, sup := range []string{"guirca", "widmann", "carnival", "unknown", ""} {
		got := c.Classify("", sup)
		require.Equal(t, Resolution{Rule: "empty"}, got, sup)
	}
}

func TestClassify_SupplierExactWinsOverPatterns(t *testing.T) {
	c, _ := newTestClassifier(t)

	// "3-4" would otherwise fall to the heuristics; "TU" would hit the
	// abbigliamento universal pattern anyway but must come from the exact rule.
	got := c.Classify("tu", "GUIRCA")
	require.Equal(t, SetClothing, got.Set)
	require.Equal(t, TypeClothing, got.Type)
	require.Equal(t, "supplier_exact", got.Rule)

	got = c.Classify("3-4", "guirca")
	require.Equal(t, SetKids, got.Set)
	require.Equal(t, TypeKids, got.Type)
	require.Equal(t, "supplier_exact", got.Rule)

	// Every configured literal resolves to its own set.
	for _, kv := range c.cfg.SizeSets["guirca"] {
		for _, lit := range kv.Value {
			r := c.Classify(lit, "guirca")
			require.Equal(t, kv.Key, r.Set, lit)
			require.Equal(t, c.typeFor(kv.Key), r.Type, lit)
		}
	}
}

func TestClassify_SupplierPrePass(t *testing.T) {
	c, _ := newTestClassifier(t)

	// Same digits, different meaning per supplier.
	got := c.Classify("12", "widmann")
	require.Equal(t, SetKids, got.Set)
	require.Equal(t, "supplier_range", got.Rule)

	got = c.Classify("40", "widmann")
	require.Equal(t, SetShoes, got.Set)

	got = c.Classify("XL-ROSSO", "carnival")
	require.Equal(t, "XL", got.Size)
	require.Equal(t, SetClothing, got.Set)
	require.Equal(t, "pattern:abbigliamento", got.Rule)
}

func TestClassify_FallbackIsFlaggedAndLogged(t *testing.T) {
	c, l := newTestClassifier(t)

	got := c.Classify("ZZZ", "acme")
	require.True(t, got.Fallback)
	require.Equal(t, "ZZZ", got.Size)
	require.Equal(t, SetClothing, got.Set)
	require.Equal(t, TypeClothing, got.Type)
	require.Len(t, l.lines, 1)
	require.True(t, strings.HasPrefix(l.lines[0], "stage=size_fallback"))
}

func TestClassifyWithHints(t *testing.T) {
	c, _ := newTestClassifier(t)

	got := c.ClassifyWithHints("ZZZ", "acme", "", "Costume per bambini")
	require.False(t, got.Fallback)
	require.Equal(t, SetKids, got.Set)
	require.Equal(t, "hint", got.Rule)

	// Hints never override a size-based match.
	got = c.ClassifyWithHints("XL", "acme", "Costume per bambini")
	require.Equal(t, SetClothing, got.Set)
}

func TestClassify_WithoutConfigUsesBuiltinTypes(t *testing.T) {
	c := New(nil)
	got := c.Classify("XL", "")
	require.Equal(t, Resolution{Size: "XL", Set: SetClothing, Type: TypeClothing, Rule: "pattern:abbigliamento"}, got)
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte(`{"size_type_mapping": {"a": "b"}}`))
	require.ErrorContains(t, err, "size_sets")

	_, err = ParseConfig([]byte(`{"size_sets": {}}`))
	require.ErrorContains(t, err, "size_type_mapping")

	_, err = ParseConfig([]byte(`{"size_sets": {}, "size_type_mapping": {"a":"b"}, "bogus": 1}`))
	require.Error(t, err)

	_, err = ParseConfig([]byte(`{"size_sets": {}, "size_type_mapping": {"a":"b"}, "category_indicators": []}`))
	require.Error(t, err)

	_, err = ParseConfig([]byte(`{"size_sets": {}, "size_type_mapping": {"a":"b"},
		"supplier_rules": {"x": {"numeric_ranges": [{"min": 5, "max": 1, "size_set": "bambino"}]}}}`))
	require.ErrorContains(t, err, "numeric_ranges")
}

func TestLoadConfig_ConfigError(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(filepath.Join(dir, "missing.json"))
	require.True(t, catalogerr.IsConfig(err))

	p := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))
	_, err = LoadConfig(p)
	require.True(t, catalogerr.IsConfig(err))

	p = filepath.Join(dir, "ok.json")
	require.NoError(t, os.WriteFile(p, []byte(testConfig), 0o644))
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "bambino", cfg.CategoryIndicators[0].Key)
	require.Equal(t, "adulto", cfg.CategoryIndicators[1].Key)
}
