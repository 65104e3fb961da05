package productctx

import (
	"strings"
	"unicode"

	"catalog/internal/textutil"
)

// FieldStats summarizes the values of one column across a file.
type FieldStats struct {
	AvgLength    float64
	AvgWords     float64
	Uniqueness   float64
	NumericRatio float64
	SpecialRatio float64
}

// Score weights. A column scoring DescriptiveThreshold or more is descriptive.
const (
	weightLength  = 1.0
	weightWords   = 1.0
	weightUnique  = 1.0
	weightNumeric = 0.5
	weightSpecial = 0.5

	DescriptiveThreshold = 3.0
)

// Stats computes FieldStats over values, ignoring placeholders. ok is false
// when no usable value exists.
func Stats(values []string) (FieldStats, bool) {
	var (
		st        FieldStats
		n         int
		chars     int
		special   int
		numeric   int
		wordTotal int
		unique    = map[string]struct{}{}
	)
	for _, v := range values {
		v = textutil.Trim(v)
		if textutil.IsPlaceholder(v) {
			continue
		}
		n++
		unique[strings.ToLower(v)] = struct{}{}
		wordTotal += len(strings.Fields(v))
		if textutil.IsNumeric(v) {
			numeric++
		}
		for _, r := range v {
			chars++
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) && !strings.ContainsRune(".,;:'-()/", r) {
				special++
			}
		}
	}
	if n == 0 {
		return st, false
	}
	st.AvgLength = float64(chars) / float64(n)
	st.AvgWords = float64(wordTotal) / float64(n)
	st.Uniqueness = float64(len(unique)) / float64(n)
	st.NumericRatio = float64(numeric) / float64(n)
	if chars > 0 {
		st.SpecialRatio = float64(special) / float64(chars)
	}
	return st, true
}

// Score is the weighted descriptiveness score of a column.
func (s FieldStats) Score() float64 {
	var score float64
	if s.AvgLength > 15 {
		score += weightLength
	}
	if s.AvgWords > 3 {
		score += weightWords
	}
	if s.Uniqueness > 0.3 {
		score += weightUnique
	}
	if s.NumericRatio < 0.2 {
		score += weightNumeric
	}
	if s.SpecialRatio < 0.1 {
		score += weightSpecial
	}
	return score
}

// IsDescriptive scores values and applies DescriptiveThreshold.
func IsDescriptive(values []string) bool {
	st, ok := Stats(values)
	return ok && st.Score() >= DescriptiveThreshold
}

// Valuable reports whether a single cell value is worth carrying into the
// context: non-empty, not purely numeric, at least two characters, not "nan".
func Valuable(v string) bool {
	v = textutil.Trim(v)
	if len([]rune(v)) < 2 {
		return false
	}
	if strings.EqualFold(v, "nan") || textutil.IsPlaceholder(v) {
		return false
	}
	return !textutil.IsNumeric(v)
}
