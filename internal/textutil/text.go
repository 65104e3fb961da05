// Package textutil holds small string helpers shared by the catalog stages.
package textutil

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace. It lets
// hot paths skip strings.TrimSpace allocations for already-clean cells.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// Trim is strings.TrimSpace without the call when nothing needs trimming.
func Trim(s string) string {
	if HasEdgeSpace(s) {
		return strings.TrimSpace(s)
	}
	return s
}

var placeholders = map[string]struct{}{
	"nan": {}, "none": {}, "null": {}, "n/a": {}, "na": {}, "-": {}, "#n/a": {},
}

// IsPlaceholder reports whether v is an empty or "no value" marker left behind
// by spreadsheet exports (nan, null, #N/A, ...).
func IsPlaceholder(v string) bool {
	v = Trim(v)
	if v == "" {
		return true
	}
	_, ok := placeholders[strings.ToLower(v)]
	return ok
}

var missing = map[string]struct{}{"nan": {}, "#n/a": {}}

// IsMissing reports whether v is empty, "nan" or "#N/A". Unlike IsPlaceholder
// it keeps tokens such as "NA" or "None", which can be real codes or names.
func IsMissing(v string) bool {
	v = Trim(v)
	if v == "" {
		return true
	}
	_, ok := missing[strings.ToLower(v)]
	return ok
}

var integralFloat = regexp.MustCompile(`^-?\d+\.0+$`)

// CleanValue trims v, drops missing markers (see IsMissing) and renders
// integral floats without the decimal part ("12345.0" -> "12345").
// Non-integral numbers keep their decimals. ok is false when nothing usable
// remains.
func CleanValue(v string) (string, bool) {
	v = Trim(v)
	if IsMissing(v) {
		return "", false
	}
	if integralFloat.MatchString(v) {
		return v[:strings.IndexByte(v, '.')], true
	}
	return v, true
}

// IsNumeric reports whether v parses as a number.
func IsNumeric(v string) bool {
	v = strings.ReplaceAll(Trim(v), ",", ".")
	if v == "" {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

var htmlTag = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)

// PlainText strips HTML markup from supplier free text. Values without tags are
// returned unchanged; block-level whitespace collapses to single spaces.
func PlainText(s string) string {
	if !htmlTag.MatchString(s) {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return htmlTag.ReplaceAllString(s, " ")
	}
	doc.Find("br,p,li,div").Each(func(_ int, sel *goquery.Selection) {
		sel.BeforeHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
