package transformer

import (
	"strings"

	"catalog/internal/records"
	"catalog/internal/textutil"
)

// ResolveField returns the first candidate column present in row with a
// usable value. Values are trimmed; "", "nan" and "#N/A" count as absent.
func ResolveField(row records.Record, candidates []string) (string, bool) {
	for _, col := range candidates {
		c, ok := row.Get(col)
		if !ok {
			continue
		}
		if v, ok := textutil.CleanValue(c.Text); ok {
			return v, true
		}
	}
	return "", false
}

// ConcatFields joins every usable candidate value with ",".
func ConcatFields(row records.Record, candidates []string) (string, bool) {
	var parts []string
	for _, col := range candidates {
		c, ok := row.Get(col)
		if !ok {
			continue
		}
		if v, ok := textutil.CleanValue(c.Text); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ","), len(parts) > 0
}

// imageCells returns the reduced filenames of every candidate column, using
// hyperlink targets over visible text.
func imageCells(row records.Record, candidates []string, first bool) []string {
	var out []string
	for _, col := range candidates {
		c, ok := row.Get(col)
		if !ok {
			continue
		}
		name := ReduceImage(c.URL())
		if name == "" {
			continue
		}
		out = append(out, name)
		if first {
			break
		}
	}
	return out
}

// ReduceImage strips any URL or path prefix (either slash convention) and
// forces a .jpg extension: names already ending in .jpg are kept, otherwise
// the part before the first "." gets ".jpg". ReduceImage is idempotent.
func ReduceImage(v string) string {
	v = textutil.Trim(v)
	if textutil.IsPlaceholder(v) {
		return ""
	}
	v = strings.ReplaceAll(v, `\`, "/")
	if strings.Contains(v, "://") {
		if i := strings.IndexAny(v, "?#"); i >= 0 {
			v = v[:i]
		}
	}
	name := strings.TrimSpace(v[strings.LastIndexByte(v, '/')+1:])
	if name == "" {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(name), ".jpg") {
		return name
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return ""
	}
	return name + ".jpg"
}
