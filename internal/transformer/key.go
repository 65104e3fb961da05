package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeySpec describes how to derive the identity key used for deduplication.
type KeySpec struct {
	Fields            []string
	IncludeFieldNames bool
	Separator         string
}

// Key returns a deterministic SHA-256 hex key over ks.Fields of row.
// ok is false when every key field is empty; such rows are never merged.
func (ks KeySpec) Key(row CanonicalRow) (string, bool) {
	sep := ks.Separator
	if sep == "" {
		sep = "\x1f"
	}
	var (
		b        strings.Builder
		nonEmpty bool
	)
	for i, f := range ks.Fields {
		if i > 0 {
			b.WriteString(sep)
		}
		if ks.IncludeFieldNames {
			b.WriteString(f)
			b.WriteByte('=')
		}
		v, present := row.Lookup(f)
		if !present {
			// missing differs from empty
			b.WriteByte(0)
			continue
		}
		v = strings.TrimSpace(v)
		if v != "" {
			nonEmpty = true
		}
		b.WriteString(v)
	}
	if !nonEmpty {
		return "", false
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), true
}
