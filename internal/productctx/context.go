// Package productctx builds the free-text "descriptive context" of a product
// row and defines its serialized form.
//
// Serialized grammar:
//
//	context = pair *( " | " pair )
//	pair    = key ":" value *( "," value )
//
// Inside keys and values the characters \ | : , are escaped with a backslash.
// Whitespace around separators is not significant. Parse(Encode(c)) == c.
package productctx

import (
	"fmt"
	"strings"
)

// Pair is one context entry. A pair with one value is a scalar; with several
// it is a list.
type Pair struct {
	Key    string
	Values []string
}

// Context is an ordered list of pairs. A nil *Context means "absent".
type Context struct {
	Pairs []Pair
}

const (
	pairSep  = " | "
	keySep   = ':'
	valueSep = ','
)

func (c *Context) IsEmpty() bool { return c == nil || len(c.Pairs) == 0 }

// Add appends a value under key, merging with an existing pair of the same
// key when merge is true.
func (c *Context) Add(key, value string, merge bool) {
	if merge {
		for i := range c.Pairs {
			if c.Pairs[i].Key == key {
				for _, v := range c.Pairs[i].Values {
					if v == value {
						return
					}
				}
				c.Pairs[i].Values = append(c.Pairs[i].Values, value)
				return
			}
		}
	}
	c.Pairs = append(c.Pairs, Pair{Key: key, Values: []string{value}})
}

// Get returns all values recorded under key, across pairs.
func (c *Context) Get(key string) []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, p := range c.Pairs {
		if strings.EqualFold(p.Key, key) {
			out = append(out, p.Values...)
		}
	}
	return out
}

// Map flattens the context into key -> "v1, v2" for template rendering.
func (c *Context) Map() map[string]string {
	out := map[string]string{}
	if c == nil {
		return out
	}
	for _, p := range c.Pairs {
		k := strings.ToLower(p.Key)
		joined := strings.Join(p.Values, ", ")
		if prev, ok := out[k]; ok && prev != "" {
			joined = prev + ", " + joined
		}
		out[k] = joined
	}
	return out
}

// Encode serializes the context. An empty context encodes to "".
func (c *Context) Encode() string {
	if c.IsEmpty() {
		return ""
	}
	var b strings.Builder
	for i, p := range c.Pairs {
		if i > 0 {
			b.WriteString(pairSep)
		}
		b.WriteString(escape(p.Key))
		b.WriteByte(keySep)
		for j, v := range p.Values {
			if j > 0 {
				b.WriteByte(valueSep)
			}
			b.WriteString(escape(v))
		}
	}
	return b.String()
}

func (c *Context) String() string { return c.Encode() }

var escaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `:`, `\:`, `,`, `\,`)

func escape(s string) string { return escaper.Replace(s) }

// Parse is the inverse of Encode. "" parses to nil.
func Parse(s string) (*Context, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var (
		c       Context
		cur     Pair
		buf     strings.Builder
		inKey   = true
		escaped bool
		idx     = 1
	)

	flushValue := func() {
		cur.Values = append(cur.Values, strings.TrimSpace(buf.String()))
		buf.Reset()
	}
	flushPair := func() error {
		if inKey {
			return fmt.Errorf("pair %d: missing ':'", idx)
		}
		flushValue()
		if cur.Key == "" {
			return fmt.Errorf("pair %d: empty key", idx)
		}
		c.Pairs = append(c.Pairs, cur)
		cur = Pair{}
		inKey = true
		idx++
		return nil
	}

	for _, r := range s {
		if escaped {
			buf.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case r == '\\':
			escaped = true
		case r == '|':
			if err := flushPair(); err != nil {
				return nil, err
			}
		case r == keySep && inKey:
			cur.Key = strings.TrimSpace(buf.String())
			buf.Reset()
			inKey = false
		case r == valueSep && !inKey:
			flushValue()
		default:
			buf.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("pair %d: dangling escape", idx)
	}
	if err := flushPair(); err != nil {
		return nil, err
	}
	return &c, nil
}
