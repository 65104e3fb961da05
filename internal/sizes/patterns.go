package sizes

import (
	"regexp"
	"strconv"
	"strings"
)

// matcher is a regular expression with an optional numeric constraint on its
// captured groups.
type matcher struct {
	re    *regexp.Regexp
	check func(groups []string) bool
}

func (m matcher) match(v string) bool {
	g := m.re.FindStringSubmatch(v)
	if g == nil {
		return false
	}
	return m.check == nil || m.check(g[1:])
}

type family struct {
	set      string
	matchers []matcher
}

func (f family) match(v string) bool {
	for _, m := range f.matchers {
		if m.match(v) {
			return true
		}
	}
	return false
}

const (
	shoeMin = 35
	shoeMax = 46
	kidsMax = 16
)

var hatSizes = map[int]bool{54: true, 56: true, 58: true, 60: true}

// groupsWithin reports whether every non-empty numeric group lies in [lo,hi].
func groupsWithin(lo, hi int) func([]string) bool {
	return func(g []string) bool {
		seen := false
		for _, s := range g {
			if s == "" {
				continue
			}
			n, err := strconv.Atoi(s)
			if err != nil || n < lo || n > hi {
				return false
			}
			seen = true
		}
		return seen
	}
}

func notHatSize(g []string) bool {
	n, err := strconv.Atoi(g[0])
	return err == nil && !hatSizes[n]
}

// families are tried in order; the first family with a matching pattern wins.
var families = []family{
	{set: SetClothing, matchers: []matcher{
		{re: regexp.MustCompile(`^(XXS|XS|S|M|L|XL|XXL|XXXL|2XL|3XL|4XL)$`)},
		{re: regexp.MustCompile(`^(XS|S|M|L|XL|XXL)\s*[-/]\s*(XS|S|M|L|XL|XXL|2XL|3XL)$`)},
		{re: regexp.MustCompile(`^(UNICA|TAGLIA UNICA|TU|U|UNIVERSAL|ONE SIZE|OS)$`)},
	}},
	{set: SetKids, matchers: []matcher{
		{re: regexp.MustCompile(`(\d+)\s*CM\s*/\s*(\d+)\s*[-/]\s*(\d+)\s*(YEARS?|ANNI)`)},
		{re: regexp.MustCompile(`(\d+)\s*CM\s*/\s*(\d+)\s*(YEARS?|ANNI)`)},
		{re: regexp.MustCompile(`(\d+)\s*[-/]\s*(\d+)\s*(YEARS?|ANNI)`)},
		{re: regexp.MustCompile(`(\d+)\s*(YEARS?|ANNI|Y)\b`)},
		{re: regexp.MustCompile(`^(\d{2,3})\s*CM$`), check: notHatSize},
		{re: regexp.MustCompile(`^(\d{1,2})$`), check: groupsWithin(0, kidsMax)},
	}},
	{set: SetShoes, matchers: []matcher{
		{re: regexp.MustCompile(`^(\d{2})\s*[-/]\s*(\d{2})$`), check: groupsWithin(shoeMin, shoeMax)},
		{re: regexp.MustCompile(`^(\d{2})(?:[.,]5)?$`), check: groupsWithin(shoeMin, shoeMax)},
	}},
	{set: SetHats, matchers: []matcher{
		{re: regexp.MustCompile(`^(54|56|58|60)$`)},
		{re: regexp.MustCompile(`^(54|56|58|60)\s*CM$`)},
	}},
}

var (
	cmYears     = regexp.MustCompile(`\d+\s*CM.*(YEARS?|ANNI)`)
	shoePair    = regexp.MustCompile(`^(\d{2})[-/]?(\d{2})?$`)
	twoDigits   = regexp.MustCompile(`\d{2}`)
	tokenSplit  = regexp.MustCompile(`[^A-Z0-9]+`)
	hatToken    = regexp.MustCompile(`54|56|58|60`)
	letterSizes = map[string]bool{"XS": true, "S": true, "M": true, "L": true, "XL": true, "XXL": true, "2XL": true, "3XL": true}
	universal   = map[string]bool{"UNICA": true, "TU": true, "U": true, "UNIVERSAL": true}
)

// heuristic is the last-resort layer, applied after patterns and indicators.
// Types are fixed here rather than taken from size_type_mapping.
func heuristic(v string) (Resolution, bool) {
	if cmYears.MatchString(v) {
		return Resolution{Size: v, Set: SetKids, Type: TypeKids, Rule: "heuristic:cm_years"}, true
	}

	if shoePair.MatchString(v) {
		ok := true
		for _, s := range twoDigits.FindAllString(v, -1) {
			n, _ := strconv.Atoi(s)
			if n < shoeMin || n > shoeMax {
				ok = false
				break
			}
		}
		if ok {
			return Resolution{Size: v, Set: SetShoes, Type: TypeShoes, Rule: "heuristic:shoe_pair"}, true
		}
	}

	tokens := tokenSplit.Split(v, -1)
	if strings.Contains(v, "ONE SIZE") || anyToken(tokens, universal) {
		return Resolution{Size: v, Set: SetClothing, Type: TypeClothing, Rule: "heuristic:universal"}, true
	}
	if anyToken(tokens, letterSizes) {
		return Resolution{Size: v, Set: SetClothing, Type: TypeClothing, Rule: "heuristic:letter"}, true
	}
	if len(v) <= 4 && hatToken.MatchString(v) {
		return Resolution{Size: v, Set: SetHats, Type: TypeAccessories, Rule: "heuristic:hat"}, true
	}
	return Resolution{}, false
}

func anyToken(tokens []string, set map[string]bool) bool {
	for _, t := range tokens {
		if set[t] {
			return true
		}
	}
	return false
}
