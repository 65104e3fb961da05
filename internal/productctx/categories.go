package productctx

import "regexp"

// Other collects descriptive values whose column matches no category.
const Other = "other"

type category struct {
	name string
	re   *regexp.Regexp
}

// categories are tried in order against the column name.
var categories = []category{
	{"dimensions", regexp.MustCompile(`(?i)dimens|misur|measure|width|height|length|depth|larghezz|altezz|lunghezz|profondit|peso|weight|diametr|capacit|formato`)},
	{"colors", regexp.MustCompile(`(?i)colou?r|colore|tinta|farbe|shade`)},
	{"materials", regexp.MustCompile(`(?i)material|tessut|fabric|composi|stoff|filato`)},
	{"categories", regexp.MustCompile(`(?i)categor|famigli|family|reparto|department|tipolog|product.?type|gruppo|linea`)},
	{"descriptions", regexp.MustCompile(`(?i)descr|note|testo|text|detail|dettagl|beschreib|info`)},
	{"themes", regexp.MustCompile(`(?i)tema|theme|occasion|festa|party|carneval|halloween|natale|christmas|motivo`)},
	{"features", regexp.MustCompile(`(?i)feature|caratteristic|funzion|includ|contenut|content|accessor|dotazion`)},
	{"brand", regexp.MustCompile(`(?i)brand|marca|marchio|produttore|manufacturer|licen[sz]`)},
	{"target", regexp.MustCompile(`(?i)target|gender|genere|sesso|\beta\b|età|\bage\b|bambin|kid|adult|uomo|donna|unisex`)},
	{"packaging", regexp.MustCompile(`(?i)pack|confezion|imball|scatol|\bbox\b|blister|busta|inner|master`)},
	{"season", regexp.MustCompile(`(?i)season|stagion|collezion|collection|anno`)},
	{"technical", regexp.MustCompile(`(?i)tecnic|technical|spec|norm|certific|\bce\b|en71|warning|avvertenz|sicurezz|lavaggio|care`)},
}

// Categorize returns the heuristic category of a supplier column name.
func Categorize(column string) string {
	for _, c := range categories {
		if c.re.MatchString(column) {
			return c.name
		}
	}
	return Other
}

// categoryRank orders categories for output; Other sorts last.
func categoryRank(name string) int {
	for i, c := range categories {
		if c.name == name {
			return i
		}
	}
	return len(categories)
}
