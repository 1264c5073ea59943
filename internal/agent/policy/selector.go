package policy

import "regexp"

// DefaultProductID is returned when no category keyword matches.
const DefaultProductID = "energy-plus"

type productRule struct {
	productID string
	re        *regexp.Regexp
}

// productRules is checked in order and the first match wins.
// "бол" forms are spelled out so that "больше" does not read as pain.
var productRules = []productRule{
	{"energy-plus", regexp.MustCompile(`устал|устаю|утомл|энерг|бодр|нет сил`)},
	{"sleep-well", regexp.MustCompile(`сон|бессонн|сплю|спать|уснуть|засыпа`)},
	{"immune-boost", regexp.MustCompile(`иммун|простуд|простуж|болею|заболе`)},
	{"joint-flex", regexp.MustCompile(`сустав|колен|спин|поясниц|болит|болят|боли|больн|боль(?:$|[^\p{L}])`)},
	{"mind-focus", regexp.MustCompile(`концентр|памят|внимани|сосредоточ|забыва|забывчив`)},
}

// MatchProduct returns the product for the first category whose keywords
// occur in text, case-insensitively.
func MatchProduct(text string) (string, bool) {
	lower := normalize(text)
	for _, r := range productRules {
		if r.re.MatchString(lower) {
			return r.productID, true
		}
	}
	return "", false
}

// SelectProduct maps free text to a product id, falling back to DefaultProductID.
func SelectProduct(text string) string {
	if id, ok := MatchProduct(text); ok {
		return id
	}
	return DefaultProductID
}
