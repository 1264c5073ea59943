package policy

import (
	"regexp"
	"strings"
)

// ProductCardMarker is the token a generated reply embeds to request a product card.
const ProductCardMarker = "{{SHOW_PRODUCT_CARD}}"

var (
	multiSpaceRe     = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunct = regexp.MustCompile(`[ \t]+([.,!?])`)
)

// ExtractMarker removes every marker occurrence and reports whether one was present.
func ExtractMarker(text string) (string, bool) {
	if !strings.Contains(text, ProductCardMarker) {
		return text, false
	}
	clean := strings.ReplaceAll(text, ProductCardMarker, " ")
	clean = multiSpaceRe.ReplaceAllString(clean, " ")
	clean = spaceBeforePunct.ReplaceAllString(clean, "$1")
	return strings.TrimSpace(clean), true
}
