package common

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeProductName canonicalizes a product description for lookup.
// It applies NFKC, upper-cases, trims and collapses runs of whitespace.
func NormalizeProductName(name string) string {
	normed := norm.NFKC.String(name)
	normed = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, normed)
	return strings.ToUpper(strings.Join(strings.Fields(normed), " "))
}
