package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const nbsp = "\u00a0"

// toASCII decomposes accented letters and drops everything outside ASCII,
// so "Sécheresse sévère" becomes "Secheresse severe".
var toASCII = transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
})))

// Normalize is the matching form used for headers and unit names: trimmed,
// NBSP replaced by a space, double spaces halved once, lowercased.
// A run of three or more spaces is not fully collapsed.
func Normalize(input string) string {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, nbsp, " ")
	s = strings.ReplaceAll(s, "  ", " ")
	return strings.ToLower(s)
}

// NormalizeName is Normalize for optional values; nil stays nil.
func NormalizeName(input *string) *string {
	if input == nil {
		return nil
	}
	out := Normalize(*input)
	return &out
}

// CollapseSpaces replaces NBSP with a space, trims, and collapses repeated
// spaces until none are left.
func CollapseSpaces(input string) string {
	s := strings.TrimSpace(strings.ReplaceAll(input, nbsp, " "))
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// StripToASCII removes diacritics and any remaining non-ASCII runes.
func StripToASCII(input string) string {
	out, _, err := transform.String(toASCII, input)
	if err != nil {
		return input
	}
	return out
}
