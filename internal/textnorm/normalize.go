// Package textnorm produces the canonical form shared by user queries,
// stored titles and platform aliases.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinQueryLength is the shortest canonical query that reaches any source.
const MinQueryLength = 2

var separatorPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Normalize lowercases raw, folds accents, expands "&" to "and" and collapses
// every run of non-alphanumeric runes into a single space.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(raw string) string {
	value := strings.ToLower(raw)
	value = foldAccents(value)
	value = strings.ReplaceAll(value, "&", " and ")
	value = separatorPattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// Tokens splits a canonical string into words.
func Tokens(canonical string) []string {
	return strings.Fields(canonical)
}

// TooShort reports whether a canonical query is below MinQueryLength.
func TooShort(canonical string) bool {
	return utf8.RuneCountInString(canonical) < MinQueryLength
}

func foldAccents(value string) string {
	// Transformers carry state; build a fresh chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}
