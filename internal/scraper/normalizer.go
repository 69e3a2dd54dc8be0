// internal/scraper/normalizer.go
package scraper

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// checklistGlyphs are the box symbols recipe plugins prefix to ingredient
// lines so readers can tick them off.
const checklistGlyphs = "☐☑☒□▢"

// Clean trims s and normalizes it to NFC.
func Clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CleanChecklist strips a leading run of whitespace and checklist glyphs
// before cleaning s.
func CleanChecklist(s string) string {
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(checklistGlyphs, r)
	})
	return Clean(s)
}

// Qualifies reports whether the cleaned string is longer than minLen runes.
func Qualifies(s string, minLen int) bool {
	return utf8.RuneCountInString(s) > minLen
}

// Cap returns at most the first n elements of seq.
func Cap[T any](seq []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(seq) <= n {
		return seq
	}
	return seq[:n]
}
