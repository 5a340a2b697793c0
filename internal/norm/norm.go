// Package norm implements the dedupe-key text normalization shared by the
// Store (I2) and the Extractor (intra-turn dedup): lowercase, collapse
// interior whitespace, strip leading/trailing punctuation (spec.md §9).
package norm

import "strings"

// Text normalizes a candidate's text for dedupe-key comparison.
func Text(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	fields := strings.Fields(lower)
	collapsed := strings.Join(fields, " ")
	return strings.TrimFunc(collapsed, isPunct)
}

func isPunct(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '"', '\'', '`', '(', ')', '[', ']', '{', '}':
		return true
	}
	return false
}
