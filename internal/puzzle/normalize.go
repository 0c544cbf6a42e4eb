package puzzle

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes user input before answer comparison: lower case,
// trimmed, internal whitespace runs collapsed to one space, combining marks
// removed so "Tradition" and "  tràdition  " compare equal. Safe to call
// from concurrent handler goroutines.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}
	// transform.Chain values carry per-use buffers and must not be shared
	// across goroutines; the chain is rebuilt per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, t); err == nil {
		t = stripped
	}
	return strings.Join(strings.Fields(t), " ")
}
