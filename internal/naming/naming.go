// Package naming normalizes the human-entered names that link questions to
// catalog and taxonomy nodes.
package naming

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Display trims and collapses inner whitespace, keeping the original casing.
func Display(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Key returns the match key for a name: two names with the same key refer to
// the same subject.
func Key(s string) string {
	return folder.String(Display(s))
}

// Code normalizes an exam short code to its lowercase, trimmed form.
func Code(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Equal reports whether a and b name the same thing.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}
