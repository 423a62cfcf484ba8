// Package normalize provides utilities for normalizing identity and text data.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Email canonicalizes an email address for index keys and equality checks.
// Lowercases via Unicode case folding and applies NFC so that visually
// identical addresses entered on different keyboards compare equal.
func Email(email string) string {
	folded := cases.Fold().String(strings.TrimSpace(email))
	return norm.NFC.String(folded)
}

// DisplayName canonicalizes a person or child name for storage.
// Trims whitespace and applies NFC; case is preserved.
func DisplayName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// SearchTerm canonicalizes free text before it is fed to the search index.
// Folds case and decomposes compatibility characters (NFKC) so "Purée"
// and "puree"-style variants land near each other in the index.
func SearchTerm(s string) string {
	folded := cases.Lower(language.Und).String(strings.TrimSpace(s))
	return norm.NFKC.String(folded)
}
