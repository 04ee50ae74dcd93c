// Package normalize provides canonical key forms for cache identity.
//
// Cache rows are keyed by (name, country). Upstream callers pass these
// through from user input and model output, so the same university arrives
// as "MIT ", "mit" or "Mit" depending on the path. Keys are folded and
// whitespace-collapsed; display values are stored as given.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded, whitespace-collapsed form of s.
// Unicode case folding (not lowercasing) so that keys match across
// locale-specific casings.
func Fold(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// Key builds the composite cache key for a (name, country) pair.
func Key(name, country string) string {
	return Fold(name) + "|" + Fold(country)
}
