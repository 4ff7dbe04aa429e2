// Package normalize provides input normalization for keywords and company names.
package normalize

import (
	"regexp"
	"strings"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	multiWSRe    = regexp.MustCompile(`\s+`)
	corpSuffixRe = regexp.MustCompile(`\s*(inc|llc|ltd|corp|company|group|solutions|services|staffing|recruiting)$`)
)

// Keyword lower-cases and trims a filter keyword.
func Keyword(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// CompanyName canonicalizes a company name for blocklist and exclusion
// matching: lower-case, strip punctuation, collapse whitespace, drop a
// trailing corporate suffix.
func CompanyName(name string) string {
	s := strings.ToLower(name)
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = multiWSRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = corpSuffixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
