// Package doi recognizes Digital Object Identifiers in free text and maps
// them to their canonical resolver URLs.
package doi

import (
	"regexp"
	"strings"
)

// Pattern is the DOI token grammar: "10." followed by a numeric registrant
// code (optionally with numeric subdivisions), a slash, and a suffix of
// DOI-legal characters.
const Pattern = `10\.[0-9]{4,9}(?:\.[0-9]+)*/[^\s"'<>{}|\\^~\[\]` + "`" + `]+`

// ResolverBase is prefixed to a DOI to form its canonical reference URL.
const ResolverBase = "https://doi.org/"

var doiPattern = regexp.MustCompile(Pattern)

// joinedPattern matches a "," or ";" that directly precedes another DOI
// inside a single match, as in "10.1234/a,10.5678/b".
var joinedPattern = regexp.MustCompile(`[,;]10\.[0-9]{4,9}(?:\.[0-9]+)*/`)

// trailingPunctuation is stripped from the end of a match; it usually ends
// the surrounding sentence rather than the DOI.
const trailingPunctuation = ".,;:"

// FindAll returns every DOI in text, left to right. Duplicates are kept.
func FindAll(text string) []string {
	matches := doiPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	dois := make([]string, 0, len(matches))
	for _, match := range matches {
		for _, part := range splitJoined(match) {
			part = trimTrailing(part)
			if IsValid(part) {
				dois = append(dois, part)
			}
		}
	}
	return dois
}

// splitJoined splits a match at every separator that starts another DOI.
func splitJoined(match string) []string {
	locs := joinedPattern.FindAllStringIndex(match, -1)
	if len(locs) == 0 {
		return []string{match}
	}

	parts := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		parts = append(parts, match[start:loc[0]])
		start = loc[0] + 1
	}
	return append(parts, match[start:])
}

// Canonicalize returns the resolver URL for a DOI.
func Canonicalize(doi string) string {
	return ResolverBase + doi
}

// CanonicalizeAll maps every DOI to its resolver URL, preserving order.
func CanonicalizeAll(dois []string) []string {
	urls := make([]string, 0, len(dois))
	for _, d := range dois {
		urls = append(urls, Canonicalize(d))
	}
	return urls
}

// Strip removes a resolver prefix (https://doi.org/, http://dx.doi.org/, doi:)
// if present, returning the bare DOI.
func Strip(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

// IsValid performs basic validation on a bare DOI.
func IsValid(doi string) bool {
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	if slashIdx == -1 || slashIdx >= len(doi)-1 {
		return false
	}
	return doiPattern.FindString(doi) == doi
}

// trimTrailing removes sentence punctuation and unbalanced closing
// parentheses from the end of a match.
func trimTrailing(match string) string {
	for len(match) > 0 {
		last := match[len(match)-1]
		switch {
		case strings.IndexByte(trailingPunctuation, last) >= 0:
			match = match[:len(match)-1]
		case last == ')' && strings.Count(match, ")") > strings.Count(match, "("):
			match = match[:len(match)-1]
		default:
			return match
		}
	}
	return match
}
