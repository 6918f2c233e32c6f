package pattern

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// digitRun matches identifiers, check numbers and store codes.
	digitRun = regexp.MustCompile(`\d{3,}`)
	// wildcardRun matches wildcards separated only by whitespace.
	wildcardRun = regexp.MustCompile(`\*(?:\s*\*)+`)
)

// minLiteralChars is the fewest characters other than wildcards and whitespace
// a learned pattern may carry.
const minLiteralChars = 3

// ExtractPattern generalizes a description into a lowercase wildcard pattern.
// Every run of three or more digits becomes "*", so "Bro461026" becomes
// "bro*", and wildcards separated only by whitespace collapse into one.
// A blank description yields "".
func ExtractPattern(description string) string {
	p := strings.ToLower(strings.TrimSpace(description))
	if p == "" {
		return ""
	}
	p = digitRun.ReplaceAllString(p, Wildcard)
	return wildcardRun.ReplaceAllString(p, Wildcard)
}

// IsLearnable reports whether an extracted pattern is specific enough to
// become a rule. Empty patterns, a bare wildcard and patterns with fewer than
// three literal characters are rejected. Whitespace is not a literal.
func IsLearnable(p string) bool {
	if p == "" || p == Wildcard {
		return false
	}
	return literalChars(p) >= minLiteralChars
}

func literalChars(p string) int {
	n := 0
	for _, r := range p {
		if string(r) == Wildcard || unicode.IsSpace(r) {
			continue
		}
		n++
	}
	return n
}
