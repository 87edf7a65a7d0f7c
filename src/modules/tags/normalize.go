package tags

import (
	"regexp"
	"strings"
)

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	disallowed = regexp.MustCompile(`[^a-z0-9-]`)
)

// Normalize canonicalizes a raw tag value: lowercase, trimmed, the first
// internal whitespace run replaced with a hyphen and the first remaining
// disallowed character dropped. Later whitespace runs and disallowed
// characters pass through untouched; the test suite pins that behavior.
func Normalize(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if loc := spaceRun.FindStringIndex(value); loc != nil {
		value = value[:loc[0]] + "-" + value[loc[1]:]
	}
	if loc := disallowed.FindStringIndex(value); loc != nil {
		value = value[:loc[0]] + value[loc[1]:]
	}
	return value
}
