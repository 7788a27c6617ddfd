// Package mapping loads the curated prompt→field mapping table and the
// list-of-values reference table.
package mapping

import (
	"regexp"
	"strings"
)

var wsRe = regexp.MustCompile(`\s+`)

// Normalize collapses internal whitespace, trims, and strips one trailing
// colon. Prompt lookups on both the map and the template go through this.
func Normalize(s string) string {
	s = wsRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.TrimSuffix(s, ":")
}

// Unescape expands literal "\n" sequences left behind by spreadsheet cells.
func Unescape(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// Lines splits a cell into trimmed, unquoted, non-empty lines after
// unescaping literal newlines.
func Lines(s string) []string {
	var out []string
	for _, line := range strings.Split(Unescape(s), "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
