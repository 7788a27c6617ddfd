package resolve

import (
	"regexp"
	"strings"

	"github.com/sells-group/planfill-cli/internal/planxml"
)

var gateRefRe = regexp.MustCompile(`(?i)if\s*y\s*in\s*page\s*(\d+)\s*seq\s*(\d+)`)

// parseGateRef extracts the (page, seq) reference from allowed-options text
// of the shape "If Y in page 1810 seq 5 - enter minimum age".
func parseGateRef(optionsAllowed string) (page, seq string, ok bool) {
	m := gateRefRe.FindStringSubmatch(optionsAllowed)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

var numRe = regexp.MustCompile(`\d{1,4}(?:[.,]\d{1,2})?`)

// firstNumeral returns the first embedded numeral in a text, or "".
func firstNumeral(s string) string {
	return numRe.FindString(s)
}

// extractNumericForPrompt pulls a numeric answer for a gated prompt: first
// the fixed candidate fields for the prompt's keyword category, then a
// generic scan of fields sharing the configured name prefix whose name also
// contains a category keyword.
func (e *Engine) extractNumericForPrompt(prompt string, flags planxml.FlagSet) string {
	p := strings.ToLower(prompt)

	var scanTokens []string
	for _, cat := range e.Rules.Numeric.Categories {
		if !strings.Contains(p, cat.Keyword) {
			continue
		}
		for _, f := range cat.Fields {
			if txt := flags.Text(f); txt != "" {
				if n := firstNumeral(txt); n != "" {
					return n
				}
			}
		}
		scanTokens = append(scanTokens, cat.ScanTokens...)
	}
	if len(scanTokens) == 0 {
		return ""
	}

	prefix := e.Rules.Numeric.ScanPrefix
	for name := range flags {
		nameL := strings.ToLower(name)
		if !strings.HasPrefix(nameL, prefix) {
			continue
		}
		if !containsAny(nameL, scanTokens...) {
			continue
		}
		if txt := flags.Text(name); txt != "" {
			if n := firstNumeral(txt); n != "" {
				return n
			}
		}
	}
	return ""
}

// looksLeakedInstruction reports whether a value is the gate instruction
// itself rather than an answer; such values may be overwritten by the gated
// numeric path.
func looksLeakedInstruction(v string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "if y")
}

// extractServiceRequirement resolves a service-requirement-for-eligibility
// row to a bare number. Free-text holders are consulted first ("Sixty Days
// (60)" yields "60"), then known numeric fields, then any all-digit text on
// a field whose name mentions service or eligibility. Returns "" when
// nothing matches; the caller treats that as a definite blank.
func (e *Engine) extractServiceRequirement(flags planxml.FlagSet) string {
	for _, f := range e.Rules.Service.FreeTextFields {
		if txt := flags.Text(f); txt != "" {
			if n := serviceNumRe.FindString(txt); n != "" {
				return n
			}
		}
	}
	for _, f := range e.Rules.Service.NumericFields {
		if txt := flags.Text(f); txt != "" && isDigits(txt) {
			return txt
		}
	}
	for name := range flags {
		txt := flags.Text(name)
		if txt == "" || !isDigits(txt) {
			continue
		}
		if containsAny(strings.ToLower(name), e.Rules.Service.NameTokens...) {
			return txt
		}
	}
	return ""
}

var serviceNumRe = regexp.MustCompile(`\d{1,3}`)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
