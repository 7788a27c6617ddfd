package resolve

import (
	"strings"

	"github.com/sells-group/planfill-cli/internal/mapping"
)

// isInstructionLine reports whether an allowed-options line is reviewer
// guidance rather than a selectable answer. Instruction lines never
// appear in output values.
func isInstructionLine(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	if l == "" {
		return true
	}
	if strings.HasPrefix(l, "if y") && strings.Contains(l, "page") && strings.Contains(l, "seq") {
		return true
	}
	if strings.HasPrefix(l, "enter ") {
		return true
	}
	if strings.Contains(l, "this information will not be loaded") {
		return true
	}
	if strings.Contains(l, "if day is selected") || strings.Contains(l, "if month is selected") {
		return true
	}
	return false
}

// pickFromOptionsAllowed returns the first allowed-options line that is a
// real answer candidate.
func pickFromOptionsAllowed(options string) (string, bool) {
	for _, line := range mapping.Lines(options) {
		if !isInstructionLine(line) {
			return line, true
		}
	}
	return "", false
}

// lovFallback answers Yes/No shaped questions with the safe "No" before
// any table lookup; other rows answer from the list-of-values entry for
// their coordinate, preferring an explicit "None" option over the first.
func (e *Engine) lovFallback(req Request, yesNo bool) (string, bool) {
	if yesNo {
		return "No", true
	}
	opts := e.LOV.Options(req.Page, req.Seq)
	if len(opts) == 0 {
		return "", false
	}
	for _, o := range opts {
		if strings.EqualFold(strings.TrimSpace(o), "none") {
			return o, true
		}
	}
	return opts[0], true
}

// smartDefault fabricates a benign placeholder for rows nothing else could
// answer. Only used outside strict mode.
func smartDefault(req Request, yesNo bool) string {
	if yesNo {
		return "No"
	}
	p := strings.ToLower(req.Prompt)
	switch {
	case strings.Contains(p, "percent") || strings.Contains(p, "%"):
		return "0%"
	case strings.Contains(p, "amount") || strings.Contains(p, "dollar") || strings.Contains(p, "$"):
		return "0"
	case strings.Contains(p, "date"):
		return "01/01/1900"
	case strings.Contains(p, "email") || strings.Contains(p, "phone") || strings.Contains(p, "name"):
		return "N/A"
	}
	if line, ok := pickFromOptionsAllowed(req.OptionsAllowed); ok {
		if i := strings.Index(line, ","); i > 0 {
			return strings.TrimSpace(line[:i])
		}
		return line
	}
	return "None"
}
