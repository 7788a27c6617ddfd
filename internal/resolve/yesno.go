package resolve

import "strings"

// enforceYesNo coerces the value of a Yes/No shaped row into exactly
// "Yes" or "No". In strict mode an uncoercible value comes back
// unresolved for review; otherwise it defaults to "No".
func (e *Engine) enforceYesNo(req Request, value string, resolved bool) (string, bool) {
	if resolved {
		switch strings.TrimSpace(value) {
		case "Yes", "No":
			return value, true
		}
	}
	if req.Entry != nil {
		if v, ok := yesNoPairScan(req.Entry, req.Flags); ok {
			return v, true
		}
		for _, n := range req.Entry.FieldIDs() {
			if req.Flags.IsSelected(n) {
				return "Yes", true
			}
		}
	}
	if e.Strict {
		return "", false
	}
	return "No", true
}
