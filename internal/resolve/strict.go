package resolve

import (
	"regexp"
	"strings"

	"github.com/sells-group/planfill-cli/internal/mapping"
	"github.com/sells-group/planfill-cli/internal/planxml"
)

// strictResolve is the map-driven resolution tier. It returns the value and
// whether any rule yielded one; an empty string with resolved=true is a
// definite blank that suppresses later fallback tiers.
func (e *Engine) strictResolve(req Request, class Class) (string, bool) {
	entry := req.Entry

	// Vesting-schedule short-circuit: derive a canonical label straight
	// from the vesting indicator tables, expanding to the verbose form
	// when one exists, else to a matching allowed-options line.
	if class.IsVestingSchedule() {
		var quick string
		if entry != nil {
			quick = entry.Quick
		}
		if label := e.deriveVestingLabel(req.Flags, quick); label != "" {
			if canon := e.Rules.CanonicalVesting(label); canon != "" {
				return canon, true
			}
			if exp := expandVestingFromOptions(label, req.OptionsAllowed); exp != "" {
				return exp, true
			}
			return label, true
		}
	}

	// Service-requirement rows resolve to a bare number or to a definite
	// blank; the allowed-options blurb must never leak into the cell.
	if class == ClassServiceRequirement {
		return e.extractServiceRequirement(req.Flags), true
	}

	// Description rows are fully governed by the propagation rule, which
	// runs after the fallback tiers; claim a definite blank here so those
	// tiers stay quiet.
	if class == ClassVestingDescribe {
		return "", true
	}

	if entry == nil {
		return "", false
	}

	yn := isYesNoShaped(req.Prompt, req.OptionsAllowed)

	if v, resolved, matched := e.resolveFromOptions(req, yn); matched {
		return v, resolved
	}

	if yn {
		if v, ok := yesNoPairScan(entry, req.Flags); ok {
			return v, true
		}
	}

	if v, ok := e.heuristicFromOptions(req); ok {
		return v, true
	}

	// Identifier special cases on the raw csv list.
	for _, n := range mapping.SplitFieldIDs(entry.LastFieldIDsCsv) {
		if req.Flags.IsSelected(n) {
			if lab, ok := e.Rules.Labels[n]; ok {
				return lab, true
			}
		}
	}

	return e.legacyResolve(req, yn)
}

// resolveFromOptions walks the map entry's option rows. The third return
// reports whether any option row matched the flags at all: a matched option
// that yields no presentable label is a final unresolved outcome, not an
// invitation to keep scanning.
func (e *Engine) resolveFromOptions(req Request, yn bool) (value string, resolved, matched bool) {
	entry := req.Entry
	flags := req.Flags

	// Concrete free-text values win over selection-derived labels.
	for _, opt := range entry.Options {
		for _, n := range opt.FieldIDs {
			if t := flags.Text(n); t != "" {
				return snapToAllowed(t, req.OptionsAllowed), true, true
			}
		}
	}

	for _, opt := range entry.Options {
		chosen := ""
		for _, n := range opt.FieldIDs {
			if flags.IsSelected(n) {
				chosen = n
				break
			}
		}
		if chosen == "" {
			continue
		}

		if opt.Label != "" {
			return opt.Label, true, true
		}
		if t := flags.Text(chosen); t != "" {
			return t, true, true
		}
		if strings.HasSuffix(chosen, "Main") {
			if t := flags.Text(strings.TrimSuffix(chosen, "Main")); t != "" {
				return t, true, true
			}
		}
		if v, ok := e.specialLabel(chosen, req.Prompt); ok {
			return v, true, true
		}
		if q := firstQuickLine(opt.Quick); q != "" {
			return q, true, true
		}
		if yn {
			return yesNoFromName(chosen), true, true
		}
		// Never leak the internal field identifier to the sheet.
		return "", false, true
	}

	return "", false, false
}

// specialLabel maps identifiers with no usable label to a canonical one.
// Two cases depend on the prompt's phrasing and stay in code; the
// unconditional ones live in the rules table.
func (e *Engine) specialLabel(chosen, prompt string) (string, bool) {
	if lab, ok := e.Rules.Labels[chosen]; ok {
		return lab, true
	}
	if chosen == "ERAllocReqDis" && strings.HasPrefix(prompt, "Eligible Money Types available for Disability") {
		return "All", true
	}
	if chosen == "EntryDateSameContrTypeYes" {
		if strings.Contains(prompt, "Prospective or Retroactive entry date") {
			return "Next following", true
		}
		if strings.Contains(prompt, "All others except immediate") || strings.Contains(prompt, "Next following") {
			return "Coinciding with or next following", true
		}
	}
	return "", false
}

// yesNoPairScan infers Yes/No from Yes*/No* identifier pairs: when a mapped
// "YesX" field is unselected, its "NoX" counterpart decides, and vice versa.
func yesNoPairScan(entry *mapping.Entry, flags planxml.FlagSet) (string, bool) {
	for _, opt := range entry.Options {
		for _, n := range opt.FieldIDs {
			if strings.HasPrefix(n, "Yes") {
				if flags.IsSelected(n) {
					return "Yes", true
				}
				if flags.IsSelected("No" + n[3:]) {
					return "No", true
				}
			}
			if strings.HasPrefix(n, "No") {
				if flags.IsSelected(n) {
					return "No", true
				}
				if flags.IsSelected("Yes" + n[2:]) {
					return "Yes", true
				}
			}
		}
	}
	return "", false
}

// legacyResolve is the raw-csv fallback path used when the aggregated
// option rows produced nothing.
func (e *Engine) legacyResolve(req Request, yn bool) (string, bool) {
	entry := req.Entry
	flags := req.Flags
	names := mapping.SplitFieldIDs(entry.LastFieldIDsCsv)
	if len(names) == 0 {
		return "", false
	}

	if len(names) == 1 {
		n := names[0]
		lf, ok := flags[n]
		if !ok {
			return "", false
		}
		if yn {
			if lf.Selected {
				return "Yes", true
			}
			return "No", true
		}
		if t := e.relatedText(n, flags); t != "" {
			return t, true
		}
		nl := strings.ToLower(n)
		if strings.HasPrefix(nl, "yes") {
			if lf.Selected {
				return "Yes", true
			}
			return "No", true
		}
		if strings.HasPrefix(nl, "no") {
			if lf.Selected {
				return "No", true
			}
			return "Yes", true
		}
		return "", false
	}

	chosen := ""
	for _, n := range names {
		if flags.IsSelected(n) {
			chosen = n
			break
		}
	}
	if chosen == "" {
		return "", false
	}

	if yn {
		return yesNoFromName(chosen), true
	}
	if t := e.relatedText(chosen, flags); t != "" {
		return t, true
	}
	// Friendly label from "..., Label" quick text.
	if q := entry.Quick; strings.Contains(q, ",") {
		if lab := strings.TrimSpace(q[strings.LastIndex(q, ",")+1:]); lab != "" {
			return lab, true
		}
	}
	return "", false
}

// relatedText finds the free text answering for a field: its own text, its
// "Main"-stripped base counterpart, then known typed-suffix variants.
func (e *Engine) relatedText(name string, flags planxml.FlagSet) string {
	if t := flags.Text(name); t != "" {
		return t
	}
	if strings.HasSuffix(name, "Main") {
		if t := flags.Text(strings.TrimSuffix(name, "Main")); t != "" {
			return t
		}
	}
	for _, suf := range e.Rules.TextSuffixes {
		if t := flags.Text(name + suf); t != "" {
			return t
		}
	}
	return ""
}

func yesNoFromName(name string) string {
	nl := strings.ToLower(name)
	if strings.Contains(nl, "yes") {
		return "Yes"
	}
	if strings.Contains(nl, "no") {
		return "No"
	}
	// A selection exists but the name is unclassifiable.
	return "Yes"
}

func firstQuickLine(quick string) string {
	lines := mapping.Lines(quick)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

// snapToAllowed replaces a raw field text with the allowed-options literal
// carrying the same numeral, so "100%" lands as "One Hundred (100)" when
// that is the literal the template accepts. Returns the text unchanged when
// no literal line matches.
func snapToAllowed(text, optionsAllowed string) string {
	lines := mapping.Lines(optionsAllowed)
	if len(lines) == 0 {
		return text
	}
	for _, line := range lines {
		if strings.EqualFold(line, strings.TrimSpace(text)) {
			return line
		}
	}
	num := firstNumeral(text)
	if num == "" {
		return text
	}
	boundary := regexp.MustCompile(`(^|\D)` + regexp.QuoteMeta(num) + `(\D|$)`)
	for _, line := range lines {
		if isInstructionLine(line) {
			continue
		}
		if boundary.MatchString(line) {
			return line
		}
	}
	return text
}
