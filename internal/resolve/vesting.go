package resolve

import (
	"regexp"
	"strings"

	"github.com/sells-group/planfill-cli/internal/mapping"
	"github.com/sells-group/planfill-cli/internal/planxml"
)

// deriveVestingLabel maps selected vesting indicators to a canonical short
// label. Graded schedules are checked first, then cliff, then the
// money-type-aware immediate indicators; the map entry's quick text decides
// which money type's immediate indicators apply.
func (e *Engine) deriveVestingLabel(flags planxml.FlagSet, quick string) string {
	for _, fl := range e.Rules.Vesting.Graded {
		if flags.IsSelected(fl.Field) {
			return fl.Label
		}
	}
	for _, fl := range e.Rules.Vesting.Cliff {
		if flags.IsSelected(fl.Field) {
			return fl.Label
		}
	}

	qt := strings.ToLower(quick)
	if strings.Contains(qt, "match") {
		for _, f := range e.Rules.Vesting.Immediate.Match {
			if flags.IsSelected(f) {
				return "Immediate"
			}
		}
	}
	if containsAny(qt, "non elective", "non-elective", "profit") {
		for _, f := range e.Rules.Vesting.Immediate.NonElective {
			if flags.IsSelected(f) {
				return "Immediate"
			}
		}
	}
	// Safe Harbor / QACA money types are normally fully vested.
	for _, f := range e.Rules.Vesting.Immediate.SafeHarbor {
		if flags.IsSelected(f) {
			return "Immediate"
		}
	}
	return ""
}

// immediateForMoneyType reports whether the flags carry an immediate-vesting
// indicator applicable to the money type named by the quick text. Used to
// coerce an "Other" schedule choice to "Immediate".
func (e *Engine) immediateForMoneyType(flags planxml.FlagSet, quick string) bool {
	qt := strings.ToLower(quick)
	if strings.Contains(qt, "match") {
		for _, f := range e.Rules.Vesting.Immediate.Match {
			if flags.IsSelected(f) {
				return true
			}
		}
	}
	if containsAny(qt, "non elective", "non-elective", "profit") {
		for _, f := range e.Rules.Vesting.Immediate.NonElective {
			if flags.IsSelected(f) {
				return true
			}
		}
	}
	if containsAny(qt, "safe harbor", "safeharbor", "qaca") {
		for _, f := range e.Rules.Vesting.Immediate.SafeHarbor {
			if flags.IsSelected(f) {
				return true
			}
		}
	}
	return false
}

// expandVestingFromOptions finds a full literal line in the allowed-options
// text that starts with the short label (after normalizing spaces), handling
// the known synonym spellings.
func expandVestingFromOptions(short, optionsAllowed string) string {
	if short == "" || optionsAllowed == "" {
		return ""
	}
	s := squash(short)
	prefixes := map[string]bool{s: true}
	if s == "cliff2" || s == "cliff3" {
		prefixes[strings.Replace(s, "cliff", "cliff ", 1)] = true
	}
	if s == "1-20" {
		prefixes["20/yr"] = true
	}
	if s == "1yr/50" || s == "1yr50" || s == "1=50" {
		prefixes["1yr/50"] = true
		prefixes["1 yr/50"] = true
		prefixes["1yr50"] = true
	}

	for _, line := range mapping.Lines(optionsAllowed) {
		cmp := strings.ReplaceAll(strings.ToLower(line), " ", "")
		for pref := range prefixes {
			if strings.HasPrefix(cmp, pref) {
				return line
			}
		}
	}
	return ""
}

// vestingOtherText pulls explanatory free text for an "Other" schedule:
// exact holder fields first, then any vesting field whose name also contains
// "Other", then any vesting field with text.
func (e *Engine) vestingOtherText(flags planxml.FlagSet) string {
	for _, f := range e.Rules.Vesting.OtherTextFields {
		if t := flags.Text(f); t != "" {
			return t
		}
	}
	for name := range flags {
		if isVestingField(name) && strings.Contains(name, "Other") {
			if t := flags.Text(name); t != "" {
				return t
			}
		}
	}
	for name := range flags {
		if isVestingField(name) {
			if t := flags.Text(name); t != "" {
				return t
			}
		}
	}
	return ""
}

func isVestingField(name string) bool {
	return strings.Contains(name, "Vest") || strings.Contains(name, "Vesting")
}

var pageSeqRefRe = regexp.MustCompile(`(?i)page\s+(\d+)\s+seq\s+(\d+)`)

// resolveVestingDescribe implements the description-propagation rule: the
// row's value depends on the most recently resolved schedule choice for the
// same plan. Anything but an "Other" choice forces an empty description.
func (e *Engine) resolveVestingDescribe(req Request, memo *Memo) string {
	prev := strings.ToLower(strings.TrimSpace(memo.VestChoice(req.Page, req.PlanID)))
	if prev != "other" && !strings.HasPrefix(prev, "other ") {
		return ""
	}

	if txt := e.vestingOtherText(req.Flags); txt != "" {
		return txt
	}

	// No free text: fall back to the base schedule choice, preferring the
	// page referenced by the map quick text ("If 'Other' is selected in
	// page 6050 seq 10").
	var quick string
	if req.Entry != nil {
		quick = req.Entry.Quick
	}
	base := ""
	if m := pageSeqRefRe.FindStringSubmatch(quick); m != nil {
		base, _ = memo.BaseVest(m[1], req.PlanID)
	}
	var baseQuick string
	if base == "" {
		base, baseQuick = memo.BaseVest(req.Page, req.PlanID)
	} else {
		_, baseQuick = memo.BaseVest(req.Page, req.PlanID)
	}
	if base == "" || strings.EqualFold(base, "other") {
		if e.immediateForMoneyType(req.Flags, baseQuick) {
			base = "Immediate"
		}
	}
	if base == "" {
		// Nearest prior base vesting row, skipping apply rows; the driver
		// walks rows in order so the memo already knows the page.
		if page := memo.nearestBasePage(req.PlanID); page != "" {
			b, q := memo.BaseVest(page, req.PlanID)
			if b == "" || strings.EqualFold(b, "other") {
				if e.immediateForMoneyType(req.Flags, q) {
					b = "Immediate"
				}
			}
			base = b
		}
	}
	return strings.TrimSpace(base)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
