package resolve

import (
	"regexp"
	"strings"
)

// Class tags a prompt with the resolution family it belongs to. Computed
// once per row and threaded through the rules instead of re-deriving it
// inside every branch.
type Class int

const (
	ClassGeneric Class = iota
	ClassYesNo
	ClassVestingSchedule
	ClassVestingApply
	ClassVestingDescribe
	ClassServiceRequirement
)

func (c Class) String() string {
	switch c {
	case ClassYesNo:
		return "yes_no"
	case ClassVestingSchedule:
		return "vesting_schedule"
	case ClassVestingApply:
		return "vesting_apply"
	case ClassVestingDescribe:
		return "vesting_describe"
	case ClassServiceRequirement:
		return "service_requirement"
	default:
		return "generic"
	}
}

// IsVestingSchedule reports whether the row selects a vesting schedule,
// including "which vesting schedule will apply" rows.
func (c Class) IsVestingSchedule() bool {
	return c == ClassVestingSchedule || c == ClassVestingApply
}

var yesNoLeadRe = regexp.MustCompile(`^(is|does|will|are|has|have)\b`)

// Classify assigns a prompt its resolution class. Vesting families take
// precedence over the Y/N shape: a vesting prompt is handled by the vesting
// rules even when its allowed options mention Y/N.
func Classify(prompt, optionsAllowed string) Class {
	p := strings.ToLower(strings.TrimSpace(prompt))

	if strings.HasPrefix(p, "please describe your vesting schedule") {
		return ClassVestingDescribe
	}
	if strings.Contains(p, "vesting schedule") && !strings.Contains(p, "describe") {
		if strings.HasPrefix(p, "which vesting schedule will apply") {
			return ClassVestingApply
		}
		return ClassVestingSchedule
	}
	if isServiceRequirementShaped(p, optionsAllowed) {
		return ClassServiceRequirement
	}
	if isYesNoShaped(prompt, optionsAllowed) {
		return ClassYesNo
	}
	return ClassGeneric
}

// isYesNoShaped is the Y/N heuristic: explicit "y/n" in the allowed options,
// or a question that opens with is/does/will/are/has/have.
func isYesNoShaped(prompt, optionsAllowed string) bool {
	if strings.Contains(strings.ToLower(optionsAllowed), "y/n") {
		return true
	}
	p := strings.ToLower(strings.TrimSpace(prompt))
	return strings.HasSuffix(p, "?") && yesNoLeadRe.MatchString(p)
}

func isServiceRequirementShaped(promptLower, optionsAllowed string) bool {
	if strings.Contains(promptLower, "service requirement for eligibility") {
		return true
	}
	oa := strings.ToLower(strings.TrimSpace(optionsAllowed))
	return strings.HasPrefix(oa, "if day is selected") && strings.Contains(oa, "if month is selected")
}
