// Package resolve turns a questionnaire row plus a plan document's field
// flags into an answer value. Resolution runs through ordered tiers: the
// map-driven strict tier, Yes/No enforcement, the list-of-values table,
// the allowed-options text, gated numeric extraction, and the cross-row
// propagation rules for vesting descriptions and eligibility methods.
package resolve

import (
	"strings"

	"github.com/sells-group/planfill-cli/internal/mapping"
	"github.com/sells-group/planfill-cli/internal/planxml"
)

// Engine resolves questionnaire rows against one mapping table and LOV
// table. It is stateless across rows; cross-row state lives in Memo.
type Engine struct {
	Map    mapping.Table
	LOV    mapping.LOVTable
	Rules  *Rules
	Strict bool
}

func New(m mapping.Table, lov mapping.LOVTable, rules *Rules, strict bool) *Engine {
	return &Engine{Map: m, LOV: lov, Rules: rules, Strict: strict}
}

// Request is one questionnaire row paired with one plan's extracted flags.
type Request struct {
	Prompt         string
	OptionsAllowed string
	Page           string
	Seq            string
	PlanID         string
	Entry          *mapping.Entry
	Flags          planxml.FlagSet
}

// Source records which tier produced a value.
type Source int

const (
	SourceNone Source = iota
	SourceStrict
	SourceLOV
	SourceOptions
	SourceInferred
	SourceDefault
	SourceOverlay
)

func (s Source) String() string {
	switch s {
	case SourceStrict:
		return "strict"
	case SourceLOV:
		return "lov"
	case SourceOptions:
		return "options"
	case SourceInferred:
		return "inferred"
	case SourceDefault:
		return "default"
	case SourceOverlay:
		return "overlay"
	default:
		return "none"
	}
}

type Result struct {
	Value    string
	Resolved bool
	Source   Source
}

// Lookup finds the map entry for a prompt, if any.
func (e *Engine) Lookup(prompt string) *mapping.Entry {
	return e.Map.Lookup(prompt)
}

// StrictValue runs only the map-driven tier, with no fallbacks and no memo.
// Used by the QA audit to show what the curated map alone can answer.
func (e *Engine) StrictValue(req Request) (string, bool) {
	return e.strictResolve(req, Classify(req.Prompt, req.OptionsAllowed))
}

// Resolve answers one row. Rows of a plan must be resolved in template
// order: gated numeric extraction and the vesting and eligibility
// propagation rules read earlier rows' outcomes from memo. The caller
// records the final cell value (after any overlay) with memo.SetValue.
func (e *Engine) Resolve(req Request, memo *Memo) Result {
	class := Classify(req.Prompt, req.OptionsAllowed)
	yn := class == ClassYesNo

	value, resolved := e.strictResolve(req, class)
	source := SourceNone
	if resolved {
		source = SourceStrict
	}

	if yn {
		value, resolved = e.enforceYesNo(req, value, resolved)
		if resolved {
			source = SourceStrict
		} else {
			source = SourceNone
		}
	}

	if !resolved {
		if v, ok := e.lovFallback(req, yn); ok {
			value, resolved, source = v, true, SourceLOV
		}
	}

	// Free-form rows may still take the first real line of the allowed
	// options. Yes/No rows never do: that would leak "Y/N" into a cell
	// that must hold exactly Yes or No.
	if !resolved && !yn {
		if v, ok := pickFromOptionsAllowed(req.OptionsAllowed); ok {
			value, resolved, source = v, true, SourceOptions
		}
	}

	// Gated numeric rows: when the referenced earlier cell resolved to
	// yes, a numeric answer from the flags overwrites an empty or
	// instruction-leaked value.
	if page, seq, ok := parseGateRef(req.OptionsAllowed); ok {
		if gv, found := memo.Value(page, seq, req.PlanID); found && strings.EqualFold(strings.TrimSpace(gv), "yes") {
			if strings.TrimSpace(value) == "" || looksLeakedInstruction(value) {
				if n := e.extractNumericForPrompt(req.Prompt, req.Flags); n != "" {
					value, resolved, source = n, true, SourceInferred
				}
			}
		}
	}

	if class.IsVestingSchedule() {
		var quick string
		if req.Entry != nil {
			quick = req.Entry.Quick
		}
		// A schedule that came out as "other" with no supporting text is
		// coerced to Immediate when the money type is fully vested.
		if resolved &&
			(strings.TrimSpace(value) == "" || strings.Contains(strings.ToLower(value), "other")) &&
			e.vestingOtherText(req.Flags) == "" && e.immediateForMoneyType(req.Flags, quick) {
			value = "Immediate"
			source = SourceInferred
		}
		// Recorded even when unresolved: a later describe row on this page
		// must see this row's empty choice, not a stale earlier "Other".
		memo.setVestChoice(req.Page, req.PlanID, value)
		if resolved && class != ClassVestingApply {
			memo.SetBaseVest(req.Page, req.PlanID, value, quick)
			memo.markBaseRow(req.Page, req.PlanID)
		}
	}

	if class == ClassVestingDescribe {
		value = e.resolveVestingDescribe(req, memo)
		resolved = true
		source = SourceInferred
	}

	p := strings.ToLower(req.Prompt)
	if resolved && strings.Contains(p, "eligibility computation method") {
		memo.setEligMethod(req.Page, req.PlanID, value)
	}
	if resolved && strings.TrimSpace(value) != "" &&
		strings.Contains(p, "minimum service hours required to become eligible") {
		if m := memo.EligMethod(req.Page, req.PlanID); strings.Contains(strings.ToLower(m), "elapsed") {
			value = "Elapsed"
		}
	}

	if !resolved && !e.Strict {
		value, resolved, source = smartDefault(req, yn), true, SourceDefault
	}

	if !resolved {
		return Result{}
	}
	return Result{Value: value, Resolved: true, Source: source}
}
