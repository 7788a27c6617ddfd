package resolve

import "strings"

type cellKey struct {
	page, seq, plan string
}

type pageKey struct {
	page, plan string
}

// Memo is the cross-row dependency store threaded through a single batch
// run. Rows are processed in document order; later rows' gate, vesting and
// eligibility logic read what earlier rows wrote. Values are never rolled
// back. Not safe for concurrent use across rows; per-plan state is keyed so
// plans never observe each other's entries.
type Memo struct {
	values map[cellKey]string

	// vesting bookkeeping
	vestChoice    map[pageKey]string // last schedule choice, apply rows included
	baseVest      map[pageKey]string // last non-apply schedule choice
	baseVestQuick map[pageKey]string // map quick text of that choice
	lastBasePage  map[string]string  // plan -> page of nearest prior base vesting row

	eligMethod map[pageKey]string
}

// NewMemo returns an empty memo for one batch run.
func NewMemo() *Memo {
	return &Memo{
		values:        make(map[cellKey]string),
		vestChoice:    make(map[pageKey]string),
		baseVest:      make(map[pageKey]string),
		baseVestQuick: make(map[pageKey]string),
		lastBasePage:  make(map[string]string),
		eligMethod:    make(map[pageKey]string),
	}
}

// SetValue records a row's final value for a plan. Empty string is a
// definite, non-blocking resolution.
func (m *Memo) SetValue(page, seq, plan, value string) {
	m.values[cellKey{page, seq, plan}] = strings.TrimSpace(value)
}

// Value returns the memoized value at a coordinate for a plan.
func (m *Memo) Value(page, seq, plan string) (string, bool) {
	v, ok := m.values[cellKey{page, seq, plan}]
	return v, ok
}

func (m *Memo) setVestChoice(page, plan, choice string) {
	m.vestChoice[pageKey{page, plan}] = choice
}

func (m *Memo) VestChoice(page, plan string) string {
	return m.vestChoice[pageKey{page, plan}]
}

// SetBaseVest records a base (non-apply) vesting choice for a page and marks
// the page as the nearest prior base row for the plan. Exported for the
// driver's vesting pre-pass.
func (m *Memo) SetBaseVest(page, plan, choice, quick string) {
	m.baseVest[pageKey{page, plan}] = choice
	m.baseVestQuick[pageKey{page, plan}] = quick
}

func (m *Memo) markBaseRow(page, plan string) {
	m.lastBasePage[plan] = page
}

func (m *Memo) BaseVest(page, plan string) (choice, quick string) {
	return m.baseVest[pageKey{page, plan}], m.baseVestQuick[pageKey{page, plan}]
}

func (m *Memo) nearestBasePage(plan string) string {
	return m.lastBasePage[plan]
}

func (m *Memo) setEligMethod(page, plan, method string) {
	m.eligMethod[pageKey{page, plan}] = method
}

func (m *Memo) EligMethod(page, plan string) string {
	return m.eligMethod[pageKey{page, plan}]
}
