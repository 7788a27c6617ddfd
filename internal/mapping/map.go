package mapping

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/planfill-cli/internal/tabular"
)

// ErrSchema is returned when a required column or sheet is missing from a
// source table. Schema failures are fatal for the batch.
var ErrSchema = eris.New("mapping: schema error")

// Required Map table headers, matched case-sensitively after trimming.
const (
	colPrompt = "Prompt"
	colQuick  = "Quick Text Data Point"
	colFields = "Proposed LinkName"
)

// Option is one mapping row under a prompt: a candidate label plus the field
// identifiers that realize it.
type Option struct {
	Quick    string
	Label    string // derived from Quick's text after the first comma; "" when absent
	FieldIDs []string
}

// Entry aggregates all mapping rows for one normalized prompt.
type Entry struct {
	Quick           string // first non-empty quick text across the prompt's rows
	Options         []Option
	LastFieldIDsCsv string // most recent raw field-id list (legacy path)
}

// FieldIDs returns the union of option field ids plus the raw csv list,
// preserving first-seen order.
func (e *Entry) FieldIDs() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(n string) {
		if n != "" && !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	for _, opt := range e.Options {
		for _, n := range opt.FieldIDs {
			add(n)
		}
	}
	for _, n := range SplitFieldIDs(e.LastFieldIDsCsv) {
		add(n)
	}
	return out
}

// Table maps normalized prompt text to its aggregated entry.
type Table map[string]*Entry

// Lookup returns the entry for a prompt, normalizing first.
func (t Table) Lookup(prompt string) *Entry {
	return t[Normalize(prompt)]
}

// LoadMap parses the curated Map table. Rows with a blank Prompt cell are
// continuation rows for the most recently seen prompt; a row contributes an
// Option only when its field-id list is non-empty.
func LoadMap(path string) (Table, error) {
	rows, err := tabular.ReadTable(path, tabular.Options{})
	if err != nil {
		return nil, err
	}
	return buildMap(rows)
}

func buildMap(rows [][]string) (Table, error) {
	if len(rows) == 0 {
		return Table{}, nil
	}

	header := rows[0]
	iPrompt, iQuick, iFields := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case colPrompt:
			iPrompt = i
		case colQuick:
			iQuick = i
		case colFields:
			iFields = i
		}
	}
	if iPrompt < 0 || iQuick < 0 || iFields < 0 {
		return nil, eris.Wrapf(ErrSchema, "map table header missing one of %q, %q, %q (got %v)",
			colPrompt, colQuick, colFields, header)
	}

	table := make(Table)
	current := ""
	for _, r := range rows[1:] {
		if rowEmpty(r) {
			continue
		}
		prompt := Normalize(cell(r, iPrompt))
		if prompt != "" {
			current = prompt
		} else if current == "" {
			continue
		}
		quick := strings.TrimSpace(cell(r, iQuick))
		fieldCsv := strings.TrimSpace(cell(r, iFields))

		entry := table[current]
		if entry == nil {
			entry = &Entry{}
			table[current] = entry
		}
		if fieldCsv != "" {
			entry.LastFieldIDsCsv = fieldCsv
		}
		if quick != "" && entry.Quick == "" {
			entry.Quick = quick
		}
		if fieldCsv != "" {
			entry.Options = append(entry.Options, Option{
				Quick:    quick,
				Label:    deriveLabel(quick),
				FieldIDs: SplitFieldIDs(fieldCsv),
			})
		}
	}
	return table, nil
}

// deriveLabel extracts an option label from quick text: the first line of the
// text after the first comma.
func deriveLabel(quick string) string {
	if quick == "" || !strings.Contains(quick, ",") {
		return ""
	}
	after := quick[strings.Index(quick, ",")+1:]
	lines := Lines(after)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

// SplitFieldIDs splits a comma-separated field-id cell into trimmed names.
func SplitFieldIDs(csv string) []string {
	var out []string
	for _, n := range strings.Split(csv, ",") {
		n = strings.Trim(strings.TrimSpace(n), `"`)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func cell(r []string, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

func rowEmpty(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
