package driver

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/planfill-cli/internal/mapping"
	"github.com/sells-group/planfill-cli/internal/tabular"
)

type overlayKey struct {
	page, seq, prompt string
}

// Overlay holds manually curated ground-truth cells, keyed by row coordinate
// and plan client id. A present empty cell is a deliberate blank and still
// overrides the computed value.
type Overlay struct {
	cells map[overlayKey]map[string]string
}

// Plan columns are headed "Anything [clientID]".
var overlayColRe = regexp.MustCompile(`\[([^\[\]]+)\]\s*$`)

// LoadOverlay reads a ground-truth CSV. Requires a PROMPT column and at
// least one "[clientID]"-suffixed plan column.
func LoadOverlay(path string) (*Overlay, error) {
	rows, err := tabular.ReadTable(path, tabular.Options{})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Wrapf(mapping.ErrSchema, "overlay %s is empty", path)
	}

	header := rows[0]
	prompt, page, seq := -1, -1, -1
	planCols := make(map[int]string)
	for i, c := range header {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "prompt":
			prompt = i
		case "page":
			page = i
		case "seq":
			seq = i
		default:
			if m := overlayColRe.FindStringSubmatch(strings.TrimSpace(c)); m != nil {
				planCols[i] = strings.TrimSpace(m[1])
			}
		}
	}
	if prompt < 0 {
		return nil, eris.Wrapf(mapping.ErrSchema, "no PROMPT column in overlay %s", path)
	}
	if len(planCols) == 0 {
		return nil, eris.Wrapf(mapping.ErrSchema, "no plan columns in overlay %s", path)
	}

	o := &Overlay{cells: make(map[overlayKey]map[string]string)}
	for _, r := range rows[1:] {
		key := overlayKey{
			page:   strings.TrimSpace(cell(r, page)),
			seq:    strings.TrimSpace(cell(r, seq)),
			prompt: mapping.Normalize(cell(r, prompt)),
		}
		if key.prompt == "" && key.page == "" && key.seq == "" {
			continue
		}
		byPlan := o.cells[key]
		if byPlan == nil {
			byPlan = make(map[string]string)
			o.cells[key] = byPlan
		}
		for i, id := range planCols {
			byPlan[id] = cell(r, i)
		}
	}
	return o, nil
}

// Lookup returns the overlay cell for a row and plan, when one exists.
func (o *Overlay) Lookup(page, seq, prompt, planID string) (string, bool) {
	if o == nil {
		return "", false
	}
	key := overlayKey{
		page:   strings.TrimSpace(page),
		seq:    strings.TrimSpace(seq),
		prompt: mapping.Normalize(prompt),
	}
	byPlan, ok := o.cells[key]
	if !ok {
		return "", false
	}
	v, ok := byPlan[planID]
	return v, ok
}
