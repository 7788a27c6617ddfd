package mapping

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/planfill-cli/internal/tabular"
)

// Coord addresses one questionnaire row.
type Coord struct {
	Page string
	Seq  string
}

// LOVTable maps a (page, seq) coordinate to its ordered list of allowed
// literal option strings.
type LOVTable map[Coord][]string

// Options returns the allowed literals for a coordinate, or nil.
func (t LOVTable) Options(page, seq string) []string {
	return t[Coord{Page: strings.TrimSpace(page), Seq: strings.TrimSpace(seq)}]
}

// LoadLOV parses the list-of-values sheet. Each row's last two cells are the
// (page, seq) coordinate; the remaining non-empty cells, in order, are the
// candidate options. A missing sheet yields an empty table: callers must
// tolerate "no LOV available".
func LoadLOV(path, sheet string) (LOVTable, error) {
	rows, err := tabular.ReadTable(path, tabular.Options{SheetName: sheet})
	if err != nil {
		if eris.Is(err, tabular.ErrSheetNotFound) {
			return LOVTable{}, nil
		}
		return nil, err
	}
	return buildLOV(rows), nil
}

func buildLOV(rows [][]string) LOVTable {
	lov := make(LOVTable)
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		page := strings.TrimSpace(r[len(r)-2])
		seq := strings.TrimSpace(r[len(r)-1])
		if page == "" || seq == "" {
			continue
		}
		var opts []string
		for _, c := range r[:len(r)-2] {
			if strings.TrimSpace(c) != "" {
				opts = append(opts, strings.TrimSpace(c))
			}
		}
		if len(opts) == 0 {
			continue
		}
		lov[Coord{Page: page, Seq: seq}] = opts
	}
	return lov
}
