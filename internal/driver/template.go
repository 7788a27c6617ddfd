package driver

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/planfill-cli/internal/mapping"
	"github.com/sells-group/planfill-cli/internal/tabular"
)

// ErrSourceNotFound is returned when a required input file is missing.
// Fatal for the batch.
var ErrSourceNotFound = eris.New("driver: source not found")

// TemplateRow is one questionnaire row in document order.
type TemplateRow struct {
	Page           string
	Seq            string
	Prompt         string
	Quick          string
	OptionsAllowed string
}

// Template is the loaded questionnaire.
type Template struct {
	Rows []TemplateRow
}

// LoadTemplate reads the questionnaire table. A PROMPT column is required;
// Page, Seq, Quick Text Data Point and Options Allowed are optional.
func LoadTemplate(path, sheet string) (*Template, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(ErrSourceNotFound, "template %s", path)
	}
	rows, err := tabular.ReadTable(path, tabular.Options{SheetName: sheet})
	if err != nil {
		return nil, err
	}
	return buildTemplate(rows, path)
}

func buildTemplate(rows [][]string, path string) (*Template, error) {
	headerIdx, cols := findHeader(rows)
	if headerIdx < 0 {
		return nil, eris.Wrapf(mapping.ErrSchema, "no PROMPT column in %s", path)
	}

	t := &Template{}
	for _, r := range rows[headerIdx+1:] {
		row := TemplateRow{
			Page:           cell(r, cols.page),
			Seq:            cell(r, cols.seq),
			Prompt:         strings.TrimSpace(cell(r, cols.prompt)),
			Quick:          cell(r, cols.quick),
			OptionsAllowed: cell(r, cols.options),
		}
		if row.Prompt == "" && row.Page == "" && row.Seq == "" {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

type templateCols struct {
	prompt, page, seq, quick, options int
}

// findHeader locates the header row by its PROMPT cell, exact match first,
// then case-insensitive.
func findHeader(rows [][]string) (int, templateCols) {
	idx := headerScan(rows, func(c string) bool { return strings.TrimSpace(c) == "PROMPT" })
	if idx < 0 {
		idx = headerScan(rows, func(c string) bool {
			return strings.EqualFold(strings.TrimSpace(c), "prompt")
		})
	}
	if idx < 0 {
		return -1, templateCols{}
	}

	cols := templateCols{prompt: -1, page: -1, seq: -1, quick: -1, options: -1}
	for i, c := range rows[idx] {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "prompt":
			if cols.prompt < 0 {
				cols.prompt = i
			}
		case "page":
			cols.page = i
		case "seq":
			cols.seq = i
		case "quick text data point":
			cols.quick = i
		case "options allowed":
			cols.options = i
		}
	}
	return idx, cols
}

func headerScan(rows [][]string, match func(string) bool) int {
	for i, r := range rows {
		for _, c := range r {
			if match(c) {
				return i
			}
		}
	}
	return -1
}

func cell(r []string, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}
