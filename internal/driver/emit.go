package driver

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Table is the assembled result. Header is
// Page, Seq, PROMPT, Quick Text Data Point, Options Allowed, one column per
// plan, Comments. The first data row carries each plan's PensionPal ID.
type Table struct {
	Header []string
	Rows   [][]string
}

func buildTable(tmpl *Template, plans []Plan, values [][]string) *Table {
	header := []string{"Page", "Seq", "PROMPT", "Quick Text Data Point", "Options Allowed"}
	for _, p := range plans {
		header = append(header, p.Label)
	}
	header = append(header, "Comments")

	t := &Table{Header: header}

	idRow := []string{"", "", "PensionPal ID", "", ""}
	for _, p := range plans {
		idRow = append(idRow, p.ID)
	}
	idRow = append(idRow, "")
	t.Rows = append(t.Rows, idRow)

	for i, row := range tmpl.Rows {
		out := []string{row.Page, row.Seq, row.Prompt, row.Quick, row.OptionsAllowed}
		out = append(out, values[i]...)
		out = append(out, "")
		t.Rows = append(t.Rows, out)
	}
	return t
}

// WriteCSV emits the table as UTF-8, comma-delimited CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "driver: write csv header")
	}
	for _, r := range t.Rows {
		if err := cw.Write(r); err != nil {
			return eris.Wrap(err, "driver: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "driver: flush csv")
}

// WriteCSVFile writes the table to a file path.
func (t *Table) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "driver: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := t.WriteCSV(f); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "driver: close %s", path)
}

// Records returns the table as one JSON-ready object per row, keyed by
// header. Duplicate headers keep the last value.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if i < len(r) {
				rec[h] = r[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// WriteJSON emits the table as a JSON array of row objects.
func (t *Table) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(t.Records()), "driver: write json")
}
