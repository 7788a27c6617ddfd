package tabular

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadSheet reads one worksheet of an XLSX workbook and returns all rows as
// string slices. An empty SheetName selects the first sheet.
func ReadSheet(path string, opts Options) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open workbook %s", path)
	}

	sheet, err := getSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		cells := rowToStrings(row)
		if opts.TrimSpace {
			cells = trimRow(cells)
		}
		rows = append(rows, cells)
	}

	return rows, nil
}

// SheetExists reports whether the workbook contains a sheet with the given name.
func SheetExists(path, name string) bool {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return false
	}
	_, ok := f.Sheet[name]
	return ok
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Wrapf(ErrSheetNotFound, "%q", name)
		}
		return sheet, nil
	}

	if len(f.Sheets) == 0 {
		return nil, eris.New("tabular: workbook has no sheets")
	}

	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
