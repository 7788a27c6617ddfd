// Package tabular reads rectangular string tables from XLSX workbooks and
// CSV files. Loaders downstream treat every source as a [][]string with a
// header row; this package hides which packaging format the strings came from.
package tabular

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrSheetNotFound is returned when a named worksheet is absent.
var ErrSheetNotFound = eris.New("tabular: sheet not found")

// Options configures table reading.
type Options struct {
	SheetName string // XLSX only; empty means first sheet
	TrimSpace bool   // trim each cell after parsing
}

// ReadTable reads an XLSX or CSV file into rows of strings, dispatching on
// the file extension. CSV sources ignore the SheetName option.
func ReadTable(path string, opts Options) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path, opts)
	case ".xlsx":
		return ReadSheet(path, opts)
	default:
		return nil, eris.Errorf("tabular: unsupported file type %q", filepath.Ext(path))
	}
}

func trimRow(cells []string) []string {
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}
