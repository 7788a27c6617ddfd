package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV reads a CSV file into rows of strings. Rows may have variable
// field counts; a UTF-8 BOM on the first cell is stripped.
func ReadCSV(path string, opts Options) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	return parseCSV(f, opts)
}

func parseCSV(r io.Reader, opts Options) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var rows [][]string
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "tabular: read csv row")
		}
		if first {
			first = false
			if len(record) > 0 {
				record[0] = strings.TrimPrefix(record[0], "\uFEFF")
			}
		}
		if opts.TrimSpace {
			record = trimRow(record)
		}
		rows = append(rows, record)
	}

	return rows, nil
}
