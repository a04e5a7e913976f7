package converter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nconklindev/sheet2csv/internal/table"
)

const utf8BOM = "\ufeff"

func readCSVTable(filePath string, opts Options) (*table.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, filePath)
	}

	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}

	width := maxWidth(records)
	headers := uniqueHeaders(records[0], width)
	data := records[1:]

	cells := make([][]table.Value, width)
	for colIdx := range cells {
		col := make([]table.Value, len(data))
		for i, record := range data {
			if colIdx < len(record) && record[colIdx] != "" {
				col[i] = table.Text(record[colIdx])
			}
		}
		cells[colIdx] = col
	}

	classify := func(name string, _ []table.Value) table.Kind {
		if opts.isDateColumn(name) {
			return table.KindTemporal
		}
		return table.KindText
	}

	return buildTable(headers, cells, classify)
}

// WriteCSV writes the header line followed by one line per row. Missing cells
// are written as empty fields.
func WriteCSV(w io.Writer, t *table.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Headers()); err != nil {
		return err
	}

	record := make([]string, t.Width())
	for i := 0; i < t.Rows(); i++ {
		for j, v := range t.Row(i) {
			record[j] = v.String()
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
