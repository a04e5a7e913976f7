package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/sheet2csv/internal/normalize"
	"github.com/nconklindev/sheet2csv/internal/table"
	"github.com/nconklindev/sheet2csv/internal/types"
)

const RowDetectionLimit = 10

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("empty file")
	ErrNoHeader        = errors.New("could not find header row")
)

// SupportedExtensions lists the input types ReadFile understands.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".csv"}

// Options controls how a file is read into a table.
type Options struct {
	// DateColumns names columns (case-insensitive) that are always read as
	// dates, whatever their cell formatting.
	DateColumns []string
}

func (o Options) isDateColumn(name string) bool {
	name = strings.TrimSpace(name)
	for _, c := range o.DateColumns {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return true
		}
	}
	return false
}

// ReadFile reads the first sheet of a spreadsheet (or a CSV file) into a
// table with per-column kinds assigned.
func ReadFile(filePath string, opts Options) (*table.Table, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".csv":
		return readCSVTable(filePath, opts)
	case ".xlsx", ".xlsm":
		return readXLSXTable(filePath, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

// Convert reads inputFile, normalizes it once and writes it as CSV to
// outputFile. The output is written to a temporary file first and renamed
// into place, so a failed conversion never leaves a partial CSV behind.
func Convert(inputFile, outputFile string, n *normalize.Normalizer, opts Options) (*types.ConversionResult, error) {
	if n == nil {
		n = normalize.New()
	}

	tbl, err := ReadFile(inputFile, opts)
	if err != nil {
		return nil, err
	}

	normalized, rep, err := n.Normalize(tbl)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	if err := writeFile(outputFile, normalized); err != nil {
		return nil, err
	}

	var temporal []string
	for _, c := range normalized.Columns() {
		if c.Kind == table.KindTemporal {
			temporal = append(temporal, c.Name)
		}
	}

	return &types.ConversionResult{
		InputFile:       inputFile,
		OutputFile:      outputFile,
		Columns:         normalized.Headers(),
		TemporalColumns: temporal,
		RowsProcessed:   normalized.Rows(),
		CellMisses:      rep.Misses,
	}, nil
}

func writeFile(outputFile string, t *table.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(outputFile), ".sheet2csv-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	// CreateTemp opens with 0600; outputs are ordinary shared files.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), outputFile)
}

// buildTable turns a header row and data rows into kinded columns. classify
// decides the kind of each column from its cells.
func buildTable(header []string, cells [][]table.Value, classify func(name string, cells []table.Value) table.Kind) (*table.Table, error) {
	cols := make([]table.Column, len(header))
	for i, name := range header {
		cols[i] = table.Column{Name: name, Kind: classify(name, cells[i]), Cells: cells[i]}
	}
	return table.New(cols...)
}

// uniqueHeaders pads the header to width, names empty headers "Unnamed: i"
// and suffixes repeated names with ".1", ".2", ...
func uniqueHeaders(raw []string, width int) []string {
	out := make([]string, width)
	seen := make(map[string]int, width)

	for i := 0; i < width; i++ {
		name := ""
		if i < len(raw) {
			name = raw[i]
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		out[i] = name
	}

	return out
}

// findHeaderRow returns the first row with at least one non-empty cell,
// looking at no more than 2*RowDetectionLimit rows.
func findHeaderRow(rows [][]string) int {
	searchLimit := len(rows)
	if searchLimit > RowDetectionLimit*2 {
		searchLimit = RowDetectionLimit * 2
	}

	for i := 0; i < searchLimit; i++ {
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) != "" {
				return i
			}
		}
	}

	return -1
}

func maxWidth(rows [][]string) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}
