package converter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nconklindev/sheet2csv/internal/table"

	"github.com/xuri/excelize/v2"
)

// numFmtKind says how a number format renders a serial value.
type numFmtKind int

const (
	fmtPlain numFmtKind = iota
	fmtDate
	fmtClock // time of day or elapsed time, no calendar part
)

// Built-in number format IDs that render a serial number as a date or a clock.
var builtinNumFmts = map[int]numFmtKind{
	14: fmtDate, 15: fmtDate, 16: fmtDate, 17: fmtDate, 22: fmtDate,
	27: fmtDate, 28: fmtDate, 29: fmtDate, 30: fmtDate, 31: fmtDate,
	32: fmtDate, 33: fmtDate, 34: fmtDate, 35: fmtDate, 36: fmtDate,
	50: fmtDate, 51: fmtDate, 52: fmtDate, 53: fmtDate, 54: fmtDate,
	55: fmtDate, 56: fmtDate, 57: fmtDate, 58: fmtDate,
	18: fmtClock, 19: fmtClock, 20: fmtClock, 21: fmtClock,
	45: fmtClock, 46: fmtClock, 47: fmtClock,
}

var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type xlsxSheet struct {
	f        *excelize.File
	name     string
	date1904 bool
	numFmts  map[int]numFmtKind // style index -> format kind
}

func readXLSXTable(filePath string, opts Options) (*table.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, filePath)
	}

	headerRowIdx := findHeaderRow(rows)
	if headerRowIdx == -1 {
		return nil, fmt.Errorf("%w: %s", ErrNoHeader, filePath)
	}

	s := &xlsxSheet{f: f, name: sheetName, numFmts: make(map[int]numFmtKind)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		s.date1904 = *props.Date1904
	}

	width := maxWidth(rows[headerRowIdx:])
	headers := uniqueHeaders(rows[headerRowIdx], width)
	data := rows[headerRowIdx+1:]

	cells := make([][]table.Value, width)
	for colIdx := range cells {
		cells[colIdx] = make([]table.Value, len(data))
	}

	for i, row := range data {
		// GetRows is 0-indexed, sheet rows are 1-indexed.
		rowNum := headerRowIdx + i + 2
		for colIdx := 0; colIdx < width; colIdx++ {
			raw := ""
			if colIdx < len(row) {
				raw = row[colIdx]
			}
			cells[colIdx][i] = s.cellValue(colIdx+1, rowNum, raw)
		}
	}

	classify := func(name string, col []table.Value) table.Kind {
		if opts.isDateColumn(name) {
			s.serialsToTime(col)
			return table.KindTemporal
		}
		return classifyCells(col)
	}

	return buildTable(headers, cells, classify)
}

// cellValue converts one raw cell into a typed value using the cell's stored
// type and number format.
func (s *xlsxSheet) cellValue(col, row int, raw string) table.Value {
	if raw == "" {
		return table.Missing()
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return table.Text(raw)
	}

	typ, err := s.f.GetCellType(s.name, cell)
	if err != nil {
		return table.Text(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return table.Other(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeDate:
		for _, layout := range isoDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return table.Time(t)
			}
		}
		return table.Text(raw)
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return table.Text(raw)
		}
		switch s.formatKind(cell) {
		case fmtDate:
			if t, err := excelize.ExcelDateToTime(serial, s.date1904); err == nil {
				return table.Time(t)
			}
		case fmtClock:
			return table.Other(clockString(serial))
		}
		return table.Other(raw)
	default:
		return table.Text(raw)
	}
}

// serialsToTime converts numeric cells of a column declared as dates into
// times, so unformatted serial numbers still canonicalize.
func (s *xlsxSheet) serialsToTime(col []table.Value) {
	for i, v := range col {
		raw, ok := v.AsOther()
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		serial, err := strconv.ParseFloat(str, 64)
		if err != nil {
			continue
		}
		if t, err := excelize.ExcelDateToTime(serial, s.date1904); err == nil {
			col[i] = table.Time(t)
		}
	}
}

func (s *xlsxSheet) formatKind(cell string) numFmtKind {
	idx, err := s.f.GetCellStyle(s.name, cell)
	if err != nil {
		return fmtPlain
	}
	if k, ok := s.numFmts[idx]; ok {
		return k
	}

	kind := fmtPlain
	if style, err := s.f.GetStyle(idx); err == nil && style != nil {
		kind = builtinNumFmts[style.NumFmt]
		if kind == fmtPlain && style.CustomNumFmt != nil {
			kind = formatCodeKind(*style.CustomNumFmt)
		}
	}

	s.numFmts[idx] = kind
	return kind
}

// formatCodeKind classifies a custom number format. A year or day token makes
// it a date; hours or seconds without either make it a clock. Quoted
// literals, escaped characters and bracketed sections such as colors or
// locales are ignored, except elapsed-time brackets like [h]. Only the first
// (positive) section counts.
func formatCodeKind(code string) numFmtKind {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false

loop:
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
			if r == 'h' || r == 'm' || r == 's' {
				b.WriteRune(r)
			}
		case r == ';':
			break loop
		default:
			b.WriteRune(r)
		}
	}

	tokens := b.String()
	switch {
	case strings.ContainsAny(tokens, "yd"):
		return fmtDate
	case strings.ContainsAny(tokens, "hs"):
		return fmtClock
	}
	return fmtPlain
}

// clockString renders a serial time or duration as hh:mm:ss. Whole days are
// carried into the hour count.
func clockString(serial float64) string {
	secs := int64(math.Round(math.Abs(serial) * 86400))
	sign := ""
	if serial < 0 && secs > 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, secs/3600, secs/60%60, secs%60)
}

// classifyCells returns KindTemporal when every non-missing cell is a date,
// KindOther when the column holds no text at all, and KindText otherwise.
func classifyCells(col []table.Value) table.Kind {
	present, times, texts := 0, 0, 0
	for _, v := range col {
		switch {
		case v.IsMissing():
			continue
		case v.IsTime():
			times++
		case v.IsText():
			texts++
		}
		present++
	}

	switch {
	case present > 0 && times == present:
		return table.KindTemporal
	case present > 0 && texts == 0:
		return table.KindOther
	}
	return table.KindText
}
