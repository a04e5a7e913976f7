package converter

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/sheet2csv/internal/normalize"
	"github.com/nconklindev/sheet2csv/internal/table"
)

// writeWorkbook saves a workbook whose first sheet is built by fill.
func writeWorkbook(t *testing.T, fill func(f *excelize.File, sheet string)) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	fill(f, sheet)

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func sampleWorkbook(f *excelize.File, sheet string) {
	f.SetSheetRow(sheet, "A1", &[]any{"Name", "Joined", "Amount", "Note", "Active", "Due"})

	f.SetCellValue(sheet, "A2", "Alice\r\nSmith")
	f.SetCellValue(sheet, "B2", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC))
	f.SetCellValue(sheet, "C2", 12.5)
	f.SetCellValue(sheet, "E2", true)
	f.SetCellValue(sheet, "F2", 45306)

	f.SetCellValue(sheet, "A3", "  Bob   ")
	f.SetCellValue(sheet, "B3", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	f.SetCellValue(sheet, "C3", 7)
	f.SetCellValue(sheet, "D3", "see\nattached")
	f.SetCellValue(sheet, "E3", false)
	f.SetCellValue(sheet, "F3", 45292)

	dateStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 14})
	f.SetCellStyle(sheet, "B2", "B3", dateStyle)

	custom := "dd/mm/yyyy"
	customStyle, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	f.SetCellStyle(sheet, "F2", "F3", customStyle)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestReadXLSXClassifiesColumns(t *testing.T) {
	path := writeWorkbook(t, sampleWorkbook)

	tbl, err := ReadFile(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Joined", "Amount", "Note", "Active", "Due"}, tbl.Headers())
	assert.Equal(t, 2, tbl.Rows())

	kinds := make([]table.Kind, tbl.Width())
	for i, c := range tbl.Columns() {
		kinds[i] = c.Kind
	}
	assert.Equal(t, []table.Kind{
		table.KindText, table.KindTemporal, table.KindOther, table.KindText, table.KindOther, table.KindTemporal,
	}, kinds)

	joined, ok := tbl.Column(1).Cells[0].AsTime()
	require.True(t, ok)
	assert.Equal(t, "2024-01-15", joined.Format("2006-01-02"))

	assert.True(t, tbl.Column(3).Cells[0].IsMissing(), "empty cell must be missing")
	assert.Equal(t, "True", tbl.Column(4).Cells[0].String())
	assert.Equal(t, "12.5", tbl.Column(2).Cells[0].String())
}

func TestConvertXLSX(t *testing.T) {
	path := writeWorkbook(t, sampleWorkbook)
	out := filepath.Join(filepath.Dir(path), "out.csv")

	res, err := Convert(path, out, nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, path, res.InputFile)
	assert.Equal(t, out, res.OutputFile)
	assert.Equal(t, 2, res.RowsProcessed)
	assert.Equal(t, []string{"Joined", "Due"}, res.TemporalColumns)
	assert.Zero(t, res.CellMisses)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	records := readCSV(t, out)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Name", "Joined", "Amount", "Note", "Active", "Due"}, records[0])
	assert.Equal(t, []string{"Alice Smith", "2024-01-15", "12.5", "", "True", "2024-01-15"}, records[1])
	assert.Equal(t, []string{"Bob", "2023-12-31", "7", "see attached", "False", "2024-01-01"}, records[2])
}

func TestReadXLSXSkipsLeadingBlankRows(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File, sheet string) {
		f.SetSheetRow(sheet, "A3", &[]any{"Code", "", "Code"})
		f.SetSheetRow(sheet, "A4", &[]any{"x", "y", "z", "extra"})
	})

	tbl, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Code", "Unnamed: 1", "Code.1", "Unnamed: 3"}, tbl.Headers())
	require.Equal(t, 1, tbl.Rows())
	assert.Equal(t, "extra", tbl.Column(3).Cells[0].String())
}

func TestReadXLSXForcedDateColumn(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File, sheet string) {
		f.SetSheetRow(sheet, "A1", &[]any{"Posted", "Memo"})
		f.SetSheetRow(sheet, "A2", &[]any{45292, "31/12/2023"})
		f.SetSheetRow(sheet, "A3", &[]any{"03/04/2024", "n/a"})
	})

	tbl, err := ReadFile(path, Options{DateColumns: []string{"posted", "MEMO"}})
	require.NoError(t, err)

	out, rep, err := normalize.New().Normalize(tbl)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", out.Column(0).Cells[0].String())
	assert.Equal(t, "2024-04-03", out.Column(0).Cells[1].String())
	assert.Equal(t, "2023-12-31", out.Column(1).Cells[0].String())
	assert.Equal(t, "n/a", out.Column(1).Cells[1].String())
	assert.Equal(t, 1, rep.Misses)
}

func TestReadXLSXEmptySheet(t *testing.T) {
	path := writeWorkbook(t, func(*excelize.File, string) {})
	_, err := ReadFile(path, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyFile) || errors.Is(err, ErrNoHeader), "got %v", err)
}

func TestConvertCSV(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	outputFile := filepath.Join(tmpDir, "output.csv")

	inputData := [][]string{
		{"\ufeffName", "Due"},
		{"Alice\nA.", "31/12/2023"},
		{"", "2023-13-45"},
		{"Carol", ""},
	}

	f, err := os.Create(inputFile)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(inputData))
	require.NoError(t, f.Close())

	res, err := Convert(inputFile, outputFile, normalize.New(), Options{DateColumns: []string{"Due"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CellMisses)

	assert.Equal(t, [][]string{
		{"Name", "Due"},
		{"Alice A.", "2023-12-31"},
		{"", "2023-13-45"},
		{"Carol", ""},
	}, readCSV(t, outputFile))
}

func TestConvertStrictLeavesNoOutput(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.csv")
	outputFile := filepath.Join(tmpDir, "output.csv")
	require.NoError(t, os.WriteFile(inputFile, []byte("When\nnever\n"), 0o644))

	_, err := Convert(inputFile, outputFile, normalize.New(normalize.WithMode(normalize.Strict)), Options{DateColumns: []string{"When"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, normalize.ErrCellMiss))

	_, statErr := os.Stat(outputFile)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestReadFileUnsupported(t *testing.T) {
	_, err := ReadFile("report.xls", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestWriteCSVMissingAndQuoting(t *testing.T) {
	tbl, err := table.New(
		table.Column{Name: "a,b", Cells: []table.Value{table.Missing(), table.Text(`say "hi"`)}},
		table.Column{Name: "c", Cells: []table.Value{table.Text(""), table.Other(3.25)}},
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, tbl))
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\"a,b\",c\n,\n\"say \"\"hi\"\"\",3.25\n", string(raw))
}

func TestUniqueHeaders(t *testing.T) {
	tests := []struct {
		name     string
		raw      []string
		width    int
		expected []string
	}{
		{"Unchanged", []string{"a", "b"}, 2, []string{"a", "b"}},
		{"Padded", []string{"a"}, 3, []string{"a", "Unnamed: 1", "Unnamed: 2"}},
		{"Duplicates", []string{"a", "a", "a"}, 3, []string{"a", "a.1", "a.2"}},
		{"Suffix collision", []string{"a", "a.1", "a"}, 3, []string{"a", "a.1", "a.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, uniqueHeaders(tt.raw, tt.width))
		})
	}
}

func TestFindHeaderRow(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		expected int
	}{
		{"First row", [][]string{{"a"}, {"1"}}, 0},
		{"After blanks", [][]string{{}, {"", " "}, {"", "h"}}, 2},
		{"None", [][]string{{}, {""}}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, findHeaderRow(tt.rows))
		})
	}
}

func TestFormatCodeKind(t *testing.T) {
	tests := []struct {
		code     string
		expected numFmtKind
	}{
		{"yyyy-mm-dd", fmtDate},
		{"dd/mm/yyyy hh:mm", fmtDate},
		{"[$-409]mmmm d, yyyy;@", fmtDate},
		{"[h]:mm:ss", fmtClock},
		{"[mm]:ss", fmtClock},
		{"h:mm AM/PM", fmtClock},
		{"hh:mm:ss", fmtClock},
		{"0.00", fmtPlain},
		{"#,##0", fmtPlain},
		{"General", fmtPlain},
		{`0.0 "days"`, fmtPlain},
		{`[Red]0.00`, fmtPlain},
		{`0\d`, fmtPlain},
		{"0.00;[Red]dd", fmtPlain},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatCodeKind(tt.code))
		})
	}
}

func TestClockString(t *testing.T) {
	tests := []struct {
		serial   float64
		expected string
	}{
		{0, "00:00:00"},
		{0.4375, "10:30:00"},
		{0.75, "18:00:00"},
		{0.999999, "24:00:00"},
		{1.5, "36:00:00"},
		{-0.25, "-06:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, clockString(tt.serial))
		})
	}
}

func TestConvertXLSXTimeOnlyColumns(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File, sheet string) {
		f.SetSheetRow(sheet, "A1", &[]any{"Start", "Elapsed", "Stamp"})
		f.SetSheetRow(sheet, "A2", &[]any{0.4375, 1.25, 45306.5})
		f.SetSheetRow(sheet, "A3", &[]any{0.75, 0.5, 45292.25})

		clock, _ := f.NewStyle(&excelize.Style{NumFmt: 20})
		f.SetCellStyle(sheet, "A2", "A3", clock)

		elapsed := "[h]:mm:ss"
		duration, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &elapsed})
		f.SetCellStyle(sheet, "B2", "B3", duration)

		stamp, _ := f.NewStyle(&excelize.Style{NumFmt: 22})
		f.SetCellStyle(sheet, "C2", "C3", stamp)
	})
	out := filepath.Join(filepath.Dir(path), "out.csv")

	res, err := Convert(path, out, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Stamp"}, res.TemporalColumns)

	assert.Equal(t, [][]string{
		{"Start", "Elapsed", "Stamp"},
		{"10:30:00", "30:00:00", "2024-01-15"},
		{"18:00:00", "12:00:00", "2024-01-01"},
	}, readCSV(t, out))
}

func TestClassifyCells(t *testing.T) {
	now := table.Time(time.Now())

	assert.Equal(t, table.KindTemporal, classifyCells([]table.Value{now, table.Missing(), now}))
	assert.Equal(t, table.KindText, classifyCells([]table.Value{now, table.Text("x")}))
	assert.Equal(t, table.KindOther, classifyCells([]table.Value{table.Other("1"), now}))
	assert.Equal(t, table.KindText, classifyCells([]table.Value{table.Missing()}))
	assert.Equal(t, table.KindText, classifyCells(nil))
}
