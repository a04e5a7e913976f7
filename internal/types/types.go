package types

type ConversionResult struct {
	InputFile       string
	OutputFile      string
	Columns         []string
	TemporalColumns []string
	RowsProcessed   int
	CellMisses      int
}

// FileResult is the outcome of one file in a batch. Err is nil on success.
type FileResult struct {
	InputFile  string
	OutputFile string
	Result     *ConversionResult
	Err        error
}
