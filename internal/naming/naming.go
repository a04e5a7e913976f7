// Package naming decides where a converted file is written.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nconklindev/sheet2csv/internal/config"
)

const (
	// EntryLayout is the date format typed by the user.
	EntryLayout = "2006-01-02"
	// StampLayout is the date format embedded in templated file names.
	StampLayout = "20060102"
)

// OutputPath returns the CSV path for input. Without a format the input's
// base name is kept and the extension replaced by .csv; with a format the
// file is named <FileName>_<YYYYMMDD>.csv in the input's directory.
func OutputPath(input string, format *config.OutputFormat, date time.Time) string {
	if format == nil || format.FileName == "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".csv"
	}
	return filepath.Join(filepath.Dir(input), fmt.Sprintf("%s_%s.csv", format.FileName, DateStamp(date)))
}

func DateStamp(t time.Time) string {
	return t.Format(StampLayout)
}

// ParseDate accepts YYYY-MM-DD or YYYYMMDD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(EntryLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(StampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
