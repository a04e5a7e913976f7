// Package normalize cleans a table before it is written out. Text and other
// columns get whitespace cleanup, temporal columns get their dates rewritten
// as YYYY-MM-DD. The transform is applied per column according to the
// column's declared kind and never changes the shape of the table.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/nconklindev/sheet2csv/internal/table"
)

// CanonicalLayout is the output format of every successfully parsed date.
const CanonicalLayout = "2006-01-02"

// defaultLayouts are tried in order; the first that parses wins. Slash dates
// are therefore read day-first when both readings are valid.
var defaultLayouts = []string{
	"2006-1-2", // YYYY-MM-DD
	"2/1/2006", // DD/MM/YYYY
	"1/2/2006", // MM/DD/YYYY
	"2-1-2006", // DD-MM-YYYY
	"1-2-2006", // MM-DD-YYYY
}

// DefaultLayouts returns a copy of the ordered candidate layouts used for
// text cells in temporal columns.
func DefaultLayouts() []string {
	out := make([]string, len(defaultLayouts))
	copy(out, defaultLayouts)
	return out
}

// ErrCellMiss marks a cell that could not be interpreted and was passed through.
var ErrCellMiss = errors.New("cell left unchanged")

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// Mode controls whether cell misses are reported as an error.
type Mode int

const (
	// Lenient passes misses through silently. This is the default.
	Lenient Mode = iota
	// Strict still passes misses through but returns an error listing them.
	Strict
)

// Miss describes one cell that fell back to its original value.
type Miss struct {
	Column string
	Row    int
	Value  table.Value
}

// MissError wraps a Miss for strict mode.
type MissError struct {
	Miss
}

func (e *MissError) Error() string {
	return fmt.Sprintf("column %q row %d: unrecognized date %q", e.Column, e.Row+1, e.Value.String())
}

func (e *MissError) Unwrap() error { return ErrCellMiss }

// Report summarizes one Normalize call.
type Report struct {
	Cells    int // non-missing cells visited
	Temporal int // temporal cells rewritten to the canonical layout
	Misses   int
}

// Normalizer applies the cleanup transforms. The zero value is not usable;
// build one with New.
type Normalizer struct {
	layouts []string
	mode    Mode
	onMiss  func(Miss)
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLayouts replaces the ordered list of date layouts (Go reference-time syntax).
func WithLayouts(layouts ...string) Option {
	return func(n *Normalizer) {
		if len(layouts) == 0 {
			return
		}
		n.layouts = append([]string(nil), layouts...)
	}
}

func WithMode(m Mode) Option {
	return func(n *Normalizer) { n.mode = m }
}

// WithMissHook registers a callback invoked once per cell miss.
func WithMissHook(fn func(Miss)) Option {
	return func(n *Normalizer) { n.onMiss = fn }
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{layouts: DefaultLayouts()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Layouts returns the candidate date layouts in the order they are tried.
func (n *Normalizer) Layouts() []string {
	return append([]string(nil), n.layouts...)
}

func (n *Normalizer) Mode() Mode { return n.mode }

// Normalize returns a normalized copy of t with the default lenient settings.
func Normalize(t *table.Table) *table.Table {
	out, _, _ := New().Normalize(t)
	return out
}

// Normalize returns a new table with every column transformed according to
// its kind. The input is not modified. In Strict mode the returned error
// joins one *MissError per miss; the table is returned either way.
func (n *Normalizer) Normalize(t *table.Table) (*table.Table, Report, error) {
	var (
		rep  Report
		errs []error
	)

	out := t.Clone()
	for _, col := range out.Columns() {
		for row, v := range col.Cells {
			if v.IsMissing() {
				continue
			}
			rep.Cells++

			if col.Kind != table.KindTemporal {
				col.Cells[row] = table.Text(CleanText(v.String()))
				continue
			}

			nv, ok := CanonicalDate(v, n.layouts)
			col.Cells[row] = nv
			if ok {
				rep.Temporal++
				continue
			}

			rep.Misses++
			m := Miss{Column: col.Name, Row: row, Value: v}
			if n.onMiss != nil {
				n.onMiss(m)
			}
			if n.mode == Strict {
				errs = append(errs, &MissError{Miss: m})
			}
		}
	}

	return out, rep, errors.Join(errs...)
}

// CleanText folds line breaks and whitespace runs into single spaces and
// trims the result.
func CleanText(s string) string {
	s = lineBreaks.ReplaceAllString(s, " ")
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// isSpace extends unicode.IsSpace with the ASCII separators U+001C..U+001F,
// which spreadsheet exports use as field and record marks.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= '\x1c' && r <= '\x1f')
}

// CanonicalDate rewrites a temporal cell as YYYY-MM-DD text. Time values are
// formatted directly; text values are parsed with the first matching layout.
// On failure the original value is returned with ok == false.
func CanonicalDate(v table.Value, layouts []string) (out table.Value, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = v, false
		}
	}()

	if v.IsMissing() {
		return v, true
	}
	if t, isTime := v.AsTime(); isTime {
		return table.Text(t.Format(CanonicalLayout)), true
	}
	s, isText := v.AsText()
	if !isText {
		return v, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return table.Text(t.Format(CanonicalLayout)), true
		}
	}
	return v, false
}
