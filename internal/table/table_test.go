package table

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New(
		Column{Name: "a", Cells: []Value{Text("1"), Text("2")}},
		Column{Name: "b", Cells: []Value{Text("1")}},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRaggedColumns))
}

func TestTableAccessors(t *testing.T) {
	tbl, err := New(
		Column{Name: "Name", Kind: KindText, Cells: []Value{Text("Alice"), Missing()}},
		Column{Name: "Born", Kind: KindTemporal, Cells: []Value{Missing(), Text("1990-01-01")}},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Rows())
	assert.Equal(t, 2, tbl.Width())
	assert.Equal(t, []string{"Name", "Born"}, tbl.Headers())

	row := tbl.Row(1)
	require.Len(t, row, 2)
	assert.True(t, row[0].IsMissing())
	assert.Equal(t, "1990-01-01", row[1].String())
}

func TestCloneIsIndependent(t *testing.T) {
	tbl, err := New(Column{Name: "a", Cells: []Value{Text("x")}})
	require.NoError(t, err)

	c := tbl.Clone()
	c.Column(0).Cells[0] = Text("y")

	assert.Equal(t, "x", tbl.Column(0).Cells[0].String())
	assert.Equal(t, "y", c.Column(0).Cells[0].String())
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"Missing", Missing(), ""},
		{"Empty text", Text(""), ""},
		{"Text", Text("abc"), "abc"},
		{"Time", Time(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), "2024-01-02 03:04:05"},
		{"Float", Other(1.50), "1.5"},
		{"Int", Other(7), "7"},
		{"Raw number", Other("45292"), "45292"},
		{"True", Other(true), "True"},
		{"False", Other(false), "False"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.input.String())
		})
	}
}

func TestMissingIsNotEmptyText(t *testing.T) {
	assert.True(t, Missing().IsMissing())
	assert.False(t, Text("").IsMissing())
	assert.False(t, Missing().Equal(Text("")))
	assert.True(t, Other(nil).IsMissing())
	assert.True(t, Value{}.IsMissing())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "temporal", KindTemporal.String())
	assert.Equal(t, "other", KindOther.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
