package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatemap/internal"
)

func TestCoerceIndicator_TruthySet(t *testing.T) {
	cells := []internal.Cell{
		internal.NumberCell(1),
		internal.NumberCell(1.0),
		internal.BoolCell(true),
		internal.StringCell("1"),
		internal.StringCell("1.0"),
		internal.StringCell("true"),
		internal.StringCell("TRUE"),
		internal.StringCell("Oui"),
		internal.StringCell("y"),
		internal.StringCell("yes"),
		internal.StringCell(" 1 "),
	}
	for _, c := range cells {
		assert.Equal(t, 1, CoerceIndicator(c), "%s %q", c.Kind, c.Text())
	}
}

func TestCoerceIndicator_FalsySet(t *testing.T) {
	cells := []internal.Cell{
		internal.NumberCell(0),
		internal.BoolCell(false),
		internal.StringCell("0"),
		internal.StringCell("0.0"),
		internal.StringCell("false"),
		internal.StringCell("NON"),
		internal.StringCell("n"),
		internal.StringCell("no"),
	}
	for _, c := range cells {
		assert.Equal(t, 0, CoerceIndicator(c), "%s %q", c.Kind, c.Text())
	}
}

func TestCoerceIndicator_OtherValuesStayInRange(t *testing.T) {
	cases := []struct {
		cell internal.Cell
		want int
	}{
		{internal.EmptyCell(), 0},
		{internal.StringCell(""), 0},
		{internal.StringCell("N/A"), 0},
		{internal.StringCell("maybe"), 0},
		{internal.StringCell(" yes "), 0},
		{internal.StringCell("oui "), 0},
		{internal.StringCell("2"), 1},
		{internal.StringCell("-3"), 0},
		{internal.StringCell("0.7"), 1},
		{internal.StringCell("0.5"), 0},
		{internal.NumberCell(1.5), 1},
		{internal.NumberCell(0.49), 0},
		{internal.NumberCell(42), 1},
		{internal.NumberCell(-1), 0},
		{internal.NumberCell(math.NaN()), 0},
		{internal.NumberCell(math.Inf(1)), 1},
		{internal.NumberCell(math.Inf(-1)), 0},
	}
	for _, tc := range cases {
		got := CoerceIndicator(tc.cell)
		assert.Equal(t, tc.want, got, "%s %q", tc.cell.Kind, tc.cell.Text())
		assert.Contains(t, []int{0, 1}, got)
	}
}

func TestCoerceIndicatorColumn(t *testing.T) {
	got := CoerceIndicatorColumn([]internal.Cell{
		internal.StringCell("oui"),
		internal.EmptyCell(),
		internal.NumberCell(1),
		internal.StringCell("x"),
	})
	assert.Equal(t, []int{1, 0, 1, 0}, got)
}

func TestCoerceMoney(t *testing.T) {
	cases := []struct {
		name string
		cell internal.Cell
		want *float64
	}{
		{"grouped with comma decimal", internal.StringCell("12 500,75"), ptr(12500.75)},
		{"nbsp grouping", internal.StringCell("1\u00a0234\u00a0567"), ptr(1234567)},
		{"plain text number", internal.StringCell("3000"), ptr(3000)},
		{"numeric cell", internal.NumberCell(1000), ptr(1000)},
		{"zero stays zero", internal.NumberCell(0), ptr(0)},
		{"unparsable", internal.StringCell("N/A"), nil},
		{"empty text", internal.StringCell("  "), nil},
		{"empty cell", internal.EmptyCell(), nil},
		{"bool cell", internal.BoolCell(true), nil},
		{"nan", internal.NumberCell(math.NaN()), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CoerceMoney(tc.cell)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tc.want, *got, 1e-9)
		})
	}
}

func TestCoerceMoneyColumn(t *testing.T) {
	got := CoerceMoneyColumn([]internal.Cell{internal.StringCell("N/A"), internal.NumberCell(0)})
	require.Len(t, got, 2)
	assert.Nil(t, got[0])
	require.NotNil(t, got[1])
	assert.Zero(t, *got[1])
}

func ptr(v float64) *float64 { return &v }
