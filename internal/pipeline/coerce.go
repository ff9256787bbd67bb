package pipeline

import (
	"math"
	"strconv"
	"strings"

	"climatemap/internal"
	"climatemap/internal/util"
)

var (
	truthy = map[string]struct{}{"1": {}, "1.0": {}, "true": {}, "oui": {}, "y": {}, "yes": {}}
	falsy  = map[string]struct{}{"0": {}, "0.0": {}, "false": {}, "non": {}, "n": {}, "no": {}}
)

// CoerceIndicator maps any cell onto a 0/1 trigger flag. Known yes/no
// spellings map directly; other values are parsed as numbers, rounded half
// to even and clamped into [0,1]. Anything unparsable is 0.
func CoerceIndicator(c internal.Cell) int {
	switch c.Kind {
	case internal.CellBool:
		if c.Bool {
			return 1
		}
		return 0
	case internal.CellNumber:
		return clampFlag(c.Num)
	case internal.CellString:
		// Tokens match exactly after lowercasing; only the numeric fallback
		// ignores padding.
		s := strings.ToLower(c.Str)
		if _, ok := truthy[s]; ok {
			return 1
		}
		if _, ok := falsy[s]; ok {
			return 0
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		return clampFlag(v)
	default:
		return 0
	}
}

func clampFlag(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	v = math.RoundToEven(v)
	if v >= 1 {
		return 1
	}
	return 0
}

// CoerceMoney turns a cell into an amount. Nil is the missing marker: empty
// cells, booleans and unparsable text never become zero.
func CoerceMoney(c internal.Cell) *float64 {
	switch c.Kind {
	case internal.CellNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return nil
		}
		return util.FloatPtr(c.Num)
	case internal.CellString:
		if v, ok := util.ParseMoneyToken(c.Str); ok {
			return util.FloatPtr(v)
		}
		return nil
	default:
		return nil
	}
}

func CoerceIndicatorColumn(cells []internal.Cell) []int {
	out := make([]int, len(cells))
	for i, c := range cells {
		out[i] = CoerceIndicator(c)
	}
	return out
}

func CoerceMoneyColumn(cells []internal.Cell) []*float64 {
	out := make([]*float64, len(cells))
	for i, c := range cells {
		out[i] = CoerceMoney(c)
	}
	return out
}
