package util

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseMoneyToken parses spreadsheet amounts written as "12 500,75" or
// "1 000 000". Spaces (regular or non-breaking) are thousands separators and
// a comma is the decimal separator. Non-finite values are rejected.
func ParseMoneyToken(token string) (float64, bool) {
	compact := strings.ReplaceAll(token, nbsp, " ")
	compact = strings.ReplaceAll(compact, " ", "")
	compact = strings.ReplaceAll(compact, ",", ".")
	if compact == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(compact, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatGrouped renders an amount rounded to the unit, halves to even, with
// space-grouped thousands ("12 501"). A missing amount renders as the empty
// string.
func FormatGrouped(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return ""
	}
	rounded := decimal.NewFromFloat(*v).RoundBank(0)
	return strings.ReplaceAll(humanize.BigComma(rounded.BigInt()), ",", " ")
}
