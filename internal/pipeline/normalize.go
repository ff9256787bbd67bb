package pipeline

import (
	"strings"

	"climatemap/internal"
	"climatemap/internal/schema"
)

// StandardSheet is one monthly sheet mapped onto the canonical schema.
type StandardSheet struct {
	Records []internal.MonthlyRecord
	Mapping schema.Mapping
}

// StandardizeSheet takes the first row as the header, resolves it against s
// and coerces every data row. Columns outside the schema are dropped.
// Indicators without a column default to 0 and amounts without a column to
// nil. Fully empty rows are skipped; RowNo is the 1-based sheet row.
func StandardizeSheet(rows [][]internal.Cell, s *schema.Schema) StandardSheet {
	if len(rows) == 0 {
		return StandardSheet{Records: []internal.MonthlyRecord{}, Mapping: s.Resolve(nil)}
	}

	headers := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		headers[i] = strings.TrimSpace(c.Text())
	}
	mapping := s.Resolve(headers)

	out := make([]internal.MonthlyRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cell := func(field string) internal.Cell {
			idx, ok := mapping.Column(field)
			if !ok || idx >= len(row) {
				return internal.EmptyCell()
			}
			return row[idx]
		}

		out = append(out, internal.MonthlyRecord{
			RowNo: i + 2,
			Unit:  strings.TrimSpace(cell(s.Identity().Name).Text()),
			Triggers: internal.Indicators{
				ModerateDrought: CoerceIndicator(cell(schema.ModerateDrought)),
				SevereDrought:   CoerceIndicator(cell(schema.SevereDrought)),
				ModerateFlood:   CoerceIndicator(cell(schema.ModerateFlood)),
				SevereFlood:     CoerceIndicator(cell(schema.SevereFlood)),
			},
			Exposure: CoerceMoney(cell(schema.Exposure)),
			Losses:   CoerceMoney(cell(schema.Losses)),
		})
	}
	return StandardSheet{Records: out, Mapping: mapping}
}

func isBlankRow(row []internal.Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
