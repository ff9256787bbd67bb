package pipeline

import (
	"fmt"

	"climatemap/internal"
	"climatemap/internal/schema"
)

// ProcessFiles runs the whole pipeline once over explicit files, with no
// caching and no store. An empty sheet selects the first sheet.
func ProcessFiles(geoJSONPath, workbookPath, sheet string, s *schema.Schema, fix NameFix) ([]internal.UnifiedRecord, Summary, error) {
	if s == nil {
		s = schema.Default()
	}

	bounds, err := LoadBoundaries(geoJSONPath, fix)
	if err != nil {
		return nil, Summary{}, err
	}

	wb, err := ReadWorkbook(workbookPath)
	if err != nil {
		return nil, Summary{}, err
	}
	defer wb.Close()

	if sheet == "" {
		names := wb.SheetNames()
		if len(names) == 0 {
			return nil, Summary{}, fmt.Errorf("%w: workbook %s has no sheets", ErrUnknownSheet, workbookPath)
		}
		sheet = names[0]
	}
	rows, err := wb.SheetCells(sheet)
	if err != nil {
		return nil, Summary{}, err
	}

	records := Join(bounds.Units, StandardizeSheet(rows, s).Records)
	return records, Summarize(records), nil
}
