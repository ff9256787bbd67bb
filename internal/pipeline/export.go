package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/xuri/excelize/v2"

	"climatemap/internal"
	"climatemap/internal/schema"
)

const EventColumn = "Événement"

// TableHeaders are the detail table columns, in display order.
var TableHeaders = []string{
	schema.Name, EventColumn,
	schema.ModerateDrought, schema.SevereDrought, schema.ModerateFlood, schema.SevereFlood,
	schema.Exposure, schema.Losses,
}

func ExportRecordsToXLSX(records []internal.UnifiedRecord, sheetName, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheetName != "" && sheetName != sheet {
		if err := f.SetSheetName(sheet, sheetName); err != nil {
			return err
		}
		sheet = sheetName
	}

	for i, h := range TableHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, rec.Name)
		set(2, string(rec.Event))
		set(3, rec.Triggers.ModerateDrought)
		set(4, rec.Triggers.SevereDrought)
		set(5, rec.Triggers.ModerateFlood)
		set(6, rec.Triggers.SevereFlood)
		set(7, derefFloat(rec.Exposure))
		set(8, derefFloat(rec.Losses))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// FeatureCollection builds the map layer: one feature per record with the
// hover fields and fill colour as properties. Geometry is passed through.
func FeatureCollection(records []internal.UnifiedRecord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for _, rec := range records {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: rec.Geometry,
			Properties: map[string]any{
				schema.Name:        rec.Name,
				"event":            string(rec.Event),
				"color":            rec.Event.Color(),
				"exposure_fmt":     rec.ExposureFmt,
				"losses_fmt":       rec.LossesFmt,
				"matched":          rec.Matched,
				"moderate_drought": rec.Triggers.ModerateDrought,
				"severe_drought":   rec.Triggers.SevereDrought,
				"moderate_flood":   rec.Triggers.ModerateFlood,
				"severe_flood":     rec.Triggers.SevereFlood,
				"boundary_index":   rec.Index,
			},
		})
	}
	return fc
}

func WriteGeoJSON(records []internal.UnifiedRecord, outputPath string) error {
	blob, err := json.Marshal(FeatureCollection(records))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, blob, 0o644)
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
