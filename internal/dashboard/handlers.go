package dashboard

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/twpayne/go-geom/encoding/geojson"

	"climatemap/internal"
	"climatemap/internal/pipeline"
)

const noneLegendLabel = "Aucun événement (non coloré)"

type yearsResponse struct {
	Years   []int `json:"years"`
	Default int   `json:"default"`
}

type sheetsResponse struct {
	Year   int      `json:"year"`
	Sheets []string `json:"sheets"`
}

type LegendItem struct {
	Event internal.EventLabel `json:"event"`
	Label string              `json:"label"`
	Color string              `json:"color"`
}

type Legend struct {
	Title string       `json:"title"`
	Items []LegendItem `json:"items"`
}

type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type mapResponse struct {
	Year       int                        `json:"year"`
	Sheet      string                     `json:"sheet"`
	Title      string                     `json:"title"`
	Categories string                     `json:"categories"`
	Center     Center                     `json:"center"`
	Zoom       float64                    `json:"zoom"`
	Legend     Legend                     `json:"legend"`
	Summary    pipeline.Summary           `json:"summary"`
	Missing    []string                   `json:"missing_columns"`
	TraceID    string                     `json:"trace_id"`
	Features   *geojson.FeatureCollection `json:"features"`
}

// TableRow is one line of the detail table under the map. Amounts are the
// grouped display strings; missing amounts are empty.
type TableRow struct {
	Name            string              `json:"NAME_3"`
	Event           internal.EventLabel `json:"Événement"`
	ModerateDrought int                 `json:"Moderate Drought Index Triggered"`
	SevereDrought   int                 `json:"Severe Drought Index Triggered"`
	ModerateFlood   int                 `json:"Moderate Flood Index Trigerred"`
	SevereFlood     int                 `json:"Severe Flood Index Trigerred"`
	Exposure        string              `json:"Exposure at Risk"`
	Losses          string              `json:"Expected Losses"`
	Matched         bool                `json:"matched"`
}

type tableResponse struct {
	Year  int        `json:"year"`
	Sheet string     `json:"sheet"`
	Rows  []TableRow `json:"rows"`
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years := s.pipeline.Years()
	def, err := s.pipeline.DefaultYear()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, yearsResponse{Years: years, Default: def})
}

func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	year, err := s.year(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sheets, err := s.pipeline.Sheets(year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheetsResponse{Year: year, Sheets: sheets})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.pipeline.Run(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	lat, lon := s.view.CenterLat, s.view.CenterLon
	if res.Boundaries != nil {
		lat, lon = res.Boundaries.Center(lat, lon)
	}
	writeJSON(w, http.StatusOK, mapResponse{
		Year:       res.Selection.Year,
		Sheet:      res.Selection.Sheet,
		Title:      MapTitle(res.Selection.Year),
		Categories: res.Summary.Caption(),
		Center:     Center{Lat: lat, Lon: lon},
		Zoom:       s.view.Zoom,
		Legend:     BuildLegend(res.Selection.Year),
		Summary:    res.Summary,
		Missing:    res.Mapping.Missing(),
		TraceID:    res.TraceID,
		Features:   pipeline.FeatureCollection(res.Records),
	})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.pipeline.Run(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{
		Year:  res.Selection.Year,
		Sheet: res.Selection.Sheet,
		Rows:  TableRows(res.Records),
	})
}

func (s *Server) handleLegend(w http.ResponseWriter, r *http.Request) {
	year, err := s.year(r.URL.Query().Get("year"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildLegend(year))
}

func MapTitle(year int) string {
	return fmt.Sprintf("Burkina Faso — Évènements climatiques %d", year)
}

// BuildLegend lists the five labels in legend order; "no event" is drawn
// transparent, so its entry says so.
func BuildLegend(year int) Legend {
	items := make([]LegendItem, 0, len(internal.LegendOrder))
	for _, label := range internal.LegendOrder {
		text := string(label)
		if label == internal.EventNone {
			text = noneLegendLabel
		}
		items = append(items, LegendItem{Event: label, Label: text, Color: label.Color()})
	}
	return Legend{Title: fmt.Sprintf("Événement observé — %d", year), Items: items}
}

func TableRows(records []internal.UnifiedRecord) []TableRow {
	rows := make([]TableRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, TableRow{
			Name:            rec.Name,
			Event:           rec.Event,
			ModerateDrought: rec.Triggers.ModerateDrought,
			SevereDrought:   rec.Triggers.SevereDrought,
			ModerateFlood:   rec.Triggers.ModerateFlood,
			SevereFlood:     rec.Triggers.SevereFlood,
			Exposure:        rec.ExposureFmt,
			Losses:          rec.LossesFmt,
			Matched:         rec.Matched,
		})
	}
	return rows
}
