package internal

import (
	"strconv"

	"github.com/twpayne/go-geom"
)

type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellBool
)

func (k CellKind) String() string {
	switch k {
	case CellString:
		return "string"
	case CellNumber:
		return "number"
	case CellBool:
		return "bool"
	default:
		return "empty"
	}
}

// Cell is one spreadsheet value. Only the field matching Kind is meaningful.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
	Bool bool
}

func EmptyCell() Cell { return Cell{Kind: CellEmpty} }
func StringCell(v string) Cell { return Cell{Kind: CellString, Str: v} }
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }
func BoolCell(v bool) Cell { return Cell{Kind: CellBool, Bool: v} }
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }
func (c Cell) Is(kind CellKind) bool { return c.Kind == kind }

// Text renders the cell the way a spreadsheet user reads it: integral
// numbers without a fractional part, booleans as True/False, empty as "".
func (c Cell) Text() string {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellBool:
		if c.Bool {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

type EventLabel string

const (
	EventModerateDrought EventLabel = "Sécheresse modérée"
	EventSevereDrought   EventLabel = "Sécheresse sévère"
	EventModerateFlood   EventLabel = "Inondation modérée"
	EventSevereFlood     EventLabel = "Inondation sévère"
	EventNone            EventLabel = "Aucun événement"
)

// CategoryOrder is the display order of the five labels, most severe first.
var CategoryOrder = []EventLabel{
	EventSevereFlood,
	EventModerateFlood,
	EventSevereDrought,
	EventModerateDrought,
	EventNone,
}

// LegendOrder is the order of the explicit legend block under the map.
var LegendOrder = []EventLabel{
	EventModerateDrought,
	EventSevereDrought,
	EventModerateFlood,
	EventSevereFlood,
	EventNone,
}

// EventColors maps each label to its map fill. "No event" is transparent.
var EventColors = map[EventLabel]string{
	EventModerateDrought: "rgba(255,55,86,1)",
	EventSevereDrought:   "rgba(207,0,3,1)",
	EventModerateFlood:   "rgba(12,210,250,1)",
	EventSevereFlood:     "rgba(18,54,196,1)",
	EventNone:            "rgba(0,0,0,0)",
}

// Color returns the fill for a label; labels outside the canonical five are
// drawn like "no event".
func (l EventLabel) Color() string {
	if c, ok := EventColors[l]; ok {
		return c
	}
	return EventColors[EventNone]
}

func (l EventLabel) IsCanonical() bool {
	_, ok := EventColors[l]
	return ok
}

// Indicators are the four 0/1 hazard triggers of one unit for one month.
type Indicators struct {
	ModerateDrought int `json:"moderate_drought"`
	SevereDrought   int `json:"severe_drought"`
	ModerateFlood   int `json:"moderate_flood"`
	SevereFlood     int `json:"severe_flood"`
}

// MonthlyRecord is one standardized sheet row. Nil amounts mean "no data",
// which is not the same as zero.
type MonthlyRecord struct {
	RowNo    int
	Unit     string
	Triggers Indicators
	Exposure *float64
	Losses   *float64
}

// BoundaryUnit is one administrative unit of the boundary dataset.
type BoundaryUnit struct {
	Index      int
	Name       string
	Geometry   geom.T
	Properties map[string]any
}

// UnifiedRecord is a boundary unit joined with its monthly indicators.
type UnifiedRecord struct {
	BoundaryUnit
	Matched     bool
	Triggers    Indicators
	Exposure    *float64
	Losses      *float64
	Event       EventLabel
	ExposureFmt string
	LossesFmt   string
}

// Selection identifies one pipeline run: a yearly workbook and one of its
// monthly sheets.
type Selection struct {
	Year  int
	Sheet string
}

type RunRow struct {
	ID           int
	TraceID      string
	Year         int
	Sheet        string
	WorkbookHash string
	Counts       map[string]int
	Timings      map[string]float64
	CreatedAt    string
}
