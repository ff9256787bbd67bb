package pipeline

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"climatemap/internal"
)

type LabelCount struct {
	Label    internal.EventLabel `json:"label"`
	Count    int                 `json:"count"`
	Exposure decimal.Decimal     `json:"exposure"`
	Losses   decimal.Decimal     `json:"losses"`
}

// Summary is the per-selection diagnostic shown next to the map. Labels are
// in first-seen order so unexpected labels stand out where they appear.
type Summary struct {
	Units     int             `json:"units"`
	Matched   int             `json:"matched"`
	Unmatched int             `json:"unmatched"`
	Labels    []LabelCount    `json:"labels"`
	Exposure  decimal.Decimal `json:"exposure"`
	Losses    decimal.Decimal `json:"losses"`
}

// Summarize counts records per event label and totals their amounts. Missing
// amounts add nothing.
func Summarize(records []internal.UnifiedRecord) Summary {
	s := Summary{Units: len(records), Labels: []LabelCount{}}
	pos := map[internal.EventLabel]int{}
	for _, r := range records {
		if r.Matched {
			s.Matched++
		} else {
			s.Unmatched++
		}

		i, ok := pos[r.Event]
		if !ok {
			i = len(s.Labels)
			pos[r.Event] = i
			s.Labels = append(s.Labels, LabelCount{Label: r.Event})
		}
		s.Labels[i].Count++
		if r.Exposure != nil {
			v := decimal.NewFromFloat(*r.Exposure)
			s.Labels[i].Exposure = s.Labels[i].Exposure.Add(v)
			s.Exposure = s.Exposure.Add(v)
		}
		if r.Losses != nil {
			v := decimal.NewFromFloat(*r.Losses)
			s.Labels[i].Losses = s.Labels[i].Losses.Add(v)
			s.Losses = s.Losses.Add(v)
		}
	}
	return s
}

func (s Summary) Count(label internal.EventLabel) int {
	for _, lc := range s.Labels {
		if lc.Label == label {
			return lc.Count
		}
	}
	return 0
}

// Caption renders "Label (n), Label (m)".
func (s Summary) Caption() string {
	parts := make([]string, 0, len(s.Labels))
	for _, lc := range s.Labels {
		parts = append(parts, fmt.Sprintf("%s (%d)", lc.Label, lc.Count))
	}
	return strings.Join(parts, ", ")
}

// Unexpected lists labels outside the five canonical ones.
func (s Summary) Unexpected() []internal.EventLabel {
	out := []internal.EventLabel{}
	for _, lc := range s.Labels {
		if !lc.Label.IsCanonical() {
			out = append(out, lc.Label)
		}
	}
	return out
}
