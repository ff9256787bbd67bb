package pipeline

import (
	"climatemap/internal"
	"climatemap/internal/util"
)

// RecordIndex groups monthly records by normalized unit name. A name can
// carry several records when a sheet repeats a unit.
type RecordIndex struct {
	ByName map[string][]internal.MonthlyRecord
}

func BuildRecordIndex(records []internal.MonthlyRecord) *RecordIndex {
	idx := &RecordIndex{ByName: map[string][]internal.MonthlyRecord{}}
	for _, r := range records {
		key := util.Normalize(r.Unit)
		if key == "" {
			continue
		}
		idx.ByName[key] = append(idx.ByName[key], r)
	}
	return idx
}

func (idx *RecordIndex) Lookup(unit string) []internal.MonthlyRecord {
	return idx.ByName[util.Normalize(unit)]
}

// Join left-joins boundary units with monthly records on normalized unit
// name. Every unit appears in boundary order; a unit matched by n records
// appears n times, an unmatched unit once with zero triggers and no amounts.
func Join(units []internal.BoundaryUnit, records []internal.MonthlyRecord) []internal.UnifiedRecord {
	idx := BuildRecordIndex(records)
	out := make([]internal.UnifiedRecord, 0, len(units))
	for _, u := range units {
		matches := idx.Lookup(u.Name)
		if len(matches) == 0 {
			out = append(out, unify(u, nil))
			continue
		}
		for i := range matches {
			out = append(out, unify(u, &matches[i]))
		}
	}
	return out
}

func unify(u internal.BoundaryUnit, rec *internal.MonthlyRecord) internal.UnifiedRecord {
	out := internal.UnifiedRecord{BoundaryUnit: u}
	if rec != nil {
		out.Matched = true
		out.Triggers = rec.Triggers
		out.Exposure = rec.Exposure
		out.Losses = rec.Losses
	}
	label := string(ClassifyEvent(out.Triggers))
	out.Event = CanonicalizeLabel(&label)
	out.ExposureFmt = util.FormatGrouped(out.Exposure)
	out.LossesFmt = util.FormatGrouped(out.Losses)
	return out
}
