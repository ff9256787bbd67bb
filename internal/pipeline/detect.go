package pipeline

import "climatemap/internal"

type priorityRule struct {
	flag  func(internal.Indicators) int
	label internal.EventLabel
}

// eventPriority puts floods before droughts and severe before moderate.
var eventPriority = []priorityRule{
	{flag: func(i internal.Indicators) int { return i.SevereFlood }, label: internal.EventSevereFlood},
	{flag: func(i internal.Indicators) int { return i.ModerateFlood }, label: internal.EventModerateFlood},
	{flag: func(i internal.Indicators) int { return i.SevereDrought }, label: internal.EventSevereDrought},
	{flag: func(i internal.Indicators) int { return i.ModerateDrought }, label: internal.EventModerateDrought},
}

// ClassifyEvent returns the label of the highest-priority trigger set to 1,
// or EventNone. Co-occurring triggers are resolved silently by priority.
func ClassifyEvent(triggers internal.Indicators) internal.EventLabel {
	for _, rule := range eventPriority {
		if rule.flag(triggers) == 1 {
			return rule.label
		}
	}
	return internal.EventNone
}
