package pipeline

import (
	"strings"

	"climatemap/internal"
	"climatemap/internal/util"
)

// canonicalLabels is keyed by the accent-free lowercase spelling.
var canonicalLabels = map[string]internal.EventLabel{
	"secheresse moderee":       internal.EventModerateDrought,
	"secheresse modere":        internal.EventModerateDrought,
	"secheresse moderee (1/0)": internal.EventModerateDrought,
	"secheresse severe":        internal.EventSevereDrought,
	"inondation moderee":       internal.EventModerateFlood,
	"inondation severe":        internal.EventSevereFlood,
	"aucun evenement":          internal.EventNone,
}

// CanonicalizeLabel maps free-text event labels onto the five canonical
// ones. A nil label means "no event". Text that matches nothing comes back
// whitespace-cleaned but otherwise unchanged so it stays visible downstream.
func CanonicalizeLabel(label *string) internal.EventLabel {
	if label == nil {
		return internal.EventNone
	}
	s := util.CollapseSpaces(*label)
	key := strings.ToLower(util.StripToASCII(s))
	if canonical, ok := canonicalLabels[key]; ok {
		return canonical
	}
	return internal.EventLabel(s)
}
