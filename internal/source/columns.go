package source

import (
	"strings"
)

// field identifies a canonical category attribute.
type field int

const (
	fieldName field = iota
	fieldProbability
	fieldLower90
	fieldUpper90
	fieldExtremeLower
	fieldExtremeUpper
	fieldCount
)

func (f field) String() string {
	switch f {
	case fieldName:
		return "name"
	case fieldProbability:
		return "probability"
	case fieldLower90:
		return "lower90"
	case fieldUpper90:
		return "upper90"
	case fieldExtremeLower:
		return "extreme_lower"
	case fieldExtremeUpper:
		return "extreme_upper"
	case fieldCount:
		return "count"
	}
	return "unknown"
}

// headerAliases maps each canonical field to the column headers that carry it
// in the spreadsheets riskloop ingests. Matching is case-insensitive and
// ignores surrounding whitespace. Earlier aliases win when a file carries
// more than one.
var headerAliases = map[field][]string{
	fieldName:         {"Category", "Event", "Name"},
	fieldProbability:  {"Percentage", "Probability", "Probability of the event occurring in a year"},
	fieldLower90:      {"90%_CI_Lower", "Lower Bound 90 CI", "Lower Bound of the 90% CI", "lower90"},
	fieldUpper90:      {"90%_CI_Upper", "Upper Bound 90 CI", "Upper Bound of the 90% CI", "upper90"},
	fieldExtremeLower: {"Lower_Bound", "Extreme Lower", "extreme_lower"},
	fieldExtremeUpper: {"Upper_Bound", "Extreme Upper", "extreme_upper"},
	fieldCount:        {"Count"},
}

// Canonical output headers used when riskloop writes category tables.
const (
	HeaderCategory   = "Category"
	HeaderCount      = "Count"
	HeaderPercentage = "Percentage"
	HeaderLower90    = "90%_CI_Lower"
	HeaderUpper90    = "90%_CI_Upper"
)

// columnIndex resolves header positions for every field present in header.
func columnIndex(header []string) map[field]int {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := normalized[key]; !dup {
			normalized[key] = i
		}
	}

	idx := make(map[field]int, len(headerAliases))
	for f, aliases := range headerAliases {
		for _, a := range aliases {
			if i, ok := normalized[normalizeHeader(a)]; ok {
				idx[f] = i
				break
			}
		}
	}
	return idx
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}
