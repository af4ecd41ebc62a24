package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/nvandessel/riskloop/internal/models"
)

// ParseProbability accepts a fraction ("0.125") or a percent-string ("12.5%").
func ParseProbability(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, &models.ValidationError{Field: "probability", Value: `""`, Reason: "is required"}
	}

	scale := 1.0
	num := raw
	if strings.HasSuffix(num, "%") {
		num = strings.TrimSpace(strings.TrimSuffix(num, "%"))
		scale = 100
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &models.ValidationError{Field: "probability", Value: raw, Reason: "is not a number or percentage"}
	}
	return f / scale, nil
}

// ParseAmount parses a money amount, tolerating a leading "$" and thousands
// separators ("$1,234.50").
func ParseAmount(fieldName, s string) (float64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, &models.ValidationError{Field: fieldName, Value: `""`, Reason: "is required"}
	}

	num := strings.TrimPrefix(raw, "$")
	neg := false
	if strings.HasPrefix(num, "-") {
		neg = true
		num = strings.TrimPrefix(num, "-")
		num = strings.TrimPrefix(num, "$")
	}
	num = strings.ReplaceAll(num, ",", "")

	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &models.ValidationError{Field: fieldName, Value: raw, Reason: "is not a number"}
	}
	if neg {
		f = -f
	}
	return f, nil
}
