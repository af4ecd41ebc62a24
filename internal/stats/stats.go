// Package stats derives descriptive statistics, percentiles and an empirical
// exceedance curve from a sequence of simulated total losses. It knows nothing
// about how the totals were produced.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nvandessel/riskloop/internal/lossmodel"
	"github.com/nvandessel/riskloop/internal/models"
)

// Summary holds descriptive statistics of the totals.
// StdDev is the population standard deviation (divides by N, not N-1).
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// PercentileValue is one row of the percentile table.
type PercentileValue struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// Analysis bundles everything derived from one run's totals.
type Analysis struct {
	Summary     Summary           `json:"summary"`
	Percentiles []PercentileValue `json:"percentiles"`
	Curve       *ExceedanceCurve  `json:"-"`
}

// Summarize computes the summary statistics of totals. It returns the zero
// Summary for an empty slice.
func Summarize(totals []float64) Summary {
	return summarizeSorted(sortedCopy(totals))
}

func summarizeSorted(sorted []float64) Summary {
	n := len(sorted)
	if n == 0 {
		return Summary{}
	}
	mean, std := stat.PopMeanStdDev(sorted, nil)
	return Summary{
		Mean:   mean,
		Median: median(sorted),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		StdDev: std,
	}
}

// median averages the two middle order statistics when len(sorted) is even.
func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Percentile returns the p-th percentile of an ascending slice using linear
// interpolation between the order statistics bracketing rank (N-1)*p/100.
// p is not range-checked here; see Percentiles.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	h := float64(n-1) * p / 100
	lo := int(math.Floor(h))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// ValidatePercentiles checks that every requested level lies in (0, 100).
func ValidatePercentiles(ps []float64) error {
	for _, p := range ps {
		if math.IsNaN(p) || p <= 0 || p >= 100 {
			return &models.ConfigurationError{Field: "percentiles", Value: p, Reason: "must be within (0, 100)"}
		}
	}
	return nil
}

// Percentiles computes the table for each requested level, in request order.
func Percentiles(totals []float64, ps []float64) ([]PercentileValue, error) {
	if err := ValidatePercentiles(ps); err != nil {
		return nil, err
	}
	return percentilesSorted(sortedCopy(totals), ps), nil
}

func percentilesSorted(sorted []float64, ps []float64) []PercentileValue {
	out := make([]PercentileValue, len(ps))
	for i, p := range ps {
		out[i] = PercentileValue{Percentile: p, Value: Percentile(sorted, p)}
	}
	return out
}

// Analyze sorts totals once and derives the summary, percentile table and
// exceedance curve from that single sorted copy. totals is not modified.
func Analyze(totals []float64, ps []float64) (*Analysis, error) {
	if err := ValidatePercentiles(ps); err != nil {
		return nil, err
	}
	sorted := sortedCopy(totals)
	return &Analysis{
		Summary:     summarizeSorted(sorted),
		Percentiles: percentilesSorted(sorted, ps),
		Curve:       &ExceedanceCurve{sorted: sorted},
	}, nil
}

// ExpectedLoss is the analytic expected annual loss across models,
// the sum of probability times interval midpoint.
func ExpectedLoss(ms []lossmodel.Model) float64 {
	var total float64
	for _, m := range ms {
		total += m.ExpectedLoss()
	}
	return total
}

func sortedCopy(totals []float64) []float64 {
	sorted := slices.Clone(totals)
	slices.Sort(sorted)
	return sorted
}
