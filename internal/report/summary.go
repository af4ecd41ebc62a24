package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nvandessel/riskloop/internal/constants"
)

// WriteSummary writes the human-readable summary printed after a run.
func (r *Report) WriteSummary(w io.Writer) error {
	ew := &errWriter{w: w}
	if r.RunID != "" {
		ew.printf("Run: %s\n", r.RunID)
	}
	ew.printf("Trials: %d (seed %d)\n", r.Trials, r.Seed)
	ew.printf("Summary Statistics:\n")
	ew.printf("Mean: %s\n", money(r.Summary.Mean))
	ew.printf("Median: %s\n", money(r.Summary.Median))
	ew.printf("Min: %s\n", money(r.Summary.Min))
	ew.printf("Max: %s\n", money(r.Summary.Max))
	ew.printf("Std Dev: %s\n", money(r.Summary.StdDev))
	ew.printf("Expected Loss (analytic): %s\n", money(r.ExpectedLoss))
	ew.printf("Risk Exposure at Different Confidence Levels:\n")
	for _, p := range r.Percentiles {
		ew.printf("%sth Percentile: %s\n", strconv.FormatFloat(p.Percentile, 'f', -1, 64), money(p.Value))
	}
	ew.printf("Exemplar Total (trial 0): %s\n", money(r.ExemplarSum))
	return ew.err
}

func money(v float64) string {
	return Dollars(v, constants.MoneyDecimals)
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
