package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/nvandessel/riskloop/internal/sanitize"
)

// Exemplar table headers. They match the layout of the risk register
// spreadsheets the table is pasted back into.
const (
	ColEvent       = "Event"
	ColCount       = "Count"
	ColProbability = "Probability of the event occurring in a year"
	ColLower90     = "Lower Bound of the 90% CI"
	ColUpper90     = "Upper Bound of the 90% CI"
	ColResult      = "Random Result (zero when the event did not occur)"
	TotalLabel     = "Total:"
)

// WriteExemplarCSV writes the trial 0 breakdown: one row per category in
// input order followed by a Total: row. Bounds and results are whole
// dollars; a category that did not occur shows 0. The Count column is
// included only when withCount is set.
func (r *Report) WriteExemplarCSV(w io.Writer, withCount bool) error {
	header := []string{ColEvent}
	if withCount {
		header = append(header, ColCount)
	}
	header = append(header, ColProbability, ColLower90, ColUpper90, ColResult)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range r.Exemplar {
		cells := []string{sanitize.CSVCell(row.Name)}
		if withCount {
			cells = append(cells, strconv.Itoa(row.Count))
		}
		cells = append(cells,
			strconv.FormatFloat(row.Probability, 'f', -1, 64),
			Dollars(row.Lower90, 0),
			Dollars(row.Upper90, 0),
			resultCell(row.Loss),
		)
		if err := cw.Write(cells); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	total := make([]string, len(header))
	total[0] = TotalLabel
	total[len(total)-1] = resultCell(r.ExemplarSum)
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("writing total row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// HasCounts reports whether any exemplar row carries an incident count.
func (r *Report) HasCounts() bool {
	for _, row := range r.Exemplar {
		if row.Count > 0 {
			return true
		}
	}
	return false
}

func resultCell(v float64) string {
	if v > 0 {
		return Dollars(v, 0)
	}
	return "0"
}
