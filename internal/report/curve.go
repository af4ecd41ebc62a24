package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/nvandessel/riskloop/internal/constants"
	"github.com/nvandessel/riskloop/internal/stats"
)

// LogGrid returns points log-spaced losses from max(1, minLoss) to
// CurveHeadroom*maxLoss, both ends included. When that range is empty a
// single point at the start is returned.
func LogGrid(minLoss, maxLoss float64, points int) []float64 {
	lo := math.Max(1, minLoss)
	hi := constants.CurveHeadroom * maxLoss
	if points < 2 || !(hi > lo) {
		return []float64{lo}
	}

	logLo, logHi := math.Log10(lo), math.Log10(hi)
	step := (logHi - logLo) / float64(points-1)
	grid := make([]float64, points)
	for i := range grid {
		grid[i] = math.Pow(10, logLo+float64(i)*step)
	}
	grid[0], grid[points-1] = lo, hi
	return grid
}

// WriteCurveCSV writes curve points as a loss,probability CSV.
func WriteCurveCSV(w io.Writer, pts []stats.Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"loss", "probability"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range pts {
		row := []string{
			strconv.FormatFloat(p.Loss, 'f', 2, 64),
			strconv.FormatFloat(p.Probability, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
