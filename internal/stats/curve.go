package stats

import (
	"sort"
)

// ExceedanceCurve is the empirical step function P(loss >= x) over a run's
// totals. It is immutable after construction.
type ExceedanceCurve struct {
	sorted []float64
}

// NewExceedanceCurve sorts a copy of totals. totals is not modified.
func NewExceedanceCurve(totals []float64) *ExceedanceCurve {
	return &ExceedanceCurve{sorted: sortedCopy(totals)}
}

// Len returns the number of totals behind the curve.
func (c *ExceedanceCurve) Len() int {
	return len(c.sorted)
}

// Min returns the smallest total, or 0 for an empty curve.
func (c *ExceedanceCurve) Min() float64 {
	if len(c.sorted) == 0 {
		return 0
	}
	return c.sorted[0]
}

// Max returns the largest total, or 0 for an empty curve.
func (c *ExceedanceCurve) Max() float64 {
	if len(c.sorted) == 0 {
		return 0
	}
	return c.sorted[len(c.sorted)-1]
}

// Probability returns the fraction of totals >= x, that is 1 - rank(x)/N
// where rank(x) counts totals strictly below x. The result is in [0, 1] and
// non-increasing in x. An empty curve returns 0 everywhere.
func (c *ExceedanceCurve) Probability(x float64) float64 {
	n := len(c.sorted)
	if n == 0 {
		return 0
	}
	rank := sort.SearchFloat64s(c.sorted, x)
	return 1 - float64(rank)/float64(n)
}

// Point is one sampled (loss, probability) pair of the curve.
type Point struct {
	Loss        float64 `json:"loss"`
	Probability float64 `json:"probability"`
}

// At evaluates the curve at every x, in order.
func (c *ExceedanceCurve) At(xs []float64) []Point {
	out := make([]Point, len(xs))
	for i, x := range xs {
		out[i] = Point{Loss: x, Probability: c.Probability(x)}
	}
	return out
}
