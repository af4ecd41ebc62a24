package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExceedanceCurve_Probability(t *testing.T) {
	c := NewExceedanceCurve([]float64{30, 10, 20, 20})

	tests := []struct {
		x    float64
		want float64
	}{
		{0, 1},
		{10, 1},
		{15, 0.75},
		{20, 0.75},
		{20.5, 0.25},
		{30, 0.25},
		{30.0001, 0},
		{1e12, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Probability(tt.x), "x=%v", tt.x)
	}
}

func TestExceedanceCurve_Monotone(t *testing.T) {
	c := NewExceedanceCurve([]float64{0, 0, 5, 17, 17, 90, 1200, 1200, 5000})
	prev := 1.0
	for x := -10.0; x < 6000; x += 7.5 {
		p := c.Probability(x)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		assert.LessOrEqual(t, p, prev, "P(%v) increased", x)
		prev = p
	}
	assert.Equal(t, 0.0, c.Probability(c.Max()+1))
}

func TestExceedanceCurve_AllZero(t *testing.T) {
	c := NewExceedanceCurve(make([]float64, 100))
	assert.Equal(t, 1.0, c.Probability(0))
	assert.Equal(t, 0.0, c.Probability(0.01))
	assert.Equal(t, 0.0, c.Max())
}

func TestExceedanceCurve_Empty(t *testing.T) {
	c := NewExceedanceCurve(nil)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0.0, c.Probability(0))
	assert.Equal(t, 0.0, c.Min())
}

func TestExceedanceCurve_At(t *testing.T) {
	c := NewExceedanceCurve([]float64{1, 2})
	got := c.At([]float64{1, 1.5, 3})
	assert.Equal(t, []Point{{1, 1}, {1.5, 0.5}, {3, 0}}, got)
}

func TestNewExceedanceCurve_CopiesInput(t *testing.T) {
	totals := []float64{3, 2, 1}
	c := NewExceedanceCurve(totals)
	totals[0] = 0
	assert.Equal(t, 3.0, c.Max())
}
