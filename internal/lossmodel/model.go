// Package lossmodel implements the per-category compound loss distribution:
// a Bernoulli occurrence draw followed, when the category occurs, by a uniform
// magnitude draw over the calibrated 90% interval.
package lossmodel

import (
	"math/rand/v2"

	"github.com/nvandessel/riskloop/internal/calibrate"
	"github.com/nvandessel/riskloop/internal/models"
)

// Model is the loss distribution of one category. It is immutable and safe to
// share across goroutines; all randomness comes from the rng passed to Sample.
type Model struct {
	category models.Category
	interval calibrate.Interval
}

// FromExtremes treats the category bounds as extreme (99.8%) estimates and
// calibrates them into a 90% interval.
func FromExtremes(c models.Category) (Model, error) {
	if err := c.Validate(); err != nil {
		return Model{}, err
	}
	iv, err := calibrate.Calibrate(c.LossLower, c.LossUpper)
	if err != nil {
		return Model{}, err
	}
	return Model{category: c, interval: iv}, nil
}

// FromInterval treats the category bounds as an already-calibrated 90% interval.
func FromInterval(c models.Category) (Model, error) {
	if err := c.Validate(); err != nil {
		return Model{}, err
	}
	return Model{
		category: c,
		interval: calibrate.Interval{Lower90: c.LossLower, Upper90: c.LossUpper},
	}, nil
}

// Category returns the category this model was built from.
func (m Model) Category() models.Category {
	return m.category
}

// Interval returns the calibrated interval magnitudes are drawn from.
func (m Model) Interval() calibrate.Interval {
	return m.interval
}

// Sample draws one annual loss. It consumes exactly one value from rng for the
// occurrence decision and, only when the category occurs, one more for the
// magnitude.
func (m Model) Sample(rng *rand.Rand) float64 {
	if rng.Float64() >= m.category.Probability {
		return 0
	}
	return m.interval.Lower90 + rng.Float64()*m.interval.Width()
}

// ExpectedLoss returns the analytic mean of the compound distribution:
// probability times the interval midpoint.
func (m Model) ExpectedLoss() float64 {
	return m.category.Probability * m.interval.Midpoint()
}
