// Package calibrate converts "extreme" loss estimates into calibrated 90%
// confidence intervals.
//
// The extreme bounds are read as a 99.8% two-sided interval of a normally
// distributed loss (0.1% of mass excluded on each tail). The implied normal is
// then re-cut at the 5th and 95th percentiles. The normal is taken on the raw
// loss scale, so a negative extreme lower bound produces a negative lower90;
// that value is returned as-is.
package calibrate

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nvandessel/riskloop/internal/constants"
	"github.com/nvandessel/riskloop/internal/models"
)

var (
	zExtreme = distuv.UnitNormal.Quantile(constants.ExtremeCoverage)
	zTarget  = distuv.UnitNormal.Quantile(constants.TargetCoverage)
)

// Interval is a calibrated 90% loss interval. Lower90 <= Upper90.
type Interval struct {
	Lower90 float64 `json:"lower90" yaml:"lower90"`
	Upper90 float64 `json:"upper90" yaml:"upper90"`
}

// Width returns Upper90 - Lower90.
func (iv Interval) Width() float64 {
	return iv.Upper90 - iv.Lower90
}

// Midpoint returns the centre of the interval.
func (iv Interval) Midpoint() float64 {
	return (iv.Lower90 + iv.Upper90) / 2
}

// Implied returns the mean and standard deviation of the normal distribution
// whose 0.1% and 99.9% quantiles are extremeLower and extremeUpper.
func Implied(extremeLower, extremeUpper float64) (mean, std float64) {
	mean = (extremeLower + extremeUpper) / 2
	std = (extremeUpper - extremeLower) / (2 * zExtreme)
	return mean, std
}

// Calibrate returns the 90% interval implied by a pair of extreme estimates.
// Both bounds are rounded to two decimals.
func Calibrate(extremeLower, extremeUpper float64) (Interval, error) {
	if math.IsNaN(extremeLower) || math.IsInf(extremeLower, 0) {
		return Interval{}, &models.ValidationError{Field: "extreme_lower", Value: extremeLower, Reason: "must be finite"}
	}
	if math.IsNaN(extremeUpper) || math.IsInf(extremeUpper, 0) {
		return Interval{}, &models.ValidationError{Field: "extreme_upper", Value: extremeUpper, Reason: "must be finite"}
	}
	if extremeUpper < extremeLower {
		return Interval{}, &models.ValidationError{
			Field:  "extreme_upper",
			Value:  extremeUpper,
			Reason: fmt.Sprintf("must be >= extreme_lower (%v)", extremeLower),
		}
	}

	mean, std := Implied(extremeLower, extremeUpper)
	return Interval{
		Lower90: RoundMoney(mean - zTarget*std),
		Upper90: RoundMoney(mean + zTarget*std),
	}, nil
}

// Pair is one (extreme_lower, extreme_upper) input to CalibrateAll.
type Pair struct {
	ExtremeLower float64
	ExtremeUpper float64
}

// CalibrateAll calibrates every pair in order. It stops at the first invalid
// pair and reports its 1-based position as the error row.
func CalibrateAll(pairs []Pair) ([]Interval, error) {
	out := make([]Interval, len(pairs))
	for i, p := range pairs {
		iv, err := Calibrate(p.ExtremeLower, p.ExtremeUpper)
		if err != nil {
			if ve, ok := err.(*models.ValidationError); ok {
				ve.Row = i + 1
			}
			return nil, err
		}
		out[i] = iv
	}
	return out, nil
}

// RoundMoney rounds v to constants.MoneyDecimals places, half away from zero.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(constants.MoneyDecimals).InexactFloat64()
}
