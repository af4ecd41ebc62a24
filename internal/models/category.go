// Package models defines the domain types shared by the riskloop packages.
package models

import (
	"math"
	"strings"
)

// Category is one independent risk category: the chance it occurs in a year
// and the range of loss it causes when it does.
//
// Depending on how the category was sourced, LossLower/LossUpper hold either
// extreme (99.8%) estimates or already-calibrated 90% bounds; the loss model
// constructors decide which.
type Category struct {
	Name        string  `json:"name" yaml:"name"`
	Probability float64 `json:"probability" yaml:"probability"`
	LossLower   float64 `json:"loss_lower" yaml:"loss_lower"`
	LossUpper   float64 `json:"loss_upper" yaml:"loss_upper"`

	// Count is the number of incidents the probability was derived from.
	// Zero when unknown.
	Count int `json:"count,omitempty" yaml:"count,omitempty"`
}

// NewCategory builds a Category after checking the range invariants.
// The returned value is a copy; callers never share mutable state through it.
func NewCategory(name string, probability, lossLower, lossUpper float64) (Category, error) {
	c := Category{
		Name:        strings.TrimSpace(name),
		Probability: probability,
		LossLower:   lossLower,
		LossUpper:   lossUpper,
	}
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	return c, nil
}

// Validate checks the structural and range constraints of the category.
func (c Category) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Value: `""`, Reason: "is required"}
	}
	if math.IsNaN(c.Probability) || c.Probability < 0 || c.Probability > 1 {
		return &ValidationError{Field: "probability", Value: c.Probability, Reason: "must be within [0, 1]"}
	}
	if !isFinite(c.LossLower) || c.LossLower < 0 {
		return &ValidationError{Field: "loss_lower", Value: c.LossLower, Reason: "must be a finite value >= 0"}
	}
	if !isFinite(c.LossUpper) {
		return &ValidationError{Field: "loss_upper", Value: c.LossUpper, Reason: "must be finite"}
	}
	if c.LossUpper < c.LossLower {
		return &ValidationError{Field: "loss_upper", Value: c.LossUpper, Reason: "must be >= loss_lower"}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
