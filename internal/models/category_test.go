package models

import (
	"errors"
	"math"
	"testing"
)

func TestNewCategory(t *testing.T) {
	c, err := NewCategory("  Phishing ", 0.2, 100, 200)
	if err != nil {
		t.Fatalf("NewCategory() error = %v", err)
	}
	if c.Name != "Phishing" {
		t.Errorf("Name = %q, want %q", c.Name, "Phishing")
	}
}

func TestCategory_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cat       Category
		wantField string
	}{
		{"valid", Category{Name: "a", Probability: 0.5, LossLower: 1, LossUpper: 2}, ""},
		{"bounds equal", Category{Name: "a", Probability: 1, LossLower: 100, LossUpper: 100}, ""},
		{"zero probability", Category{Name: "a", Probability: 0, LossLower: 0, LossUpper: 0}, ""},
		{"missing name", Category{Probability: 0.5, LossLower: 1, LossUpper: 2}, "name"},
		{"probability above one", Category{Name: "a", Probability: 1.01, LossLower: 1, LossUpper: 2}, "probability"},
		{"negative probability", Category{Name: "a", Probability: -0.1, LossLower: 1, LossUpper: 2}, "probability"},
		{"nan probability", Category{Name: "a", Probability: math.NaN(), LossLower: 1, LossUpper: 2}, "probability"},
		{"negative lower", Category{Name: "a", Probability: 0.5, LossLower: -1, LossUpper: 2}, "loss_lower"},
		{"upper below lower", Category{Name: "a", Probability: 0.5, LossLower: 3, LossUpper: 2}, "loss_upper"},
		{"infinite upper", Category{Name: "a", Probability: 0.5, LossLower: 3, LossUpper: math.Inf(1)}, "loss_upper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	ve := &ValidationError{Field: "probability", Value: 1.5, Row: 3, Reason: "must be within [0, 1]"}
	if got, want := ve.Error(), "validation failed: row 3: probability=1.5: must be within [0, 1]"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	ce := &ConfigurationError{Field: "trials", Value: 0, Reason: "must be >= 1"}
	if got, want := ce.Error(), "invalid configuration: trials=0: must be >= 1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	inner := errors.New("permission denied")
	se := &SourceReadError{Path: "cats.csv", Err: inner}
	if !errors.Is(se, inner) {
		t.Error("SourceReadError should unwrap to its cause")
	}
}
