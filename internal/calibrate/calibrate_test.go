package calibrate

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/riskloop/internal/models"
)

func TestQuantiles(t *testing.T) {
	assert.InDelta(t, 3.09023, zExtreme, 1e-5)
	assert.InDelta(t, 1.64485, zTarget, 1e-5)
}

func TestImplied_ReferenceVector(t *testing.T) {
	mean, std := Implied(0, 1_000_000)
	assert.Equal(t, 500_000.0, mean)
	assert.InDelta(t, 161_800.13, std, 0.01)
}

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name      string
		lower     float64
		upper     float64
		wantLower float64
		wantUpper float64
	}{
		{"reference vector", 0, 1_000_000, 233_862.46, 766_137.54},
		{"narrow range", 1000, 2000, 1233.86, 1766.14},
		{"degenerate range", 250, 250, 250, 250},
		{"zero range at zero", 0, 0, 0, 0},
		{"negative extreme is not clamped", -1000, 1000, -532.28, 532.28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calibrate(tt.lower, tt.upper)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLower, got.Lower90)
			assert.Equal(t, tt.wantUpper, got.Upper90)
			assert.LessOrEqual(t, got.Lower90, got.Upper90)
		})
	}
}

func TestCalibrate_IntervalIsSymmetric(t *testing.T) {
	got, err := Calibrate(10, 1_000_010)
	require.NoError(t, err)
	assert.InDelta(t, 500_010, got.Midpoint(), 0.01)
	assert.InDelta(t, 532_275.07, got.Width(), 0.02)
}

func TestCalibrate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		lower     float64
		upper     float64
		wantField string
	}{
		{"upper below lower", 2000, 1000, "extreme_upper"},
		{"nan lower", math.NaN(), 10, "extreme_lower"},
		{"inf upper", 0, math.Inf(1), "extreme_upper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calibrate(tt.lower, tt.upper)
			require.Error(t, err)

			var ve *models.ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %T", err)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestCalibrateAll(t *testing.T) {
	got, err := CalibrateAll([]Pair{
		{ExtremeLower: 0, ExtremeUpper: 1_000_000},
		{ExtremeLower: 1000, ExtremeUpper: 2000},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Interval{Lower90: 233_862.46, Upper90: 766_137.54}, got[0])
	assert.Equal(t, Interval{Lower90: 1233.86, Upper90: 1766.14}, got[1])
}

func TestCalibrateAll_ReportsRow(t *testing.T) {
	_, err := CalibrateAll([]Pair{
		{ExtremeLower: 0, ExtremeUpper: 10},
		{ExtremeLower: 10, ExtremeUpper: 0},
	})

	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 2, ve.Row)
}

func TestCalibrateAll_Empty(t *testing.T) {
	got, err := CalibrateAll(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 1.24, RoundMoney(1.235))
	assert.Equal(t, -1.24, RoundMoney(-1.235))
	assert.Equal(t, 0.0, RoundMoney(0.004))
}
