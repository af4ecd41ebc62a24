package lossmodel

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/riskloop/internal/models"
)

func newRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func mustModel(t *testing.T, name string, p, lo, hi float64) Model {
	t.Helper()
	c, err := models.NewCategory(name, p, lo, hi)
	require.NoError(t, err)
	m, err := FromInterval(c)
	require.NoError(t, err)
	return m
}

func TestSample_ZeroProbability(t *testing.T) {
	m := mustModel(t, "never", 0, 100, 200)
	rng := newRNG()
	for i := 0; i < 1000; i++ {
		require.Equal(t, 0.0, m.Sample(rng))
	}
}

func TestSample_CertainFixedLoss(t *testing.T) {
	m := mustModel(t, "always", 1, 100, 100)
	rng := newRNG()
	for i := 0; i < 1000; i++ {
		require.Equal(t, 100.0, m.Sample(rng))
	}
}

func TestSample_WithinInterval(t *testing.T) {
	m := mustModel(t, "sometimes", 0.5, 1000, 2000)
	rng := newRNG()
	hits := 0
	for i := 0; i < 10_000; i++ {
		v := m.Sample(rng)
		if v == 0 {
			continue
		}
		hits++
		require.GreaterOrEqual(t, v, 1000.0)
		require.Less(t, v, 2000.0)
	}
	assert.InDelta(t, 5000, hits, 300)
}

func TestSample_DrawCount(t *testing.T) {
	// A miss consumes one value and a hit consumes two, so the stream
	// position after Sample is predictable from the outcome.
	miss := mustModel(t, "miss", 0, 1, 2)
	hit := mustModel(t, "hit", 1, 1, 2)

	a, b := newRNG(), newRNG()
	miss.Sample(a)
	b.Float64()
	assert.Equal(t, b.Uint64(), a.Uint64())

	a, b = newRNG(), newRNG()
	hit.Sample(a)
	b.Float64()
	b.Float64()
	assert.Equal(t, b.Uint64(), a.Uint64())
}

func TestSample_Deterministic(t *testing.T) {
	m := mustModel(t, "det", 0.3, 10, 5000)
	a, b := newRNG(), newRNG()
	for i := 0; i < 100; i++ {
		require.Equal(t, m.Sample(a), m.Sample(b))
	}
}

func TestFromExtremes(t *testing.T) {
	c, err := models.NewCategory("phishing", 0.25, 0, 1_000_000)
	require.NoError(t, err)

	m, err := FromExtremes(c)
	require.NoError(t, err)
	assert.Equal(t, 233_862.46, m.Interval().Lower90)
	assert.Equal(t, 766_137.54, m.Interval().Upper90)
	assert.Equal(t, "phishing", m.Category().Name)
	assert.InDelta(t, 0.25*500_000, m.ExpectedLoss(), 0.01)
}

func TestFromInterval_RejectsInvalidCategory(t *testing.T) {
	_, err := FromInterval(models.Category{Name: "bad", Probability: 1.5, LossLower: 0, LossUpper: 1})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "probability", ve.Field)
}
