package dist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntPERT_CoversRangeAndFavoursMode(t *testing.T) {
	// GIVEN IntPERT(2, 4, 10)
	d := IntPERT{Low: 2, Mode: 4, High: 10}
	rng := newRNG(11)
	counts := make(map[int]int)

	// WHEN sampled many times
	for i := 0; i < 50000; i++ {
		counts[d.Sample(rng)]++
	}

	// THEN all values lie in [2, 10], the tails occur, and the mode is most frequent
	for v := range counts {
		assert.GreaterOrEqual(t, v, 2)
		assert.LessOrEqual(t, v, 10)
	}
	assert.Positive(t, counts[2])
	assert.Positive(t, counts[9])
	for v, c := range counts {
		if v != 4 {
			assert.Greater(t, counts[4], c, "value %d outdrew the mode", v)
		}
	}
}

func TestIntSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    IntSpec
		wantErr bool
		wantMin int
	}{
		{"constant", IntSpec{Type: "constant", Mode: 3}, false, 3},
		{"int_pert", IntSpec{Type: "int_pert", Low: 1, Mode: 2, High: 4}, false, 1},
		{"unordered", IntSpec{Type: "int_pert", Low: 3, Mode: 2, High: 4}, true, 0},
		{"negative low", IntSpec{Type: "int_pert", Low: -1, Mode: 2, High: 4}, true, 0},
		{"unknown", IntSpec{Type: "poisson", Mode: 2}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewInt(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, d)
			assert.Equal(t, tt.wantMin, tt.spec.Min())
		})
	}
}

func TestPoisson_DegenerateRates_ConsumeNoRandomness(t *testing.T) {
	for _, lambda := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		a, b := newRNG(5), newRNG(5)
		assert.Equal(t, 0, Poisson(a, lambda))
		assert.Equal(t, b.Uint64(), a.Uint64(), "lambda=%v consumed a draw", lambda)
	}
}

func TestPoisson_MeanMatchesRate(t *testing.T) {
	rng := newRNG(8)
	total := 0
	const n = 20000
	for i := 0; i < n; i++ {
		total += Poisson(rng, 3)
	}
	assert.InDelta(t, 3.0, float64(total)/n, 0.05)
}

func TestBernoulli_Extremes(t *testing.T) {
	a, b := newRNG(1), newRNG(1)
	assert.False(t, Bernoulli(a, 0))
	assert.True(t, Bernoulli(a, 1))
	assert.Equal(t, b.Uint64(), a.Uint64(), "certain outcomes consumed a draw")
}

func TestCategorical_RemainderGoesToLastIndex(t *testing.T) {
	rng := newRNG(2)
	assert.Equal(t, 2, Categorical(rng, 0, 0))
	assert.Equal(t, 0, Categorical(rng, 1, 0))

	counts := make([]int, 3)
	for i := 0; i < 30000; i++ {
		counts[Categorical(rng, 0.2, 0.5)]++
	}
	assert.InDelta(t, 0.2, float64(counts[0])/30000, 0.02)
	assert.InDelta(t, 0.5, float64(counts[1])/30000, 0.02)
	assert.InDelta(t, 0.3, float64(counts[2])/30000, 0.02)
}
