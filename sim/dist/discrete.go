package dist

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// IntDistribution samples non-negative counts.
type IntDistribution interface {
	Sample(rng *rand.Rand) int
	String() string
}

// IntConstant always returns Value.
type IntConstant struct {
	Value int
}

func (d IntConstant) Sample(_ *rand.Rand) int { return d.Value }
func (d IntConstant) String() string          { return fmt.Sprintf("IntConstant(%d)", d.Value) }

// IntPERT is a discretised PERT distribution over [Low, High]. It samples the
// continuous PERT(low-mode-0.5, 0, high-mode+0.5), rounds towards zero and
// shifts by Mode, so every integer in range keeps a non-zero probability and
// Mode stays the most likely value.
type IntPERT struct {
	Low, Mode, High int
}

func (d IntPERT) Sample(rng *rand.Rand) int {
	if d.High <= d.Low {
		return d.Low
	}
	p := NewPERT(float64(d.Low-d.Mode)-0.5, 0, float64(d.High-d.Mode)+0.5)
	v := int(p.Sample(rng)) + d.Mode
	// The +/-0.5 margins can only reach the bounds exactly at probability zero.
	return min(max(v, d.Low), d.High)
}

func (d IntPERT) String() string {
	return fmt.Sprintf("IntPERT(%d, %d, %d)", d.Low, d.Mode, d.High)
}

// IntSpec parameterizes a count distribution.
type IntSpec struct {
	Type string `yaml:"type"`
	Low  int    `yaml:"low,omitempty"`
	Mode int    `yaml:"mode"`
	High int    `yaml:"high,omitempty"`
}

// Validate checks the type name and the parameter ordering.
func (s IntSpec) Validate() error {
	switch strings.ToLower(s.Type) {
	case "constant":
		if s.Mode < 0 {
			return fmt.Errorf("constant count must be non-negative, got %d", s.Mode)
		}
		return nil
	case "int_pert", "intpert":
		if s.Low < 0 || s.Mode < s.Low || s.High < s.Mode {
			return fmt.Errorf("int_pert requires 0 <= low <= mode <= high, got (%d, %d, %d)", s.Low, s.Mode, s.High)
		}
		return nil
	default:
		return fmt.Errorf("unknown count distribution type %q", s.Type)
	}
}

// Min returns the smallest value the spec can produce.
func (s IntSpec) Min() int {
	if strings.ToLower(s.Type) == "constant" {
		return s.Mode
	}
	return s.Low
}

// NewInt builds an IntDistribution from spec.
func NewInt(spec IntSpec) (IntDistribution, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if strings.ToLower(spec.Type) == "constant" {
		return IntConstant{Value: spec.Mode}, nil
	}
	return IntPERT{Low: spec.Low, Mode: spec.Mode, High: spec.High}, nil
}

// Poisson draws an arrival count with mean lambda. Non-positive or
// non-finite rates yield zero arrivals without consuming randomness.
func Poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: rng}.Rand())
}

// Bernoulli returns true with probability p.
func Bernoulli(rng *rand.Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rng.Float64() < p
}

// Categorical returns the index of the branch drawn from probs. Any mass left
// over after the listed probabilities goes to the final index len(probs),
// which lets callers name only the explicit branches and treat the remainder
// as the default.
func Categorical(rng *rand.Rand, probs ...float64) int {
	u := rng.Float64()
	cum := 0.0
	for i, p := range probs {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(probs)
}
