// Package dist samples task durations, block counts, arrival counts and
// branch decisions. Every draw takes the caller's *rand.Rand so a run is
// reproducible from its seed; nothing here holds random state.
package dist

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultPERTShape is the concentration factor of the PERT distribution.
// The mean is (low + shape*mode + high) / (shape + 2).
const DefaultPERTShape = 4.0

// Distribution is a continuous duration model. Sample returns seconds.
type Distribution interface {
	Sample(rng *rand.Rand) float64
	Mean() float64
	String() string
}

// Constant always returns Value and consumes no randomness.
type Constant struct {
	Value float64
}

func (d Constant) Sample(_ *rand.Rand) float64 { return d.Value }
func (d Constant) Mean() float64               { return d.Value }
func (d Constant) String() string              { return fmt.Sprintf("Constant(%g)", d.Value) }

// Triangular is the three-point triangular distribution.
type Triangular struct {
	Low, Mode, High float64
}

func (d Triangular) Sample(rng *rand.Rand) float64 {
	if d.High <= d.Low {
		return d.Low
	}
	return distuv.NewTriangle(d.Low, d.High, d.Mode, rng).Rand()
}

func (d Triangular) Mean() float64 { return (d.Low + d.Mode + d.High) / 3 }

func (d Triangular) String() string {
	return fmt.Sprintf("Triangular(low=%g, mode=%g, high=%g)", d.Low, d.Mode, d.High)
}

// PERT is a Beta distribution rescaled to [Low, High], with shape parameters
// derived from the mode so that more mass sits near it than in Triangular.
type PERT struct {
	Low, Mode, High float64
	Shape           float64
}

// NewPERT returns a PERT distribution with the default concentration.
func NewPERT(low, mode, high float64) PERT {
	return PERT{Low: low, Mode: mode, High: high, Shape: DefaultPERTShape}
}

// Alpha and Beta are the shape parameters of the underlying Beta distribution.
func (d PERT) Alpha() float64 { return 1 + d.Shape*(d.Mode-d.Low)/(d.High-d.Low) }
func (d PERT) Beta() float64  { return 1 + d.Shape*(d.High-d.Mode)/(d.High-d.Low) }

func (d PERT) Sample(rng *rand.Rand) float64 {
	if d.High <= d.Low {
		return d.Low
	}
	b := distuv.Beta{Alpha: d.Alpha(), Beta: d.Beta(), Src: rng}
	return d.Low + b.Rand()*(d.High-d.Low)
}

func (d PERT) Mean() float64 {
	return (d.Low + d.Shape*d.Mode + d.High) / (d.Shape + 2)
}

func (d PERT) String() string {
	return fmt.Sprintf("PERT(low=%g, mode=%g, high=%g, shape=%g)", d.Low, d.Mode, d.High, d.Shape)
}

// TimeUnitSeconds returns the number of seconds in a time unit. Only the
// first letter is significant, so "m", "min" and "minutes" are equivalent.
func TimeUnitSeconds(unit string) (float64, error) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return 0, fmt.Errorf("empty time unit")
	}
	switch u[0] {
	case 's':
		return 1, nil
	case 'm':
		return 60, nil
	case 'h':
		return 3600, nil
	default:
		return 0, fmt.Errorf("unknown time unit %q", unit)
	}
}

// Spec parameterizes a duration distribution in a given time unit.
type Spec struct {
	Type     string  `yaml:"type"`
	Low      float64 `yaml:"low,omitempty"`
	Mode     float64 `yaml:"mode"`
	High     float64 `yaml:"high,omitempty"`
	TimeUnit string  `yaml:"time_unit"`
}

// Validate checks the type name, the time unit and the parameter ordering.
func (s Spec) Validate() error {
	if _, err := TimeUnitSeconds(s.TimeUnit); err != nil {
		return err
	}
	for _, v := range []float64{s.Low, s.Mode, s.High} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite parameter in %s distribution", s.Type)
		}
	}
	switch strings.ToLower(s.Type) {
	case "constant":
		if s.Mode < 0 {
			return fmt.Errorf("constant value must be non-negative, got %g", s.Mode)
		}
		return nil
	case "triangular", "pert":
		if s.Low < 0 {
			return fmt.Errorf("%s low must be non-negative, got %g", s.Type, s.Low)
		}
		if s.Mode < s.Low {
			return fmt.Errorf("%s requires mode >= low, got low=%g mode=%g", s.Type, s.Low, s.Mode)
		}
		if s.High < s.Mode {
			return fmt.Errorf("%s requires high >= mode, got mode=%g high=%g", s.Type, s.Mode, s.High)
		}
		return nil
	default:
		return fmt.Errorf("unknown distribution type %q", s.Type)
	}
}

// New builds a Distribution from spec, converting its parameters to seconds.
func New(spec Spec) (Distribution, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	f, _ := TimeUnitSeconds(spec.TimeUnit)
	switch strings.ToLower(spec.Type) {
	case "constant":
		return Constant{Value: spec.Mode * f}, nil
	case "triangular":
		return Triangular{Low: spec.Low * f, Mode: spec.Mode * f, High: spec.High * f}, nil
	default:
		return NewPERT(spec.Low*f, spec.Mode*f, spec.High*f), nil
	}
}

// Minutes is shorthand for a constant duration spec, mostly for tests and defaults.
func Minutes(v float64) Spec {
	return Spec{Type: "constant", Mode: v, TimeUnit: "m"}
}
