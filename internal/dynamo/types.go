package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// State is the flat vector an integrator advances.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, 2)
}

// Equal reports bit-for-bit equality, treating NaN as equal to NaN.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if math.Float64bits(s[i]) != math.Float64bits(other[i]) {
			return false
		}
	}
	return true
}

type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

// Dissipative systems report the instantaneous power removed by
// non-conservative forces (positive when energy leaves the system).
type Dissipative interface {
	DissipatedPower(x State) float64
}

type Stepper interface {
	Step(dyn System, x State, t float64, dt float64) State
}

type Observer interface {
	OnStep(x State, t float64)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}
