package metrics

import (
	"math"

	"github.com/san-kum/trebsim/internal/dynamo"
)

// ImpulsiveLosser reports energy removed by discrete events rather than by
// a continuous force.
type ImpulsiveLosser interface {
	ImpulsiveLoss() float64
}

// EnergyBalance tracks mechanical energy plus the work done by
// non-conservative forces. The power reported through dynamo.Dissipative is
// integrated with the trapezoidal rule, so for a correctly integrated system
// the balance stays at its initial value.
type EnergyBalance struct {
	name string
	sys  dynamo.Hamiltonian
	diss dynamo.Dissipative
	loss ImpulsiveLosser

	samples   int
	initial   float64
	current   float64
	work      float64
	lastPower float64
	lastT     float64
	maxDrift  float64
}

// NewEnergyBalance watches sys. Dissipated power and impulsive losses are
// picked up when sys implements them.
func NewEnergyBalance(sys dynamo.Hamiltonian) *EnergyBalance {
	e := &EnergyBalance{name: "energy_balance", sys: sys}
	e.diss, _ = sys.(dynamo.Dissipative)
	e.loss, _ = sys.(ImpulsiveLosser)
	return e
}

func (e *EnergyBalance) Name() string { return e.name }

func (e *EnergyBalance) Observe(x dynamo.State, t float64) {
	energy := e.sys.Energy(x)
	power := 0.0
	if e.diss != nil {
		power = e.diss.DissipatedPower(x)
	}

	if e.samples > 0 {
		e.work += 0.5 * (power + e.lastPower) * (t - e.lastT)
	}
	e.lastPower, e.lastT = power, t

	e.current = energy + e.work
	if e.loss != nil {
		e.current += e.loss.ImpulsiveLoss()
	}
	if e.samples == 0 {
		e.initial = e.current
	}
	e.samples++
	e.maxDrift = math.Max(e.maxDrift, e.Drift())
}

// Drift is the current relative deviation of the balance from its initial
// value.
func (e *EnergyBalance) Drift() float64 {
	if e.samples == 0 || e.initial == 0 {
		return 0
	}
	return math.Abs(e.current-e.initial) / math.Abs(e.initial)
}

// Value is the largest drift seen so far.
func (e *EnergyBalance) Value() float64 { return e.maxDrift }

func (e *EnergyBalance) Initial() float64 { return e.initial }
func (e *EnergyBalance) Balance() float64 { return e.current }
func (e *EnergyBalance) Work() float64    { return e.work }

func (e *EnergyBalance) Reset() {
	e.samples = 0
	e.initial = 0
	e.current = 0
	e.work = 0
	e.lastPower = 0
	e.lastT = 0
	e.maxDrift = 0
}
