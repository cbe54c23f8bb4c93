package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/trebsim/internal/dynamo"
)

// RK4 is the classic four-stage Runge-Kutta stepper. It keeps scratch
// buffers between calls and is not safe for concurrent use.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// Step returns a new state; x is left untouched.
func (r *RK4) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	if !stage(r.k1, dyn.Derive(x, t)) {
		return nanState(n)
	}

	floats.AddScaledTo(r.scratch, x, dt*0.5, r.k1)
	if !stage(r.k2, dyn.Derive(r.scratch, t+dt*0.5)) {
		return nanState(n)
	}

	floats.AddScaledTo(r.scratch, x, dt*0.5, r.k2)
	if !stage(r.k3, dyn.Derive(r.scratch, t+dt*0.5)) {
		return nanState(n)
	}

	floats.AddScaledTo(r.scratch, x, dt, r.k3)
	if !stage(r.k4, dyn.Derive(r.scratch, t+dt)) {
		return nanState(n)
	}

	// x + dt/6 (k1 + 2k2 + 2k3 + k4)
	dt6 := dt / 6.0
	result := x.Clone()
	floats.AddScaled(result, dt6, r.k1)
	floats.AddScaled(result, 2*dt6, r.k2)
	floats.AddScaled(result, 2*dt6, r.k3)
	floats.AddScaled(result, dt6, r.k4)
	return result
}

// stage copies a derivative into its buffer, rejecting the wrong length.
func stage(dst, k dynamo.State) bool {
	if len(k) != len(dst) {
		return false
	}
	copy(dst, k)
	return true
}
