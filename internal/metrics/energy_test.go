package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/trebsim/internal/dynamo"
)

// damped is a unit oscillator with linear damping c, state [x, v].
type damped struct{ c float64 }

func (d damped) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func (d damped) DissipatedPower(x dynamo.State) float64 {
	return d.c * x[1] * x[1]
}

type lossy struct {
	damped
	loss float64
}

func (l lossy) ImpulsiveLoss() float64 { return l.loss }

func TestEnergyBalanceConservative(t *testing.T) {
	m := NewEnergyBalance(damped{})
	for i := 0; i <= 100; i++ {
		th := float64(i) * 0.01
		m.Observe(dynamo.State{math.Cos(th), -math.Sin(th)}, th)
	}
	if m.Value() > 1e-12 {
		t.Errorf("expected no drift, got %v", m.Value())
	}
	if m.Initial() != 0.5 {
		t.Errorf("expected initial energy 0.5, got %v", m.Initial())
	}
}

func TestEnergyBalanceCountsDissipatedWork(t *testing.T) {
	// Constant velocity: the dissipated work is c·v²·t.
	const c, v = 0.5, 2.0
	m := NewEnergyBalance(damped{c: c})
	m.Observe(dynamo.State{0, v}, 0)
	m.Observe(dynamo.State{0, v}, 1)

	if math.Abs(m.Work()-c*v*v) > 1e-12 {
		t.Errorf("expected work %v, got %v", c*v*v, m.Work())
	}
	if math.Abs(m.Balance()-(0.5*v*v+c*v*v)) > 1e-12 {
		t.Errorf("unexpected balance %v", m.Balance())
	}
}

func TestEnergyBalanceImpulsiveLoss(t *testing.T) {
	m := NewEnergyBalance(lossy{loss: 0.25})
	m.Observe(dynamo.State{1, 0}, 0)
	m.Observe(dynamo.State{0.5, 0}, 1)
	if m.Initial() != 0.75 {
		t.Errorf("unexpected initial balance %v", m.Initial())
	}
	if math.Abs(m.Balance()-0.375) > 1e-12 {
		t.Errorf("unexpected balance %v", m.Balance())
	}
}

func TestEnergyBalanceReset(t *testing.T) {
	m := NewEnergyBalance(damped{})
	m.Observe(dynamo.State{1, 0}, 0)
	m.Observe(dynamo.State{2, 0}, 1)
	if m.Value() == 0 {
		t.Fatal("expected non-zero drift")
	}

	m.Reset()
	if m.Value() != 0 || m.Drift() != 0 {
		t.Error("expected zero drift after reset")
	}
}
