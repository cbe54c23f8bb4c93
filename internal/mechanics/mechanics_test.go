package mechanics

import (
	"math"
	"testing"

	"github.com/san-kum/trebsim/internal/config"
)

func props() config.TrebuchetProperties {
	p := config.CreateConfig().Trebuchet
	p.SpringConstant = 100
	p.DampingCoefficient = 2
	p.EquilibriumAngle = 0.5
	p.FlexuralStiffness = 10
	return p
}

func f64(v float64) *float64 { return &v }

func TestSpringTorque(t *testing.T) {
	p := props()
	tests := []struct {
		name  string
		angle float64
		omega float64
		prev  *float64
		want  float64
	}{
		{"at equilibrium", 0.5, 0, nil, 0},
		{"displaced", 0.6, 0, nil, -100 * 0.1},
		{"damped", 0.5, 3, nil, -6},
		{"loading, no hysteresis", 0.7, 0, f64(0.6), -100 * 0.2},
		{"unloading adds hysteresis", 0.6, 0, f64(0.7), -100*0.1 + 0.1*100*0.1},
		{"negative side unloading", 0.4, 0, f64(0.3), 100*0.1 - 0.1*100*0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SpringTorque(tt.angle, tt.omega, p, tt.prev)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SpringTorque() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJointFriction(t *testing.T) {
	p := props()
	smooth := p
	smooth.JointFriction = 0
	mu := p.JointFriction * PinRadius

	tests := []struct {
		name   string
		omega  float64
		props  config.TrebuchetProperties
		normal float64
		want   float64
	}{
		{"at rest", 0, p, 1000, 0},
		{"inside deadband", 0.005, p, 1000, 0},
		{"inside deadband, reversed", -0.0099, p, 1000, 0},
		{"forward", 1, p, 1000, -mu * 1000},
		{"backward", -2, p, 1000, mu * 1000},
		{"normal force sign ignored", 1, p, -1000, -mu * 1000},
		{"frictionless pin", 5, smooth, 1000, 0},
		{"unloaded pin", 5, p, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JointFriction(tt.omega, tt.props, tt.normal)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("JointFriction(%v) = %v, want %v", tt.omega, got, tt.want)
			}
		})
	}
}

func TestFlexureOpposesMotionAwayFromEquilibrium(t *testing.T) {
	p := props()
	if got := FlexureTorque(0.7, 1, p); got >= 0 {
		t.Errorf("expected negative flexure torque, got %v", got)
	}
	if got := FlexureTorque(0.5, 1, p); got != 0 {
		t.Errorf("expected zero at equilibrium, got %v", got)
	}
}

func TestCatapultTorqueBreakdown(t *testing.T) {
	p := props()
	p.Efficiency = 0.8
	b := CatapultTorque(0.9, 2, p, 500, nil)

	sum := b.Spring + b.Friction + b.Flexure
	if math.Abs(b.Total-0.8*sum) > 1e-12 {
		t.Errorf("total %v != 0.8 * %v", b.Total, sum)
	}
	if b.Spring != SpringTorque(0.9, 2, p, nil) {
		t.Error("spring component mismatch")
	}
}

func TestCatapultTorqueDeterministic(t *testing.T) {
	p := props()
	a := CatapultTorque(1.234, -0.7, p, 321, f64(1.3))
	b := CatapultTorque(1.234, -0.7, p, 321, f64(1.3))
	if a != b {
		t.Errorf("non-deterministic: %+v vs %+v", a, b)
	}
}

func TestNormalForce(t *testing.T) {
	p := config.CreateConfig().Trebuchet
	want := (p.ArmMass + p.CounterweightMass) * 9.81
	if got := NormalForce(p, 9.81); got != want {
		t.Errorf("NormalForce() = %v, want %v", got, want)
	}
}
