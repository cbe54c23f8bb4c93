package physics

import (
	"log/slog"
	"math"

	"github.com/san-kum/trebsim/internal/dynamo"
	"github.com/san-kum/trebsim/internal/mechanics"
)

type EnergyBreakdown struct {
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
	Total     float64 `json:"total"`
}

func (e EnergyBreakdown) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("kinetic", e.Kinetic),
		slog.Float64("potential", e.Potential),
		slog.Float64("total", e.Total),
	)
}

// Energy implements dynamo.Hamiltonian. Potential energy is measured from
// the ground plane.
func (d *Dynamics) Energy(x dynamo.State) float64 {
	s, err := FromVector(x)
	if err != nil || s.NumParticles() != d.n {
		return math.NaN()
	}
	return d.StateEnergy(s).Total
}

// DissipatedPower implements dynamo.Dissipative: the rate at which
// non-conservative forces remove energy in state x.
func (d *Dynamics) DissipatedPower(x dynamo.State) float64 {
	s, err := FromVector(x)
	if err != nil || s.NumParticles() != d.n {
		return math.NaN()
	}
	return d.assemble(s).dissipated
}

func (d *Dynamics) StateEnergy(s *PhysicsState) EnergyBreakdown {
	tp := d.cfg.Trebuchet
	pp := d.cfg.Projectile
	g := d.cfg.Environment.Gravity
	geo := d.geom
	a := d.assemble(s)

	th, om := s.ArmAngle, s.ArmAngularVelocity
	ph, pd := s.CWAngle, s.CWAngularVelocity
	mc := tp.CounterweightMass

	m11 := geo.ArmMoment + mc*geo.ShortArm*geo.ShortArm
	m12 := mc * geo.ShortArm * geo.Hanger * math.Sin(th-ph)
	m22 := mc*geo.Hanger*geo.Hanger + tp.CounterweightInertia
	kinetic := 0.5*m11*om*om + m12*om*pd + 0.5*m22*pd*pd

	mp := math.Max(pp.Mass, minMass)
	kinetic += 0.5 * mp * s.Velocity.Dot(s.Velocity)
	wb := NormalizeQuat(s.Orientation).Conjugate().Rotate(s.AngularVelocity)
	inertia := principalInertia(pp)
	for i := range wb {
		kinetic += 0.5 * inertia[i] * wb[i] * wb[i]
	}

	potential := geo.ArmMass*g*geo.ArmCentre(th).Y() +
		mc*g*geo.CWCentre(th, ph).Y() +
		mp*g*s.Position.Y()
	for i := 0; i < d.n; i++ {
		v := s.ParticleVelocity(i)
		kinetic += 0.5 * d.particleMass * v.Dot(v)
		potential += d.particleMass * g * s.Particle(i).Y()
	}

	disp := th - tp.EquilibriumAngle
	potential += 0.5 * tp.Efficiency * tp.SpringConstant * disp * disp
	potential += a.springEnergy

	return EnergyBreakdown{
		Kinetic:   kinetic,
		Potential: potential,
		Total:     kinetic + potential,
	}
}

// ProjectileForces itemizes the forces on the projectile in state s.
func (d *Dynamics) ProjectileForces(s *PhysicsState) ProjectileForces {
	return d.assemble(s).projectile
}

// SlingLoads reports segment tensions and the chain length in state s.
func (d *Dynamics) SlingLoads(s *PhysicsState) SlingLoads {
	return d.assemble(s).sling
}

// JointTorque itemizes the arm joint torque in state s.
func (d *Dynamics) JointTorque(s *PhysicsState) mechanics.TorqueBreakdown {
	return d.assemble(s).joint
}
