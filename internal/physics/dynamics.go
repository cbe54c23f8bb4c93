package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/dynamo"
	"github.com/san-kum/trebsim/internal/mechanics"
)

// Denominator floors. None of them activates for in-range input.
const (
	minMass   = 1e-12
	minLength = 1e-6
	minCount  = 1
)

const (
	ropeRadius        = 0.01
	stiffnessCap      = 0.2 // fraction of m/h² the step can resolve
	materialShare     = 0.8
	driftGain         = 0.2
	slingDampingRatio = 0.5

	groundOmega        = 200.0
	groundDampingRatio = 0.5
	groundFriction     = 0.3
	frictionSmoothing  = 0.1 // m/s

	gripRelaxation = 0.05 // s
)

// Dynamics is the right-hand side of the trebuchet equations of motion.
//
// The arm and hinged counterweight form a two-degree-of-freedom Lagrangian
// block whose 2×2 mass matrix is solved directly. Sling particles and the
// projectile are free bodies joined by tension-only spring-dampers; the
// first segment hangs from the long-arm tip and feeds its reaction back into
// the arm as a generalized force.
//
// Derive never mutates its input. The only state Dynamics carries between
// steps is what it learns through OnStep: the release latch and the previous
// arm angle used for hysteresis.
type Dynamics struct {
	cfg  *config.SimulationConfig
	geom Geometry
	n    int

	particleMass float64
	restLength   float64
	kSpring      float64
	cDamp        float64
	normalForce  float64

	released    bool
	releaseLoss float64
	prevAngle   float64
	lastAngle   float64
	samples     int
}

func NewDynamics(cfg *config.SimulationConfig) *Dynamics {
	tp := cfg.Trebuchet
	n := max(tp.SlingParticles, 0)

	d := &Dynamics{
		cfg:          cfg,
		geom:         NewGeometry(tp),
		n:            n,
		particleMass: math.Max(tp.SlingMass/float64(max(n, minCount)), minMass),
		restLength:   tp.SlingLength / float64(max(n+1, minCount)),
		normalForce:  mechanics.NormalForce(tp, cfg.Environment.Gravity),
	}

	mMin := math.Max(cfg.Projectile.Mass, minMass)
	if n > 0 {
		mMin = math.Min(mMin, d.particleMass)
	}
	d.kSpring, d.cDamp = slingStiffness(cfg, d.restLength, mMin)
	return d
}

// slingStiffness turns the bulk rope modulus into a per-segment spring and
// caps it at what an explicit step of the configured size can resolve. The
// drift-correction gain is added on top of the material stiffness.
func slingStiffness(cfg *config.SimulationConfig, restLength, mMin float64) (k, c float64) {
	e := config.DefaultRopeStiffness
	if cfg.Trebuchet.RopeStiffness != nil {
		e = *cfg.Trebuchet.RopeStiffness
	}
	h := cfg.StepSize()
	area := math.Pi * ropeRadius * ropeRadius

	kMaterial := e * area / math.Max(restLength, minLength)
	kCap := stiffnessCap * mMin / (h * h)

	k = math.Min(kMaterial, materialShare*kCap) + driftGain*kCap
	c = 2 * slingDampingRatio * math.Sqrt(kCap*mMin)
	return k, c
}

func (d *Dynamics) StateDim() int             { return Dim(d.n) }
func (d *Dynamics) NumParticles() int         { return d.n }
func (d *Dynamics) Geometry() Geometry        { return d.geom }
func (d *Dynamics) RestLength() float64       { return d.restLength }
func (d *Dynamics) SegmentStiffness() float64 { return d.kSpring }

// Released reports whether the projectile has left the pouch.
func (d *Dynamics) Released() bool { return d.released }

// ImpulsiveLoss is the energy removed by discrete events, so far only the
// spring energy of the pouch segment at release.
func (d *Dynamics) ImpulsiveLoss() float64 { return d.releaseLoss }

// OnStep latches release once the arm reaches the release angle and records
// the arm angle for hysteresis.
func (d *Dynamics) OnStep(x dynamo.State, _ float64) {
	if len(x) <= idxArmAngle {
		return
	}
	angle := x[idxArmAngle]
	d.prevAngle, d.lastAngle = d.lastAngle, angle
	d.samples++

	if d.released || !(angle >= d.cfg.Trebuchet.ReleaseAngle) {
		return
	}
	if s, err := FromVector(x); err == nil {
		a := d.assemble(s)
		d.releaseLoss += a.pouchEnergy
	}
	d.released = true
}

// ResetLatch returns Dynamics to its pre-launch condition.
func (d *Dynamics) ResetLatch() {
	d.released = false
	d.releaseLoss = 0
	d.prevAngle, d.lastAngle = 0, 0
	d.samples = 0
}

func (d *Dynamics) previousAngle() *float64 {
	if d.samples < 2 {
		return nil
	}
	p := d.prevAngle
	return &p
}

// Derive returns the time derivative of x. A vector of the wrong shape yields
// NaN so that the integrator freezes instead of running on garbage.
func (d *Dynamics) Derive(x dynamo.State, _ float64) dynamo.State {
	s, err := FromVector(x)
	if err != nil || s.NumParticles() != d.n {
		out := make(dynamo.State, len(x))
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	return d.derivative(s).Vector()
}

func (d *Dynamics) derivative(s *PhysicsState) *PhysicsState {
	a := d.assemble(s)
	pp := d.cfg.Projectile
	cwAcc := d.geom.CWAcceleration(s.ArmAngle, s.ArmAngularVelocity, a.alpha,
		s.CWAngle, s.CWAngularVelocity, a.phiDDot)

	out := &PhysicsState{
		ArmAngle:           s.ArmAngularVelocity,
		ArmAngularVelocity: a.alpha,
		CWAngle:            s.CWAngularVelocity,
		CWAngularVelocity:  a.phiDDot,
		Time:               1,
		Position:           s.Velocity,
		Velocity:           a.projectile.Total.Mul(1 / math.Max(pp.Mass, minMass)),
		CWPosition:         s.CWVelocity,
		CWVelocity:         cwAcc,
		SlingParticles:     append([]float64(nil), s.SlingVelocities...),
		SlingVelocities:    make([]float64, len(s.SlingVelocities)),
	}
	for i, f := range a.particles {
		out.setParticleVelocity(i, f.Mul(1/d.particleMass))
	}

	// q̇ = ½ (0, ω) ⊗ q with ω in world axes.
	w := s.AngularVelocity
	out.Orientation = mgl64.Quat{W: 0, V: w}.Mul(s.Orientation).Scale(0.5)

	// Euler's equations in body axes.
	q := NormalizeQuat(s.Orientation)
	inv := q.Conjugate()
	wb := inv.Rotate(w)
	tb := inv.Rotate(a.gripTorque)
	inertia := principalInertia(pp)
	iw := mgl64.Vec3{inertia[0] * wb[0], inertia[1] * wb[1], inertia[2] * wb[2]}
	gyro := wb.Cross(iw)
	var wbDot mgl64.Vec3
	for i := range wbDot {
		wbDot[i] = (tb[i] - gyro[i]) / inertia[i]
	}
	out.AngularVelocity = q.Rotate(wbDot)
	return out
}

func principalInertia(pp config.ProjectileProperties) mgl64.Vec3 {
	var i mgl64.Vec3
	for k := range i {
		i[k] = math.Max(pp.MomentOfInertia[k], minMass)
	}
	return i
}

// ProjectileForces itemizes the forces on the projectile.
type ProjectileForces struct {
	Gravity     mgl64.Vec3
	Drag        mgl64.Vec3
	Magnus      mgl64.Vec3
	Tension     mgl64.Vec3
	Ground      mgl64.Vec3
	Total       mgl64.Vec3
	NormalForce float64
}

// SlingLoads describes the sling as seen by a renderer.
type SlingLoads struct {
	TipForce mgl64.Vec3 // pull of the first segment on the arm tip
	Tensions []float64  // per active segment, tip first
	Length   float64    // current length of the active chain
	Target   float64    // rest length of the active chain
}

type loads struct {
	alpha, phiDDot float64
	joint          mechanics.TorqueBreakdown

	tip        mgl64.Vec3
	particles  []mgl64.Vec3
	projectile ProjectileForces
	gripTorque mgl64.Vec3
	sling      SlingLoads

	springEnergy float64 // sling segments and ground contacts
	pouchEnergy  float64
	dissipated   float64
}

func (d *Dynamics) activeSegments() int {
	if d.released {
		return d.n
	}
	return d.n + 1
}

// assemble gathers every force acting in state s, the arm accelerations and
// the bookkeeping Energy and DissipatedPower need.
func (d *Dynamics) assemble(s *PhysicsState) *loads {
	tp := d.cfg.Trebuchet
	pp := d.cfg.Projectile
	env := d.cfg.Environment
	g := env.Gravity
	a := &loads{particles: make([]mgl64.Vec3, d.n)}

	th, om := s.ArmAngle, s.ArmAngularVelocity

	// Chain of points: arm tip, particles, projectile.
	pts := make([]mgl64.Vec3, d.n+2)
	vel := make([]mgl64.Vec3, d.n+2)
	pts[0] = d.geom.LongArmTip(th)
	vel[0] = d.geom.LongArmTipVelocity(th, om)
	for i := 0; i < d.n; i++ {
		pts[i+1] = s.Particle(i)
		vel[i+1] = s.ParticleVelocity(i)
	}
	pts[d.n+1] = s.Position
	vel[d.n+1] = s.Velocity

	forces := make([]mgl64.Vec3, d.n+2)
	active := d.activeSegments()
	a.sling.Tensions = make([]float64, 0, active)
	a.sling.Target = d.restLength * float64(active)
	for j := 0; j < d.n+1; j++ {
		seg := d.segment(pts[j], vel[j], pts[j+1], vel[j+1])
		if j == d.n {
			a.pouchEnergy = seg.energy
			if d.released {
				break
			}
		}
		forces[j+1] = forces[j+1].Add(seg.force)
		forces[j] = forces[j].Sub(seg.force)
		a.sling.Tensions = append(a.sling.Tensions, seg.tension)
		a.sling.Length += seg.length
		a.springEnergy += seg.energy
		a.dissipated += seg.power
	}
	a.tip = forces[0]
	a.sling.TipForce = forces[0]

	for i := 0; i < d.n; i++ {
		f := forces[i+1].Add(mgl64.Vec3{0, -d.particleMass * g, 0})
		c := groundContact(pts[i+1], vel[i+1], 0, d.particleMass)
		a.springEnergy += c.energy
		a.dissipated += c.power
		a.particles[i] = f.Add(c.force)
	}

	// Projectile.
	mp := math.Max(pp.Mass, minMass)
	pf := &a.projectile
	pf.Gravity = mgl64.Vec3{0, -mp * g, 0}
	pf.Tension = forces[d.n+1]
	if d.released {
		vRel := s.Velocity.Sub(s.WindVelocity)
		pf.Drag = vRel.Mul(-0.5 * env.AirDensity * pp.DragCoefficient * pp.Area * vRel.Len())
		pf.Magnus = s.AngularVelocity.Cross(vRel).Mul(pp.MagnusCoefficient * env.AirDensity * pp.Area * pp.Radius)
		a.dissipated -= pf.Drag.Add(pf.Magnus).Dot(s.Velocity)
	} else {
		a.gripTorque = d.grip(s, pts[d.n], vel[d.n])
		a.dissipated -= a.gripTorque.Dot(s.AngularVelocity)
	}
	c := groundContact(s.Position, s.Velocity, pp.Radius, mp)
	pf.Ground = c.force
	pf.NormalForce = c.normal
	a.springEnergy += c.energy
	a.dissipated += c.power
	pf.Total = pf.Gravity.Add(pf.Drag).Add(pf.Magnus).Add(pf.Tension).Add(pf.Ground)

	// Arm and counterweight.
	geo := d.geom
	mc, l1, l2, r := tp.CounterweightMass, geo.LongArm, geo.ShortArm, geo.Hanger
	ph, pd := s.CWAngle, s.CWAngularVelocity
	k := mc * l2 * r
	sd, cd := math.Sin(th-ph), math.Cos(th-ph)

	m11 := geo.ArmMoment + mc*l2*l2
	m12 := k * sd
	m22 := mc*r*r + tp.CounterweightInertia

	a.joint = mechanics.CatapultTorque(th, om, tp, d.normalForce, d.previousAngle())
	damping := -tp.AngularDamping * om
	conservative := -tp.Efficiency * tp.SpringConstant * (th - tp.EquilibriumAngle)
	a.dissipated -= (a.joint.Total + damping - conservative) * om

	qTheta := -geo.ArmMass*g*geo.ArmCOM*math.Cos(th) + mc*g*l2*math.Cos(th) +
		a.tip.Dot(perp(th))*l1 + a.joint.Total + damping
	qPhi := -mc * g * r * math.Sin(ph)

	a.alpha, a.phiDDot = solveMassMatrix(m11, m12, m22, qTheta+k*cd*pd*pd, qPhi-k*cd*om*om)
	return a
}

type segmentLoad struct {
	force   mgl64.Vec3 // on the far end
	tension float64
	length  float64
	energy  float64
	power   float64
}

// segment is a tension-only spring-damper. Slack segments carry no load.
func (d *Dynamics) segment(pa, va, pb, vb mgl64.Vec3) segmentLoad {
	delta := pb.Sub(pa)
	l := math.Max(delta.Len(), minLength)
	out := segmentLoad{length: l}
	stretch := l - d.restLength
	if stretch <= 0 {
		return out
	}
	u := delta.Mul(1 / l)
	rate := vb.Sub(va).Dot(u)
	t := d.kSpring*stretch + d.cDamp*rate

	out.force = u.Mul(-t)
	out.tension = t
	out.energy = 0.5 * d.kSpring * stretch * stretch
	out.power = d.cDamp * rate * rate
	return out
}

// grip drives the projectile spin toward the swing rate of the pouch
// segment plus the configured backspin.
func (d *Dynamics) grip(s *PhysicsState, anchor, anchorVel mgl64.Vec3) mgl64.Vec3 {
	delta := s.Position.Sub(anchor)
	l2 := math.Max(delta.Dot(delta), minLength*minLength)
	swing := delta.Cross(s.Velocity.Sub(anchorVel)).Mul(1 / l2)
	target := swing.Add(mgl64.Vec3{0, 0, d.cfg.Projectile.Spin})

	inertia := principalInertia(d.cfg.Projectile)
	diff := target.Sub(s.AngularVelocity)
	return mgl64.Vec3{
		inertia[0] * diff[0] / gripRelaxation,
		inertia[1] * diff[1] / gripRelaxation,
		inertia[2] * diff[2] / gripRelaxation,
	}
}

type contactLoad struct {
	force  mgl64.Vec3
	normal float64
	energy float64
	power  float64
}

// groundContact is a penalty spring-damper against y = 0 with regularized
// Coulomb friction.
func groundContact(p, v mgl64.Vec3, radius, mass float64) contactLoad {
	pen := radius - p.Y()
	if !(pen > 0) {
		return contactLoad{}
	}
	mass = math.Max(mass, minMass)
	k := mass * groundOmega * groundOmega
	c := 2 * groundDampingRatio * mass * groundOmega
	spring := k * pen
	n := math.Max(spring-c*v.Y(), 0)

	vt := mgl64.Vec3{v.X(), 0, v.Z()}
	ft := vt.Mul(-groundFriction * n / math.Sqrt(vt.Dot(vt)+frictionSmoothing*frictionSmoothing))
	return contactLoad{
		force:  ft.Add(mgl64.Vec3{0, n, 0}),
		normal: n,
		energy: 0.5 * k * pen * pen,
		power:  -(n-spring)*v.Y() - ft.Dot(vt),
	}
}

// solveMassMatrix solves the arm/counterweight block. The matrix is positive
// definite for positive masses; otherwise it falls back to the diagonal.
func solveMassMatrix(m11, m12, m22, r1, r2 float64) (float64, float64) {
	a := mat.NewSymDense(2, []float64{m11, m12, m12, m22})
	var chol mat.Cholesky
	if chol.Factorize(a) {
		var x mat.VecDense
		if err := chol.SolveVecTo(&x, mat.NewVecDense(2, []float64{r1, r2})); err == nil {
			return x.AtVec(0), x.AtVec(1)
		}
	}
	return r1 / math.Max(m11, minMass), r2 / math.Max(m22, minMass)
}
