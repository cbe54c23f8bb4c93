package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/dynamo"
)

// Flat vector layout. Sling particles and velocities follow the fixed
// block, then the wind.
const (
	idxArmAngle = iota
	idxArmOmega
	idxCWAngle
	idxCWOmega
	idxTime
	idxPosition
	idxVelocity        = idxPosition + 3
	idxOrientation     = idxVelocity + 3
	idxAngularVelocity = idxOrientation + 4
	idxCWPosition      = idxAngularVelocity + 3
	idxCWVelocity      = idxCWPosition + 3
	idxSling           = idxCWVelocity + 3

	fixedDim = idxSling + 3 // sling blocks excluded, wind included

	// QuatEpsilon is the magnitude below which an orientation is unusable.
	QuatEpsilon = 1e-12
)

// PhysicsState is the full numeric snapshot of the simulated world.
type PhysicsState struct {
	ArmAngle           float64
	ArmAngularVelocity float64
	CWAngle            float64
	CWAngularVelocity  float64
	Time               float64

	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	Orientation     mgl64.Quat
	AngularVelocity mgl64.Vec3
	CWPosition      mgl64.Vec3
	CWVelocity      mgl64.Vec3
	SlingParticles  []float64 // N×3, flattened
	SlingVelocities []float64
	WindVelocity    mgl64.Vec3
}

// Dim is the length of the flat vector for n sling particles.
func Dim(n int) int { return fixedDim + 6*n }

// NumParticles is the number of sling particles.
func (s *PhysicsState) NumParticles() int { return len(s.SlingParticles) / 3 }

func (s *PhysicsState) Particle(i int) mgl64.Vec3 {
	return mgl64.Vec3{s.SlingParticles[3*i], s.SlingParticles[3*i+1], s.SlingParticles[3*i+2]}
}

func (s *PhysicsState) ParticleVelocity(i int) mgl64.Vec3 {
	return mgl64.Vec3{s.SlingVelocities[3*i], s.SlingVelocities[3*i+1], s.SlingVelocities[3*i+2]}
}

func (s *PhysicsState) setParticle(i int, p mgl64.Vec3) {
	copy(s.SlingParticles[3*i:3*i+3], p[:])
}

func (s *PhysicsState) setParticleVelocity(i int, v mgl64.Vec3) {
	copy(s.SlingVelocities[3*i:3*i+3], v[:])
}

func (s *PhysicsState) Clone() *PhysicsState {
	c := *s
	c.SlingParticles = append([]float64(nil), s.SlingParticles...)
	c.SlingVelocities = append([]float64(nil), s.SlingVelocities...)
	return &c
}

// Vector packs the state into a flat vector in field order.
func (s *PhysicsState) Vector() dynamo.State {
	n := s.NumParticles()
	x := make(dynamo.State, Dim(n))
	x[idxArmAngle] = s.ArmAngle
	x[idxArmOmega] = s.ArmAngularVelocity
	x[idxCWAngle] = s.CWAngle
	x[idxCWOmega] = s.CWAngularVelocity
	x[idxTime] = s.Time
	copy(x[idxPosition:], s.Position[:])
	copy(x[idxVelocity:], s.Velocity[:])
	x[idxOrientation] = s.Orientation.W
	copy(x[idxOrientation+1:], s.Orientation.V[:])
	copy(x[idxAngularVelocity:], s.AngularVelocity[:])
	copy(x[idxCWPosition:], s.CWPosition[:])
	copy(x[idxCWVelocity:], s.CWVelocity[:])
	copy(x[idxSling:], s.SlingParticles)
	copy(x[idxSling+3*n:], s.SlingVelocities)
	copy(x[idxSling+6*n:], s.WindVelocity[:])
	return x
}

// FromVector unpacks a flat vector. The particle count is inferred from its
// length.
func FromVector(x dynamo.State) (*PhysicsState, error) {
	if len(x) < fixedDim || (len(x)-fixedDim)%6 != 0 {
		return nil, fmt.Errorf("state of length %d: %w", len(x), dynamo.ErrDimensionMismatch)
	}
	n := (len(x) - fixedDim) / 6
	s := &PhysicsState{
		ArmAngle:           x[idxArmAngle],
		ArmAngularVelocity: x[idxArmOmega],
		CWAngle:            x[idxCWAngle],
		CWAngularVelocity:  x[idxCWOmega],
		Time:               x[idxTime],
		Position:           vec3(x, idxPosition),
		Velocity:           vec3(x, idxVelocity),
		Orientation:        mgl64.Quat{W: x[idxOrientation], V: vec3(x, idxOrientation+1)},
		AngularVelocity:    vec3(x, idxAngularVelocity),
		CWPosition:         vec3(x, idxCWPosition),
		CWVelocity:         vec3(x, idxCWVelocity),
		SlingParticles:     append([]float64(nil), x[idxSling:idxSling+3*n]...),
		SlingVelocities:    append([]float64(nil), x[idxSling+3*n:idxSling+6*n]...),
		WindVelocity:       vec3(x, idxSling+6*n),
	}
	return s, nil
}

func vec3(x dynamo.State, i int) mgl64.Vec3 {
	return mgl64.Vec3{x[i], x[i+1], x[i+2]}
}

// IsFinite reports whether every field is finite.
func (s *PhysicsState) IsFinite() bool {
	return s.Vector().IsValid()
}

// NormalizeOrientation rescales the orientation to unit length, or resets it
// to identity when its magnitude has collapsed.
func (s *PhysicsState) NormalizeOrientation() {
	s.Orientation = NormalizeQuat(s.Orientation)
}

// NormalizeQuat is the renormalization applied after every step.
func NormalizeQuat(q mgl64.Quat) mgl64.Quat {
	l := q.Len()
	if !(l >= QuatEpsilon) || math.IsInf(l, 0) {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}

// StateTime reads the clock from a packed state.
func StateTime(x dynamo.State) float64 {
	if len(x) <= idxTime {
		return 0
	}
	return x[idxTime]
}

// NormalizeVector renormalizes the orientation block of a packed state in
// place.
func NormalizeVector(x dynamo.State) {
	if len(x) < fixedDim {
		return
	}
	q := mgl64.Quat{W: x[idxOrientation], V: vec3(x, idxOrientation+1)}
	q = NormalizeQuat(q)
	x[idxOrientation] = q.W
	copy(x[idxOrientation+1:idxOrientation+4], q.V[:])
}

// InitialArmAngle places the long-arm tip at projectile height, or hangs the
// arm straight down when that height is unreachable.
func InitialArmAngle(props config.TrebuchetProperties, radius float64) float64 {
	l1 := math.Max(props.LongArmLength, minLength)
	arg := (radius - props.PivotHeight) / l1
	if math.IsNaN(arg) || arg < -1 || arg > 1 {
		return -math.Pi / 2
	}
	return math.Asin(arg)
}

// NewInitialState returns the machine at rest: counterweight hanging, sling
// laid straight from the arm tip back to the projectile on the ground.
func NewInitialState(cfg *config.SimulationConfig) *PhysicsState {
	tp := cfg.Trebuchet
	r := cfg.Projectile.Radius
	n := max(tp.SlingParticles, 0)

	g := NewGeometry(tp)
	theta := InitialArmAngle(tp, r)
	tip := g.LongArmTip(theta)

	l := tp.SlingLength
	dy := tip.Y() - r
	proj := mgl64.Vec3{tip.X(), tip.Y() - l, 0}
	if dy < l {
		proj = mgl64.Vec3{tip.X() - math.Sqrt(l*l-dy*dy), r, 0}
	}

	s := &PhysicsState{
		ArmAngle:        theta,
		Position:        proj,
		Orientation:     mgl64.QuatIdent(),
		CWPosition:      g.CWCentre(theta, 0),
		SlingParticles:  make([]float64, 3*n),
		SlingVelocities: make([]float64, 3*n),
		WindVelocity:    mgl64.Vec3(cfg.Environment.WindVelocity),
	}
	for i := 0; i < n; i++ {
		f := float64(i+1) / float64(n+1)
		s.setParticle(i, tip.Add(proj.Sub(tip).Mul(f)))
	}
	return s
}
