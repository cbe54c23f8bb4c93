package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/trebsim/internal/config"
)

// Geometry is the rigid arm and counterweight hanger. The arm turns about a
// pivot at pivot height; angles are measured counter-clockwise from +x and
// the counterweight angle from straight down.
type Geometry struct {
	LongArm   float64
	ShortArm  float64
	Hanger    float64
	ArmMass   float64
	ArmCOM    float64 // pivot to arm centre of mass, toward the long arm
	ArmMoment float64 // about the pivot
	Pivot     mgl64.Vec3
}

func NewGeometry(tp config.TrebuchetProperties) Geometry {
	l1, l2 := tp.LongArmLength, tp.ShortArmLength
	total := math.Max(l1+l2, minLength)
	return Geometry{
		LongArm:   l1,
		ShortArm:  l2,
		Hanger:    tp.CounterweightRadius,
		ArmMass:   tp.ArmMass,
		ArmCOM:    (l1*l1 - l2*l2) / (2 * total),
		ArmMoment: tp.ArmMass / total * (l1*l1*l1 + l2*l2*l2) / 3,
		Pivot:     mgl64.Vec3{0, tp.PivotHeight, 0},
	}
}

func dir(theta float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(theta), math.Sin(theta), 0}
}

// perp is d(dir)/dθ.
func perp(theta float64) mgl64.Vec3 {
	return mgl64.Vec3{-math.Sin(theta), math.Cos(theta), 0}
}

func (g Geometry) LongArmTip(theta float64) mgl64.Vec3 {
	return g.Pivot.Add(dir(theta).Mul(g.LongArm))
}

func (g Geometry) LongArmTipVelocity(theta, omega float64) mgl64.Vec3 {
	return perp(theta).Mul(g.LongArm * omega)
}

func (g Geometry) ShortArmTip(theta float64) mgl64.Vec3 {
	return g.Pivot.Sub(dir(theta).Mul(g.ShortArm))
}

func (g Geometry) ArmCentre(theta float64) mgl64.Vec3 {
	return g.Pivot.Add(dir(theta).Mul(g.ArmCOM))
}

// CWCentre is the counterweight centre for arm angle theta and hanger angle
// phi.
func (g Geometry) CWCentre(theta, phi float64) mgl64.Vec3 {
	hang := mgl64.Vec3{math.Sin(phi), -math.Cos(phi), 0}
	return g.ShortArmTip(theta).Add(hang.Mul(g.Hanger))
}

func (g Geometry) CWVelocity(theta, omega, phi, phiDot float64) mgl64.Vec3 {
	short := mgl64.Vec3{math.Sin(theta), -math.Cos(theta), 0}.Mul(g.ShortArm * omega)
	hang := mgl64.Vec3{math.Cos(phi), math.Sin(phi), 0}.Mul(g.Hanger * phiDot)
	return short.Add(hang)
}

// CWAcceleration differentiates CWVelocity given both angular
// accelerations.
func (g Geometry) CWAcceleration(theta, omega, alpha, phi, phiDot, phiDDot float64) mgl64.Vec3 {
	st, ct := math.Sin(theta), math.Cos(theta)
	sp, cp := math.Sin(phi), math.Cos(phi)
	l2, r := g.ShortArm, g.Hanger
	return mgl64.Vec3{
		l2*alpha*st + l2*omega*omega*ct + r*phiDDot*cp - r*phiDot*phiDot*sp,
		-l2*alpha*ct + l2*omega*omega*st + r*phiDDot*sp + r*phiDot*phiDot*cp,
		0,
	}
}
