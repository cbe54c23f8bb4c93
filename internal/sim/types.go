package sim

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/trebsim/internal/physics"
)

// Phase is the discrete stage of a launch. Transitions only move forward;
// only Reset moves a simulation back to Swinging.
type Phase int

const (
	Swinging Phase = iota
	Released
	GroundDragging
)

var phaseNames = [...]string{"swinging", "released", "groundDragging"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

type Vec3 = [3]float64

// FrameData is a read-only snapshot for renderers and exporters. It is
// computed on demand and never cached by the simulation.
type FrameData struct {
	Time               float64 `json:"time"`
	Phase              Phase   `json:"phase"`
	Degraded           bool    `json:"degraded"`
	InterpolationAlpha float64 `json:"interpolationAlpha"`

	Arm           ArmFrame                `json:"arm"`
	Counterweight CounterweightFrame      `json:"counterweight"`
	Sling         SlingFrame              `json:"sling"`
	Projectile    ProjectileFrame         `json:"projectile"`
	Forces        ForcesFrame             `json:"forces"`
	Ground        GroundFrame             `json:"ground"`
	Constraints   ConstraintsFrame        `json:"constraints"`
	Energy        physics.EnergyBreakdown `json:"energy"`
}

type ArmFrame struct {
	Pivot           Vec3    `json:"pivot"`
	LongArmTip      Vec3    `json:"longArmTip"`
	ShortArmTip     Vec3    `json:"shortArmTip"`
	Angle           float64 `json:"angle"`
	AngularVelocity float64 `json:"angularVelocity"`
	JointTorque     float64 `json:"jointTorque"`
}

type CounterweightFrame struct {
	Position        Vec3    `json:"position"`
	Velocity        Vec3    `json:"velocity"`
	Angle           float64 `json:"angle"`
	AngularVelocity float64 `json:"angularVelocity"`
}

type SlingFrame struct {
	StartPoint    Vec3    `json:"startPoint"`
	EndPoint      Vec3    `json:"endPoint"`
	Particles     []Vec3  `json:"particles"`
	TensionVector Vec3    `json:"tensionVector"`
	Tension       float64 `json:"tension"`
	Attached      bool    `json:"attached"`
}

type ProjectileFrame struct {
	Position        Vec3       `json:"position"`
	Velocity        Vec3       `json:"velocity"`
	Orientation     [4]float64 `json:"orientation"`
	AngularVelocity Vec3       `json:"angularVelocity"`
	Speed           float64    `json:"speed"`
	Radius          float64    `json:"radius"`
}

type ForceSet struct {
	Gravity Vec3 `json:"gravity"`
	Drag    Vec3 `json:"drag"`
	Magnus  Vec3 `json:"magnus"`
	Tension Vec3 `json:"tension"`
	Total   Vec3 `json:"total"`
}

type ForcesFrame struct {
	Projectile ForceSet `json:"projectile"`
}

type GroundFrame struct {
	NormalForce float64 `json:"normalForce"`
	Height      float64 `json:"height"`
}

type LengthConstraint struct {
	Current   float64 `json:"current"`
	Target    float64 `json:"target"`
	Violation float64 `json:"violation"`
}

type ConstraintsFrame struct {
	SlingLength LengthConstraint `json:"slingLength"`
}

func (f FrameData) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("t", f.Time),
		slog.String("phase", f.Phase.String()),
		slog.Bool("degraded", f.Degraded),
		slog.Float64("arm_angle", f.Arm.Angle),
		slog.Float64("speed", f.Projectile.Speed),
		slog.Float64("energy", f.Energy.Total),
	)
}
