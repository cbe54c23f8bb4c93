// Package mechanics computes the torques acting on the arm joint.
//
// Every function is pure: the same inputs always give the same torque, so a
// recorded run can be replayed bit for bit.
package mechanics

import (
	"math"

	"github.com/san-kum/trebsim/internal/config"
)

const (
	// PinRadius is the radius of the axle the arm turns on.
	PinRadius = 0.1

	// FrictionDeadband is the angular speed below which the joint sticks.
	FrictionDeadband = 0.01

	hysteresisCoeff = 0.1
)

// TorqueBreakdown itemizes the joint torque for telemetry and tests.
type TorqueBreakdown struct {
	Spring   float64 `json:"spring"`
	Friction float64 `json:"friction"`
	Flexure  float64 `json:"flexure"`
	Total    float64 `json:"total"`
}

// SpringTorque is a linear restoring torque about the equilibrium angle minus
// linear damping. When previousAngle is given and the arm is moving back
// toward equilibrium, a hysteresis term of 0.1·k·d is added.
func SpringTorque(angle, angularVelocity float64, props config.TrebuchetProperties, previousAngle *float64) float64 {
	k := props.SpringConstant
	d := angle - props.EquilibriumAngle
	torque := -k*d - props.DampingCoefficient*angularVelocity

	if previousAngle != nil {
		change := d - (*previousAngle - props.EquilibriumAngle)
		if sign(d) != sign(change) {
			torque += hysteresisCoeff * k * d
		}
	}
	return torque
}

// JointFriction is Coulomb friction at the pin, opposing the direction of
// rotation.
func JointFriction(angularVelocity float64, props config.TrebuchetProperties, normalForce float64) float64 {
	if math.Abs(angularVelocity) < FrictionDeadband {
		return 0
	}
	return -sign(angularVelocity) * props.JointFriction * math.Abs(normalForce) * PinRadius
}

// FlexureTorque models beam flex as EI·d·ω opposing motion.
func FlexureTorque(angle, angularVelocity float64, props config.TrebuchetProperties) float64 {
	d := angle - props.EquilibriumAngle
	return -props.FlexuralStiffness * d * angularVelocity
}

// CatapultTorque sums the joint torques and scales them by efficiency.
func CatapultTorque(angle, angularVelocity float64, props config.TrebuchetProperties, normalForce float64, previousAngle *float64) TorqueBreakdown {
	spring := SpringTorque(angle, angularVelocity, props, previousAngle)
	friction := JointFriction(angularVelocity, props, normalForce)
	flexure := FlexureTorque(angle, angularVelocity, props)
	return TorqueBreakdown{
		Spring:   spring,
		Friction: friction,
		Flexure:  flexure,
		Total:    (spring + friction + flexure) * props.Efficiency,
	}
}

// NormalForce is the load carried by the pin when the arm and counterweight
// hang from it.
func NormalForce(props config.TrebuchetProperties, gravity float64) float64 {
	return (props.ArmMass + props.CounterweightMass) * gravity
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
