package sim

import (
	"math"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/dynamo"
	"github.com/san-kum/trebsim/internal/metrics"
	"github.com/san-kum/trebsim/internal/physics"
)

// DefaultStabilityThreshold is used when a configuration has no usable
// scale, such as a zero projectile mass.
const DefaultStabilityThreshold = 1e6

// stabilityMargin multiplies the trebuchet's own length and speed scale.
const stabilityMargin = 1e3

// StabilityThreshold bounds every state component for cfg's machine. The
// scale is the reach of arm plus sling, the speed the counterweight's full
// drop could give the projectile, and the configured spin.
func StabilityThreshold(cfg *config.SimulationConfig) float64 {
	t := cfg.Trebuchet
	reach := t.LongArmLength + t.ShortArmLength + t.SlingLength
	drop := 2*t.ShortArmLength + t.CounterweightRadius
	vmax := math.Sqrt(2 * math.Abs(cfg.Environment.Gravity) * drop *
		(t.CounterweightMass + t.ArmMass) / cfg.Projectile.Mass)

	th := stabilityMargin * (reach + vmax + math.Abs(cfg.Projectile.Spin))
	if !(th > 0) || math.IsInf(th, 0) {
		return DefaultStabilityThreshold
	}
	return th
}

// DefaultMetrics are the diagnostics reported by the CLI for every run.
func DefaultMetrics(cfg *config.SimulationConfig) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewStability(StabilityThreshold(cfg)),
		metrics.NewPeak("max_height", projectileProbe(func(ps *physics.PhysicsState) float64 {
			return ps.Position.Y()
		})),
		metrics.NewPeak("max_speed", projectileProbe(func(ps *physics.PhysicsState) float64 {
			return ps.Velocity.Len()
		})),
		metrics.NewPeak("max_arm_velocity", projectileProbe(func(ps *physics.PhysicsState) float64 {
			return math.Abs(ps.ArmAngularVelocity)
		})),
	}
}

func projectileProbe(f func(*physics.PhysicsState) float64) metrics.Probe {
	return func(x dynamo.State) float64 {
		ps, err := physics.FromVector(x)
		if err != nil {
			return math.NaN()
		}
		return f(ps)
	}
}
