package experiment

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/san-kum/trebsim/internal/config"
)

// Scenario draws one configuration from rng. Scenarios must only use rng for
// randomness so that a seed reproduces a whole batch.
type Scenario func(rng *rand.Rand) *config.SimulationConfig

type Registry struct {
	scenarios map[string]Scenario
}

// hostileValues are fed to the validated properties to exercise clamping.
var hostileValues = []float64{
	math.NaN(), math.Inf(1), math.Inf(-1), 0, -1, 1e-3, 1e15, 500,
}

func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]Scenario)}

	r.scenarios["nominal"] = func(rng *rand.Rand) *config.SimulationConfig {
		return perturb(rng, config.CreateConfig(), 0.2)
	}
	r.scenarios["hostile"] = func(rng *rand.Rand) *config.SimulationConfig {
		cfg := perturb(rng, config.CreateConfig(), 0.2)
		if rng.Intn(2) == 0 {
			cfg.Trebuchet.SlingLength = pick(rng, hostileValues)
		}
		if rng.Intn(2) == 0 {
			v := pick(rng, hostileValues)
			cfg.Trebuchet.RopeStiffness = &v
		}
		return cfg
	}
	r.scenarios["extreme"] = func(rng *rand.Rand) *config.SimulationConfig {
		cfg := config.GetPreset("extreme")
		cfg.Environment.WindVelocity = config.Vec3{
			uniform(rng, -15, 15), 0, uniform(rng, -5, 5),
		}
		cfg.Projectile.Spin = uniform(rng, -50, 50)
		return cfg
	}

	for _, name := range config.ListPresets() {
		preset := name
		r.scenarios["preset:"+preset] = func(*rand.Rand) *config.SimulationConfig {
			return config.GetPreset(preset)
		}
	}

	return r
}

func (r *Registry) Register(name string, s Scenario) {
	r.scenarios[name] = s
}

func (r *Registry) Get(name string) (Scenario, error) {
	s, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return s, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// perturb scales the main mechanical parameters by a factor drawn from
// [1-spread, 1+spread].
func perturb(rng *rand.Rand, cfg *config.SimulationConfig, spread float64) *config.SimulationConfig {
	scale := func(v *float64) { *v *= uniform(rng, 1-spread, 1+spread) }

	t := &cfg.Trebuchet
	scale(&t.CounterweightMass)
	scale(&t.LongArmLength)
	scale(&t.ShortArmLength)
	scale(&t.SlingLength)
	scale(&t.ArmMass)
	t.ReleaseAngle = uniform(rng, 1.6, 2.4)

	scale(&cfg.Projectile.Mass)
	cfg.Projectile.Spin = uniform(rng, -30, 30)
	cfg.Environment.WindVelocity = config.Vec3{uniform(rng, -10, 10), 0, uniform(rng, -3, 3)}
	return cfg
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

func pick(rng *rand.Rand, vs []float64) float64 {
	return vs[rng.Intn(len(vs))]
}
