// Package config holds the simulation configuration, its documented defaults
// and the validation layer that protects the integrator from pathological
// input.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultProjectileMass   = 1.0
	DefaultProjectileRadius = 0.1
	DefaultDragCoefficient  = 0.47
	DefaultMagnusCoeff      = 0.3

	DefaultLongArm        = 4.4
	DefaultShortArm       = 0.8
	DefaultCWMass         = 1750.0
	DefaultCWRadius       = 0.8
	DefaultCWInertia      = 500.0
	DefaultSlingLength    = 3.5
	DefaultReleaseAngle   = 2.0
	DefaultJointFriction  = 0.02
	DefaultArmMass        = 200.0
	DefaultPivotHeight    = 3.0
	DefaultEfficiency     = 1.0
	DefaultSlingParticles = 6
	DefaultSlingMass      = 0.5

	DefaultTimestep       = 1e-3
	DefaultMaxSubsteps    = 20
	DefaultMaxAccumulator = 0.25
	DefaultTolerance      = 1e-6
	DefaultMinTimestep    = 1e-6
	DefaultMaxTimestep    = 0.01

	DefaultGravity    = 9.81
	DefaultAirDensity = 1.225
)

type Vec3 [3]float64

// SimulationConfig is immutable for the duration of a run. It is plain data
// so that any persistence layer can round-trip it.
type SimulationConfig struct {
	Projectile  ProjectileProperties `yaml:"projectile" json:"projectile"`
	Trebuchet   TrebuchetProperties  `yaml:"trebuchet" json:"trebuchet"`
	Integration IntegrationConfig    `yaml:"integration" json:"integration"`
	Environment EnvironmentConfig    `yaml:"environment" json:"environment"`
}

type ProjectileProperties struct {
	Mass              float64 `yaml:"mass" json:"mass"`
	Radius            float64 `yaml:"radius" json:"radius"`
	Area              float64 `yaml:"area" json:"area"`
	DragCoefficient   float64 `yaml:"drag_coefficient" json:"dragCoefficient"`
	MagnusCoefficient float64 `yaml:"magnus_coefficient" json:"magnusCoefficient"`
	MomentOfInertia   Vec3    `yaml:"moment_of_inertia,flow" json:"momentOfInertia"`
	Spin              float64 `yaml:"spin" json:"spin"`
}

type TrebuchetProperties struct {
	LongArmLength        float64 `yaml:"long_arm_length" json:"longArmLength"`
	ShortArmLength       float64 `yaml:"short_arm_length" json:"shortArmLength"`
	CounterweightMass    float64 `yaml:"counterweight_mass" json:"counterweightMass"`
	CounterweightRadius  float64 `yaml:"counterweight_radius" json:"counterweightRadius"`
	CounterweightInertia float64 `yaml:"counterweight_inertia" json:"counterweightInertia"`
	SlingLength          float64 `yaml:"sling_length" json:"slingLength"`
	ReleaseAngle         float64 `yaml:"release_angle" json:"releaseAngle"`
	JointFriction        float64 `yaml:"joint_friction" json:"jointFriction"`
	AngularDamping       float64 `yaml:"angular_damping" json:"angularDamping"`
	ArmMass              float64 `yaml:"arm_mass" json:"armMass"`
	PivotHeight          float64 `yaml:"pivot_height" json:"pivotHeight"`
	SpringConstant       float64 `yaml:"spring_constant" json:"springConstant"`
	DampingCoefficient   float64 `yaml:"damping_coefficient" json:"dampingCoefficient"`
	EquilibriumAngle     float64 `yaml:"equilibrium_angle" json:"equilibriumAngle"`
	FlexuralStiffness    float64 `yaml:"flexural_stiffness" json:"flexuralStiffness"`
	Efficiency           float64 `yaml:"efficiency" json:"efficiency"`

	// RopeStiffness is a bulk, Young's-modulus-like value in Pa. Nil means the
	// built-in default is used.
	RopeStiffness  *float64 `yaml:"rope_stiffness,omitempty" json:"ropeStiffness,omitempty"`
	SlingParticles int      `yaml:"sling_particles" json:"slingParticles"`
	SlingMass      float64  `yaml:"sling_mass" json:"slingMass"`
}

type IntegrationConfig struct {
	InitialTimestep float64 `yaml:"initial_timestep" json:"initialTimestep"`
	MaxSubsteps     int     `yaml:"max_substeps" json:"maxSubsteps"`
	MaxAccumulator  float64 `yaml:"max_accumulator" json:"maxAccumulator"`
	Tolerance       float64 `yaml:"tolerance" json:"tolerance"`
	MinTimestep     float64 `yaml:"min_timestep" json:"minTimestep"`
	MaxTimestep     float64 `yaml:"max_timestep" json:"maxTimestep"`
}

type EnvironmentConfig struct {
	Gravity      float64 `yaml:"gravity" json:"gravity"`
	AirDensity   float64 `yaml:"air_density" json:"airDensity"`
	WindVelocity Vec3    `yaml:"wind_velocity,flow" json:"windVelocity"`
}

// Override mutates a freshly built default configuration.
type Override func(*SimulationConfig)

// CreateConfig returns the documented defaults with overrides applied in
// order. It performs no validation.
func CreateConfig(overrides ...Override) *SimulationConfig {
	r := DefaultProjectileRadius
	inertia := 0.4 * DefaultProjectileMass * r * r
	cfg := &SimulationConfig{
		Projectile: ProjectileProperties{
			Mass:              DefaultProjectileMass,
			Radius:            r,
			Area:              math.Pi * r * r,
			DragCoefficient:   DefaultDragCoefficient,
			MagnusCoefficient: DefaultMagnusCoeff,
			MomentOfInertia:   Vec3{inertia, inertia, inertia},
		},
		Trebuchet: TrebuchetProperties{
			LongArmLength:        DefaultLongArm,
			ShortArmLength:       DefaultShortArm,
			CounterweightMass:    DefaultCWMass,
			CounterweightRadius:  DefaultCWRadius,
			CounterweightInertia: DefaultCWInertia,
			SlingLength:          DefaultSlingLength,
			ReleaseAngle:         DefaultReleaseAngle,
			JointFriction:        DefaultJointFriction,
			ArmMass:              DefaultArmMass,
			PivotHeight:          DefaultPivotHeight,
			Efficiency:           DefaultEfficiency,
			SlingParticles:       DefaultSlingParticles,
			SlingMass:            DefaultSlingMass,
		},
		Integration: IntegrationConfig{
			InitialTimestep: DefaultTimestep,
			MaxSubsteps:     DefaultMaxSubsteps,
			MaxAccumulator:  DefaultMaxAccumulator,
			Tolerance:       DefaultTolerance,
			MinTimestep:     DefaultMinTimestep,
			MaxTimestep:     DefaultMaxTimestep,
		},
		Environment: EnvironmentConfig{
			Gravity:    DefaultGravity,
			AirDensity: DefaultAirDensity,
		},
	}
	for _, o := range overrides {
		if o != nil {
			o(cfg)
		}
	}
	return cfg
}

// Clone returns a deep copy; the optional rope stiffness is not shared.
func (c *SimulationConfig) Clone() *SimulationConfig {
	cp := *c
	if c.Trebuchet.RopeStiffness != nil {
		v := *c.Trebuchet.RopeStiffness
		cp.Trebuchet.RopeStiffness = &v
	}
	return &cp
}

// StepSize is the fixed sub-step the accumulator consumes.
func (c *SimulationConfig) StepSize() float64 {
	return c.Integration.StepSize()
}

// StepSize is InitialTimestep clamped to [MinTimestep, MaxTimestep].
func (ic IntegrationConfig) StepSize() float64 {
	h := ic.InitialTimestep
	if !(h > 0) || math.IsInf(h, 0) {
		h = DefaultTimestep
	}
	if ic.MinTimestep > 0 && h < ic.MinTimestep {
		h = ic.MinTimestep
	}
	if ic.MaxTimestep > 0 && h > ic.MaxTimestep {
		h = ic.MaxTimestep
	}
	return h
}

func WithCounterweightMass(m float64) Override {
	return func(c *SimulationConfig) { c.Trebuchet.CounterweightMass = m }
}

func WithSlingLength(l float64) Override {
	return func(c *SimulationConfig) { c.Trebuchet.SlingLength = l }
}

func WithRopeStiffness(e float64) Override {
	return func(c *SimulationConfig) { c.Trebuchet.RopeStiffness = &e }
}

func WithReleaseAngle(rad float64) Override {
	return func(c *SimulationConfig) { c.Trebuchet.ReleaseAngle = rad }
}

func WithProjectileMass(m float64) Override {
	return func(c *SimulationConfig) {
		c.Projectile.Mass = m
		r := c.Projectile.Radius
		i := 0.4 * m * r * r
		c.Projectile.MomentOfInertia = Vec3{i, i, i}
	}
}

func WithSpin(rate float64) Override {
	return func(c *SimulationConfig) { c.Projectile.Spin = rate }
}

func WithWind(w Vec3) Override {
	return func(c *SimulationConfig) { c.Environment.WindVelocity = w }
}

func WithTimestep(h float64) Override {
	return func(c *SimulationConfig) { c.Integration.InitialTimestep = h }
}

func WithMaxSubsteps(n int) Override {
	return func(c *SimulationConfig) { c.Integration.MaxSubsteps = n }
}

// Load reads a YAML (or .json) file on top of the defaults.
func Load(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := CreateConfig()
	if isJSON(path) {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *SimulationConfig) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
