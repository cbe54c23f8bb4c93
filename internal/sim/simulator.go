// Package sim owns a running trebuchet simulation: the validated
// configuration, the integrator and the launch phase.
package sim

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/dynamo"
	"github.com/san-kum/trebsim/internal/integrators"
	"github.com/san-kum/trebsim/internal/metrics"
	"github.com/san-kum/trebsim/internal/physics"
)

// Recorder receives per-update telemetry.
type Recorder interface {
	ObserveUpdate(r integrators.StepResult, simTime float64)
	ObservePhase(p Phase)
	ObserveReset()
}

// Simulation is single-threaded: one goroutine owns it and every call runs
// to completion.
type Simulation struct {
	cfg      *config.SimulationConfig
	warnings []config.Warning

	dyn     *physics.Dynamics
	integ   *integrators.Fixed
	balance *metrics.EnergyBalance
	metrics []dynamo.Metric

	phase Phase
	last  integrators.StepResult

	logger   *slog.Logger
	recorder Recorder
}

type Option func(*Simulation)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(s *Simulation) { s.recorder = r }
}

// WithMetrics adds metrics observed after every sub-step.
func WithMetrics(ms ...dynamo.Metric) Option {
	return func(s *Simulation) { s.metrics = append(s.metrics, ms...) }
}

// New validates cfg, logging every substitution, and builds a simulation
// starting from initialState. A nil initialState, or one whose sling does
// not match the configuration, is replaced by the at-rest state.
func New(initialState *physics.PhysicsState, cfg *config.SimulationConfig, opts ...Option) *Simulation {
	s := &Simulation{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	s.cfg, s.warnings = config.ValidateConfig(cfg, s.logger)
	s.dyn = physics.NewDynamics(s.cfg)
	s.balance = metrics.NewEnergyBalance(s.dyn)

	if initialState == nil {
		initialState = physics.NewInitialState(s.cfg)
	} else if initialState.NumParticles() != s.dyn.NumParticles() {
		s.logger.Warn("initial state does not match sling configuration; using at-rest state",
			"particles", initialState.NumParticles(), "want", s.dyn.NumParticles())
		initialState = physics.NewInitialState(s.cfg)
	}

	observers := []dynamo.Observer{s.dyn, metricObserver{s.balance}, phaseObserver{s}}
	for _, m := range s.metrics {
		observers = append(observers, metricObserver{m})
	}
	x0 := initialState.Vector()
	s.integ = integrators.NewFixed(s.dyn, x0, s.cfg.Integration,
		integrators.WithObservers(observers...),
		integrators.WithNormalizer(physics.NormalizeVector),
		integrators.WithLogger(s.logger),
	)
	s.restart(x0, initialState.Time)
	return s
}

// phaseObserver advances the phase at sub-step granularity.
type phaseObserver struct{ s *Simulation }

func (p phaseObserver) OnStep(x dynamo.State, _ float64) { p.s.updatePhase(x) }

// metricObserver feeds every accepted sub-step to a metric.
type metricObserver struct{ m dynamo.Metric }

func (o metricObserver) OnStep(x dynamo.State, t float64) { o.m.Observe(x, t) }

func (s *Simulation) updatePhase(x dynamo.State) {
	next := s.phase
	switch s.phase {
	case Swinging:
		if s.dyn.Released() {
			next = Released
		}
	case Released:
		if ps, err := physics.FromVector(x); err == nil && ps.Position.Y() <= s.cfg.Projectile.Radius {
			next = GroundDragging
		}
	}
	if next == s.phase {
		return
	}
	s.phase = next
	s.logger.Info("phase change", "phase", next.String(), "t", physics.StateTime(x))
	if s.recorder != nil {
		s.recorder.ObservePhase(next)
	}
}

func (s *Simulation) restart(x dynamo.State, t float64) {
	s.integ.SetTime(t)
	s.balance.Reset()
	s.balance.Observe(x, t)
	for _, m := range s.metrics {
		m.Reset()
		m.Observe(x, t)
	}
	s.last = integrators.StepResult{}
}

// Update advances the simulation by dt of wall time. It never fails; a
// numerical blow-up shows up as Degraded in the result.
func (s *Simulation) Update(dt float64) integrators.StepResult {
	wasDegraded := s.integ.Degraded()
	r := s.integ.Update(dt)
	if r.Degraded && !wasDegraded {
		s.logger.Warn("simulation degraded; state frozen", "t", s.Time())
	}
	s.last = r
	if s.recorder != nil {
		s.recorder.ObserveUpdate(r, s.Time())
	}
	return r
}

// Reset restarts from the at-rest state and always leaves degraded mode,
// unlike the integrator's own Reset.
func (s *Simulation) Reset() {
	x0 := physics.NewInitialState(s.cfg).Vector()
	s.dyn.ResetLatch()
	s.integ.SetState(x0)
	s.integ.Reset()
	s.phase = Swinging
	s.restart(x0, 0)
	s.logger.Info("simulation reset")
	if s.recorder != nil {
		s.recorder.ObserveReset()
	}
}

// SetState replaces the current state and clears degraded mode. The phase
// and release latch are kept.
func (s *Simulation) SetState(ps *physics.PhysicsState) error {
	if ps.NumParticles() != s.dyn.NumParticles() {
		return fmt.Errorf("state has %d sling particles, want %d: %w",
			ps.NumParticles(), s.dyn.NumParticles(), dynamo.ErrDimensionMismatch)
	}
	if !ps.IsFinite() {
		return dynamo.ErrInvalidState
	}
	x := ps.Vector()
	s.integ.SetState(x)
	s.restart(x, ps.Time)
	return nil
}

// State returns a snapshot of the current state. Mutating it has no effect
// on the simulation.
func (s *Simulation) State() *physics.PhysicsState {
	ps, err := physics.FromVector(s.integ.State())
	if err != nil {
		panic(err) // the integrator only holds vectors built by physics
	}
	return ps
}

func (s *Simulation) Time() float64 { return physics.StateTime(s.integ.State()) }

func (s *Simulation) Degraded() bool                     { return s.integ.Degraded() }
func (s *Simulation) ResetDegraded()                     { s.integ.ResetDegraded() }
func (s *Simulation) Phase() Phase                       { return s.phase }
func (s *Simulation) Warnings() []config.Warning         { return s.warnings }
func (s *Simulation) Dynamics() *physics.Dynamics        { return s.dyn }
func (s *Simulation) LastResult() integrators.StepResult { return s.last }

// Config returns a copy of the validated configuration.
func (s *Simulation) Config() *config.SimulationConfig { return s.cfg.Clone() }

// EnergyDrift is the relative deviation of energy plus dissipated work from
// its value at the last (re)start.
func (s *Simulation) EnergyDrift() float64 { return s.balance.Drift() }

// MaxEnergyDrift is the largest drift since the last (re)start.
func (s *Simulation) MaxEnergyDrift() float64 { return s.balance.Value() }

// Metrics returns the current value of every registered metric, including
// the energy balance.
func (s *Simulation) Metrics() map[string]float64 {
	out := map[string]float64{s.balance.Name(): s.balance.Value()}
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// ExportFrameData projects the current state into a FrameData. It does not
// mutate the simulation.
func (s *Simulation) ExportFrameData() FrameData {
	ps := s.State()
	geo := s.dyn.Geometry()
	pf := s.dyn.ProjectileForces(ps)
	sl := s.dyn.SlingLoads(ps)
	attached := !s.dyn.Released()

	th, om := ps.ArmAngle, ps.ArmAngularVelocity
	tip := geo.LongArmTip(th)

	particles := make([]Vec3, ps.NumParticles())
	for i := range particles {
		particles[i] = ps.Particle(i)
	}
	end := ps.Position
	if !attached {
		end = tip
		if n := len(particles); n > 0 {
			end = particles[n-1]
		}
	}

	tension := 0.0
	if len(sl.Tensions) > 0 {
		tension = sl.Tensions[len(sl.Tensions)-1]
	}

	q := ps.Orientation
	return FrameData{
		Time:               ps.Time,
		Phase:              s.phase,
		Degraded:           s.integ.Degraded(),
		InterpolationAlpha: s.last.InterpolationAlpha,
		Arm: ArmFrame{
			Pivot:           geo.Pivot,
			LongArmTip:      tip,
			ShortArmTip:     geo.ShortArmTip(th),
			Angle:           th,
			AngularVelocity: om,
			JointTorque:     s.dyn.JointTorque(ps).Total,
		},
		Counterweight: CounterweightFrame{
			Position:        ps.CWPosition,
			Velocity:        ps.CWVelocity,
			Angle:           ps.CWAngle,
			AngularVelocity: ps.CWAngularVelocity,
		},
		Sling: SlingFrame{
			StartPoint:    tip,
			EndPoint:      end,
			Particles:     particles,
			TensionVector: sl.TipForce,
			Tension:       tension,
			Attached:      attached,
		},
		Projectile: ProjectileFrame{
			Position:        ps.Position,
			Velocity:        ps.Velocity,
			Orientation:     [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
			AngularVelocity: ps.AngularVelocity,
			Speed:           ps.Velocity.Len(),
			Radius:          s.cfg.Projectile.Radius,
		},
		Forces: ForcesFrame{Projectile: ForceSet{
			Gravity: pf.Gravity,
			Drag:    pf.Drag,
			Magnus:  pf.Magnus,
			Tension: pf.Tension,
			Total:   pf.Total,
		}},
		Ground: GroundFrame{
			NormalForce: pf.NormalForce,
			Height:      ps.Position.Y() - s.cfg.Projectile.Radius,
		},
		Constraints: ConstraintsFrame{SlingLength: LengthConstraint{
			Current:   sl.Length,
			Target:    sl.Target,
			Violation: sl.Length - sl.Target,
		}},
		Energy: s.dyn.StateEnergy(ps),
	}
}
