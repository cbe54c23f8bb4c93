// Package experiment runs seeded batches of randomly drawn configurations
// and reports numerical failures.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/sim"
)

type Config struct {
	Scenario    string
	Runs        int
	Workers     int
	Seed        int64
	Dt          float64
	Duration    float64
	RecordEvery int
}

func DefaultConfig() Config {
	return Config{
		Scenario:    "hostile",
		Runs:        16,
		Seed:        1,
		Dt:          0.01,
		Duration:    2,
		RecordEvery: 10,
	}
}

// Outcome is one run of a batch.
type Outcome struct {
	Index    int
	Config   *config.SimulationConfig
	Result   *sim.Result
	Err      error
	NaNLeak  bool
	Warnings int
}

type Report struct {
	Scenario string
	Seed     int64
	Outcomes []Outcome

	NaNLeaks int
	Degraded int
	Stalled  int
	Failed   int
	MaxDrift float64
}

// OK reports whether no run leaked a non-finite value or failed outright.
// Degraded and stalled runs are acceptable outcomes.
func (r *Report) OK() bool {
	return r.NaNLeaks == 0 && r.Failed == 0
}

func (r *Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("scenario", r.Scenario),
		slog.Int64("seed", r.Seed),
		slog.Int("runs", len(r.Outcomes)),
		slog.Int("nan_leaks", r.NaNLeaks),
		slog.Int("degraded", r.Degraded),
		slog.Int("stalled", r.Stalled),
		slog.Int("failed", r.Failed),
		slog.Float64("max_drift", r.MaxDrift),
	)
}

type Experiment struct {
	cfg      Config
	registry *Registry
	rng      *rand.Rand
	logger   *slog.Logger
	opts     []sim.Option
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

// WithSimOptions passes options to every simulation in the batch.
func WithSimOptions(opts ...sim.Option) Option {
	return func(e *Experiment) { e.opts = append(e.opts, opts...) }
}

func New(cfg Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e
}

// Sample draws the batch's configurations. The same seed always yields the
// same batch.
func (e *Experiment) Sample() ([]*config.SimulationConfig, error) {
	if e.cfg.Runs < 1 {
		return nil, fmt.Errorf("runs must be positive, got %d", e.cfg.Runs)
	}
	scenario, err := e.registry.Get(e.cfg.Scenario)
	if err != nil {
		return nil, err
	}
	configs := make([]*config.SimulationConfig, e.cfg.Runs)
	for i := range configs {
		configs[i] = scenario(e.rng)
	}
	return configs, nil
}

func (e *Experiment) Run(ctx context.Context) (*Report, error) {
	configs, err := e.Sample()
	if err != nil {
		return nil, err
	}

	rc := sim.RunConfig{
		Duration:    e.cfg.Duration,
		Dt:          e.cfg.Dt,
		RecordEvery: max(e.cfg.RecordEvery, 1),
	}
	opts := append([]sim.Option{sim.WithLogger(e.logger)}, e.opts...)
	results, errs, err := sim.NewEnsemble(configs, e.cfg.Workers, opts...).Run(ctx, rc)
	if results == nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	report := &Report{Scenario: e.cfg.Scenario, Seed: e.cfg.Seed, Outcomes: make([]Outcome, len(configs))}
	for i, cfg := range configs {
		_, warnings := config.ValidateTrebuchetProperties(cfg.Trebuchet)
		o := Outcome{Index: i, Config: cfg, Result: results[i], Err: errs[i], Warnings: len(warnings)}

		switch {
		case o.Err != nil || o.Result == nil:
			report.Failed++
		default:
			o.NaNLeak = leaks(o.Result)
			if o.NaNLeak {
				report.NaNLeaks++
			}
			if o.Result.Degraded {
				report.Degraded++
			}
			if o.Result.Stalled {
				report.Stalled++
			}
			if d := o.Result.EnergyDrift; !o.Result.Degraded && d > report.MaxDrift {
				report.MaxDrift = d
			}
		}
		if o.NaNLeak || o.Err != nil {
			e.logger.Error("fuzz run failed", "index", i, "seed", e.cfg.Seed, "err", o.Err, "nan_leak", o.NaNLeak)
		}
		report.Outcomes[i] = o
	}

	e.logger.Info("fuzz batch finished", "report", report)
	return report, nil
}

// leaks reports whether any recorded frame carries a non-finite state value.
func leaks(r *sim.Result) bool {
	if !finite(r.FinalTime) {
		return true
	}
	for _, f := range r.Frames {
		if !finiteFrame(f) {
			return true
		}
	}
	return false
}

func finiteFrame(f sim.FrameData) bool {
	vals := []float64{
		f.Time,
		f.Arm.Angle, f.Arm.AngularVelocity,
		f.Counterweight.Angle, f.Counterweight.AngularVelocity,
	}
	vals = append(vals, f.Counterweight.Position[:]...)
	vals = append(vals, f.Projectile.Position[:]...)
	vals = append(vals, f.Projectile.Velocity[:]...)
	vals = append(vals, f.Projectile.Orientation[:]...)
	vals = append(vals, f.Projectile.AngularVelocity[:]...)
	for _, p := range f.Sling.Particles {
		vals = append(vals, p[:]...)
	}
	for _, v := range vals {
		if !finite(v) {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
