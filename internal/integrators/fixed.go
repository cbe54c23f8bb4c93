package integrators

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/dynamo"
)

// StepResult is the only externally visible trace of sub-stepping.
type StepResult struct {
	StepsTaken         int
	InterpolationAlpha float64
	Degraded           bool
}

func (r StepResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("steps", r.StepsTaken),
		slog.Float64("alpha", r.InterpolationAlpha),
		slog.Bool("degraded", r.Degraded),
	)
}

// Fixed advances a system with fixed-size RK4 sub-steps drawn from a time
// accumulator.
//
// It has two states. In Normal every non-finite step result is retried
// once with the finest subdivision; if that also fails the state freezes at
// the last good snapshot, the accumulator is dropped and Fixed becomes
// Degraded. Degraded is sticky: Step and Update do nothing until
// ResetDegraded or SetState is called. Reset clears only the accumulator.
//
// A freeze rewinds the clock with the state. Observers are not rewound: they
// keep whatever they saw from the last accepted sub-step.
type Fixed struct {
	dyn     dynamo.System
	stepper dynamo.Stepper
	cfg     config.IntegrationConfig
	h       float64

	state    dynamo.State
	previous dynamo.State
	acc      float64
	t        float64
	prevT    float64
	count    int
	degraded bool

	normalize func(dynamo.State)
	observers []dynamo.Observer
	logger    *slog.Logger
}

// minStepSlack bounds MinTimestep as a fraction of the step size.
const minStepSlack = 1e-3

type Option func(*Fixed)

// WithObservers registers observers notified after each successful
// sub-step, in order.
func WithObservers(obs ...dynamo.Observer) Option {
	return func(f *Fixed) { f.observers = append(f.observers, obs...) }
}

// WithNormalizer sets the in-place projection applied after each successful
// sub-step, such as quaternion renormalization.
func WithNormalizer(fn func(dynamo.State)) Option {
	return func(f *Fixed) { f.normalize = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fixed) { f.logger = l }
}

func NewFixed(dyn dynamo.System, x0 dynamo.State, cfg config.IntegrationConfig, opts ...Option) *Fixed {
	f := &Fixed{
		dyn:      dyn,
		stepper:  NewRK4(),
		cfg:      cfg,
		h:        cfg.StepSize(),
		state:    x0.Clone(),
		previous: x0.Clone(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fixed) maxSubsteps() int {
	if f.cfg.MaxSubsteps < 1 {
		return 1
	}
	return f.cfg.MaxSubsteps
}

// Step performs one RK4 step of length dt, split into ceil(dt/maxTimestep)
// pieces of at most maxSubsteps.
func (f *Fixed) Step(dt float64) StepResult {
	if f.degraded {
		return StepResult{Degraded: true}
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return StepResult{}
	}

	limit := f.maxSubsteps()
	pieces := 1
	if f.cfg.MaxTimestep > 0 {
		pieces = int(math.Min(math.Ceil(dt/f.cfg.MaxTimestep), float64(limit)))
		pieces = max(pieces, 1)
	}

	next := f.advance(dt, pieces)
	if !next.IsValid() && pieces < limit {
		f.logger.Debug("non-finite step, retrying", "t", f.t, "dt", dt, "pieces", limit)
		next = f.advance(dt, limit)
	}
	if !next.IsValid() {
		f.freeze(dt)
		return StepResult{Degraded: true}
	}

	f.previous = f.state
	f.state = next
	if f.normalize != nil {
		f.normalize(f.state)
	}
	f.prevT = f.t
	f.t += dt
	f.count++
	for _, o := range f.observers {
		o.OnStep(f.state, f.t)
	}
	return StepResult{StepsTaken: 1}
}

func (f *Fixed) advance(dt float64, pieces int) dynamo.State {
	x := f.state
	h := dt / float64(pieces)
	t := f.t
	for i := 0; i < pieces; i++ {
		x = f.stepper.Step(f.dyn, x, t, h)
		if !x.IsValid() {
			return x
		}
		t += h
	}
	return x
}

func (f *Fixed) freeze(dt float64) {
	f.state = f.previous.Clone()
	f.t = f.prevT
	f.acc = 0
	f.degraded = true
	f.logger.Warn("integration produced non-finite state; freezing",
		"err", &dynamo.SimulationError{Step: f.count, Time: f.t, Wrapped: dynamo.ErrUnstable},
		"dt", dt)
}

// Update adds dt to the accumulator and consumes as many fixed sub-steps as
// it holds, at most maxSubsteps. Zero, negative or non-finite dt changes
// nothing, even when the accumulator still holds a backlog.
func (f *Fixed) Update(dt float64) StepResult {
	if f.degraded {
		return StepResult{Degraded: true}
	}
	if !(dt > 0) || math.IsInf(dt, 1) {
		return StepResult{InterpolationAlpha: f.alpha()}
	}
	f.acc += dt
	if f.cfg.MaxAccumulator > 0 && f.acc > f.cfg.MaxAccumulator {
		f.acc = f.cfg.MaxAccumulator
	}

	// MinTimestep absorbs rounding in the accumulator; it never lets a
	// partial step through.
	slack := math.Min(math.Max(f.cfg.MinTimestep, 0), minStepSlack*f.h)
	steps := 0
	for steps < f.maxSubsteps() && f.acc >= f.h-slack {
		if r := f.Step(f.h); r.Degraded {
			return StepResult{StepsTaken: steps, Degraded: true}
		}
		steps++
		f.acc = math.Max(f.acc-f.h, 0)
	}
	return StepResult{StepsTaken: steps, InterpolationAlpha: f.alpha()}
}

// alpha is where render time sits between the previous and current state.
func (f *Fixed) alpha() float64 {
	alpha := f.acc / f.h
	switch {
	case !(alpha > 0):
		alpha = 0
	case alpha >= 1:
		alpha = math.Nextafter(1, 0)
	}
	return alpha
}

// Reset drops the accumulated time. It deliberately leaves Degraded set.
func (f *Fixed) Reset() { f.acc = 0 }

func (f *Fixed) ResetDegraded() {
	if f.degraded {
		f.logger.Info("degraded mode cleared", "t", f.t)
	}
	f.degraded = false
}

// SetState replaces both the current and previous state and clears
// Degraded.
func (f *Fixed) SetState(x dynamo.State) {
	f.state = x.Clone()
	f.previous = x.Clone()
	f.prevT = f.t
	f.degraded = false
}

// SetTime sets the integration clock passed to the system.
func (f *Fixed) SetTime(t float64) {
	f.t = t
	f.prevT = t
}

func (f *Fixed) State() dynamo.State         { return f.state }
func (f *Fixed) PreviousState() dynamo.State { return f.previous }
func (f *Fixed) Accumulator() float64        { return f.acc }
func (f *Fixed) Degraded() bool              { return f.degraded }
func (f *Fixed) Time() float64               { return f.t }
func (f *Fixed) StepSize() float64           { return f.h }

// Interpolate blends the previous and current state for rendering between
// steps.
func (f *Fixed) Interpolate(alpha float64) dynamo.State {
	out := make(dynamo.State, len(f.state))
	if len(f.previous) != len(f.state) {
		copy(out, f.state)
		return out
	}
	floats.SubTo(out, f.state, f.previous)
	floats.Scale(alpha, out)
	floats.Add(out, f.previous)
	return out
}

func nanState(n int) dynamo.State {
	x := make(dynamo.State, n)
	for i := range x {
		x[i] = math.NaN()
	}
	return x
}
