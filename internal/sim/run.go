package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/trebsim/internal/dynamo"
)

// RunConfig drives a simulation at a fixed caller tick.
type RunConfig struct {
	Duration    float64
	Dt          float64
	RecordEvery int // record a frame every N ticks; 0 records none
	StallLimit  int
}

type Result struct {
	Frames      []FrameData
	Ticks       int
	StepsTaken  int
	FinalTime   float64
	EnergyDrift float64
	Degraded    bool
	Stalled     bool
	Phase       Phase
	Metrics     map[string]float64
}

func (rc RunConfig) validate() error {
	if !(rc.Dt > 0) || math.IsInf(rc.Dt, 0) {
		return fmt.Errorf("dt must be positive and finite, got %v: %w", rc.Dt, dynamo.ErrParameterBounds)
	}
	if !(rc.Duration > 0) || math.IsInf(rc.Duration, 0) {
		return fmt.Errorf("duration must be positive and finite, got %v: %w", rc.Duration, dynamo.ErrParameterBounds)
	}
	if rc.RecordEvery < 0 {
		return fmt.Errorf("record interval must not be negative, got %d: %w", rc.RecordEvery, dynamo.ErrParameterBounds)
	}
	return nil
}

// Run calls Update once per tick for the configured duration. It stops early
// when ctx is cancelled or the stall watchdog fires; neither a stall nor
// degraded mode is an error.
func (s *Simulation) Run(ctx context.Context, rc RunConfig) (*Result, error) {
	if err := rc.validate(); err != nil {
		return nil, err
	}

	ticks := int(math.Round(rc.Duration / rc.Dt))
	result := &Result{}
	if rc.RecordEvery > 0 {
		result.Frames = make([]FrameData, 0, ticks/rc.RecordEvery+2)
		result.Frames = append(result.Frames, s.ExportFrameData())
	}

	wd := NewWatchdog(rc.StallLimit)
	wd.Observe(s.Time())

	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			s.fill(result)
			return result, ctx.Err()
		default:
		}

		r := s.Update(rc.Dt)
		result.Ticks++
		result.StepsTaken += r.StepsTaken

		if rc.RecordEvery > 0 && result.Ticks%rc.RecordEvery == 0 {
			result.Frames = append(result.Frames, s.ExportFrameData())
		}
		if wd.Observe(s.Time()) {
			result.Stalled = true
			break
		}
	}

	s.fill(result)
	return result, nil
}

func (s *Simulation) fill(r *Result) {
	r.FinalTime = s.Time()
	r.EnergyDrift = s.EnergyDrift()
	r.Degraded = s.Degraded()
	r.Phase = s.phase
	r.Metrics = s.Metrics()
}

// RunWithCallback ticks until the callback returns false or ctx is done.
func (s *Simulation) RunWithCallback(ctx context.Context, dt float64, callback func(FrameData) bool) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("dt must be positive and finite, got %v", dt)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.Update(dt)
		if !callback(s.ExportFrameData()) {
			return nil
		}
	}
}
