package telemetry

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/experiment"
	"github.com/san-kum/trebsim/internal/integrators"
	"github.com/san-kum/trebsim/internal/sim"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestObserveUpdate(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.ObserveUpdate(integrators.StepResult{StepsTaken: 10, InterpolationAlpha: 0.25}, 0.01)
	c.ObserveUpdate(integrators.StepResult{Degraded: true}, 0.01)

	if got := testutil.ToFloat64(c.updates); got != 2 {
		t.Errorf("updates = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.substeps); got != 10 {
		t.Errorf("substeps = %v, want 10", got)
	}
	if got := testutil.ToFloat64(c.degraded); got != 1 {
		t.Errorf("degraded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.simTime); got != 0.01 {
		t.Errorf("sim time = %v, want 0.01", got)
	}
	if got := testutil.ToFloat64(c.alpha); got != 0 {
		t.Errorf("alpha = %v, want 0", got)
	}
}

func TestPhaseAndReset(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.ObservePhase(sim.Released)
	c.ObservePhase(sim.GroundDragging)
	c.ObservePhase(sim.Released)
	c.ObserveReset()

	if got := testutil.ToFloat64(c.phases.WithLabelValues("released")); got != 2 {
		t.Errorf("released transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.resets); got != 1 {
		t.Errorf("resets = %v, want 1", got)
	}
}

func TestObserveReport(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.ObserveReport(&experiment.Report{Outcomes: []experiment.Outcome{
		{Result: &sim.Result{}},
		{Result: &sim.Result{Degraded: true, Stalled: true}},
		{Err: errors.New("boom")},
		{Result: &sim.Result{}, NaNLeak: true},
	}})

	tests := []struct {
		outcome string
		want    float64
	}{
		{"ok", 1},
		{"degraded", 1},
		{"stalled", 1},
		{"failed", 1},
		{"nan_leak", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(c.fuzzRuns.WithLabelValues(tt.outcome)); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.outcome, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(c.fuzzBatches); got != 1 {
		t.Errorf("batches = %v, want 1", got)
	}
}

func TestRecorderWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	s := sim.New(nil, config.CreateConfig(), sim.WithRecorder(c), sim.WithLogger(quiet))
	for i := 0; i < 3; i++ {
		s.Update(0.01)
	}
	s.Reset()

	if got := testutil.ToFloat64(c.updates); got != 3 {
		t.Errorf("updates = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.resets); got != 1 {
		t.Errorf("resets = %v, want 1", got)
	}
	if n, err := testutil.GatherAndCount(reg, "trebsim_substeps_total"); err != nil || n != 1 {
		t.Errorf("gathered %d series, err %v", n, err)
	}
}
