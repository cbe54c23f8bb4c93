package experiment

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/sim"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSampleIsSeeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runs = 8

	a, err := New(cfg).Sample()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := New(cfg).Sample()

	for i := range a {
		if !sameConfig(a[i], b[i]) {
			t.Fatalf("config %d differs for the same seed", i)
		}
	}

	cfg.Seed = 2
	c, _ := New(cfg).Sample()
	if sameConfig(a[0], c[0]) {
		t.Error("different seeds produced the same first config")
	}
}

// sameConfig compares configs treating NaN as equal to NaN.
func sameConfig(a, b *config.SimulationConfig) bool {
	na, nb := *a, *b
	if math.IsNaN(na.Trebuchet.SlingLength) && math.IsNaN(nb.Trebuchet.SlingLength) {
		na.Trebuchet.SlingLength, nb.Trebuchet.SlingLength = 0, 0
	}
	ra, rb := na.Trebuchet.RopeStiffness, nb.Trebuchet.RopeStiffness
	na.Trebuchet.RopeStiffness, nb.Trebuchet.RopeStiffness = nil, nil
	if (ra == nil) != (rb == nil) {
		return false
	}
	if ra != nil && *ra != *rb && !(math.IsNaN(*ra) && math.IsNaN(*rb)) {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func TestSampleErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no runs", Config{Scenario: "nominal", Runs: 0}},
		{"unknown scenario", Config{Scenario: "meteor", Runs: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg).Sample(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	names := r.List()
	for _, want := range []string{"extreme", "hostile", "nominal", "preset:default", "preset:windy"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("scenario %q not registered", want)
		}
	}

	r.Register("fixed", func(*rand.Rand) *config.SimulationConfig { return config.CreateConfig() })
	s, err := r.Get("fixed")
	if err != nil {
		t.Fatal(err)
	}
	if s(nil).Trebuchet.CounterweightMass != config.DefaultCWMass {
		t.Error("registered scenario not returned")
	}
}

func TestHostileProducesWarnings(t *testing.T) {
	s, _ := NewRegistry().Get("hostile")
	rng := rand.New(rand.NewSource(7))
	warned := 0
	for i := 0; i < 50; i++ {
		if _, w := config.ValidateTrebuchetProperties(s(rng).Trebuchet); len(w) > 0 {
			warned++
		}
	}
	if warned == 0 {
		t.Error("hostile scenario never triggered validation")
	}
}

func TestRunNoLeaks(t *testing.T) {
	cfg := Config{Scenario: "hostile", Runs: 6, Workers: 3, Seed: 42, Dt: 0.01, Duration: 0.5, RecordEvery: 5}
	report, err := New(cfg, WithLogger(quiet)).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(report.Outcomes) != 6 {
		t.Fatalf("expected 6 outcomes, got %d", len(report.Outcomes))
	}
	if !report.OK() {
		t.Errorf("batch not ok: %d leaks, %d failed", report.NaNLeaks, report.Failed)
	}
	for _, o := range report.Outcomes {
		if o.Result == nil || len(o.Result.Frames) == 0 {
			t.Errorf("run %d recorded no frames", o.Index)
		}
	}
}

func TestLeakDetection(t *testing.T) {
	good := sim.FrameData{Time: 1}
	if !finiteFrame(good) {
		t.Error("zero frame reported as leaking")
	}
	bad := good
	bad.Projectile.Velocity[1] = math.NaN()
	if finiteFrame(bad) {
		t.Error("NaN velocity not detected")
	}
	if !leaks(&sim.Result{FinalTime: math.Inf(1)}) {
		t.Error("infinite time not detected")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultConfig()
	cfg.Runs = 2
	if _, err := New(cfg, WithLogger(quiet)).Run(ctx); err == nil {
		t.Error("expected context error")
	}
}
