package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/trebsim/internal/dynamo"
)

func TestPeak(t *testing.T) {
	p := NewPeak("first", func(x dynamo.State) float64 { return x[0] })
	if p.Value() != 0 {
		t.Errorf("empty peak = %v, want 0", p.Value())
	}

	samples := []struct {
		x float64
		t float64
	}{
		{-3, 0}, {2, 1}, {math.NaN(), 2}, {5, 3}, {4, 4},
	}
	for _, s := range samples {
		p.Observe(dynamo.State{s.x}, s.t)
	}
	if p.Value() != 5 || p.At() != 3 {
		t.Errorf("peak = %v at %v, want 5 at 3", p.Value(), p.At())
	}

	p.Reset()
	p.Observe(dynamo.State{-7}, 9)
	if p.Value() != -7 {
		t.Errorf("peak after reset = %v, want -7", p.Value())
	}
}

func TestStability(t *testing.T) {
	s := NewStability(10)
	if s.Value() != 1 {
		t.Errorf("empty stability = %v", s.Value())
	}
	if _, ok := s.FirstViolation(); ok {
		t.Error("no violation expected before any sample")
	}

	s.Observe(dynamo.State{1, 2}, 0)
	s.Observe(dynamo.State{1, 20}, 1)
	s.Observe(dynamo.State{math.NaN(), 0}, 2)
	s.Observe(dynamo.State{-10, 0}, 3)
	if got := s.Value(); got != 0.5 {
		t.Errorf("stability = %v, want 0.5", got)
	}
	if at, ok := s.FirstViolation(); !ok || at != 1 {
		t.Errorf("first violation = %v, %v; want 1, true", at, ok)
	}

	s.Reset()
	if s.Value() != 1 {
		t.Error("Reset did not clear violations")
	}
	if _, ok := s.FirstViolation(); ok {
		t.Error("Reset did not clear the first violation")
	}
}
