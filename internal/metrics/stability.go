package metrics

import (
	"math"

	"github.com/san-kum/trebsim/internal/dynamo"
)

// Stability is the fraction of observed states whose components are all
// finite and no larger than threshold in magnitude. It also remembers when
// the first out-of-bounds state was seen.
type Stability struct {
	threshold  float64
	samples    int
	violations int
	first      float64
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold, first: math.NaN()}
}

func (s *Stability) Name() string { return "stability" }

// Threshold is the bound applied to every component.
func (s *Stability) Threshold() float64 { return s.threshold }

func (s *Stability) Observe(x dynamo.State, t float64) {
	s.samples++
	if s.bounded(x) {
		return
	}
	if s.violations == 0 {
		s.first = t
	}
	s.violations++
}

func (s *Stability) bounded(x dynamo.State) bool {
	for _, v := range x {
		if !(math.Abs(v) <= s.threshold) {
			return false
		}
	}
	return true
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1
	}
	return 1 - float64(s.violations)/float64(s.samples)
}

// FirstViolation is the time of the first out-of-bounds state, if any.
func (s *Stability) FirstViolation() (float64, bool) {
	return s.first, s.violations > 0
}

func (s *Stability) Reset() {
	s.samples = 0
	s.violations = 0
	s.first = math.NaN()
}
