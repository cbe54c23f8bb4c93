package sim

import "math"

// DefaultStallLimit is the number of consecutive unchanged-time
// observations after which a Watchdog fires.
const DefaultStallLimit = 10

// Watchdog detects a stuck simulation from the outside by watching its
// clock.
type Watchdog struct {
	limit     int
	tolerance float64
	last      float64
	seen      bool
	unchanged int
	fired     bool
}

func NewWatchdog(limit int) *Watchdog {
	if limit < 1 {
		limit = DefaultStallLimit
	}
	return &Watchdog{limit: limit, tolerance: 1e-12}
}

// Observe records a clock reading and reports whether the watchdog has
// fired.
func (w *Watchdog) Observe(t float64) bool {
	if w.seen && (math.Abs(t-w.last) <= w.tolerance || math.IsNaN(t)) {
		w.unchanged++
	} else {
		w.unchanged = 0
	}
	w.last, w.seen = t, true
	if w.unchanged >= w.limit {
		w.fired = true
	}
	return w.fired
}

func (w *Watchdog) Fired() bool    { return w.fired }
func (w *Watchdog) Unchanged() int { return w.unchanged }

func (w *Watchdog) Reset() {
	w.seen = false
	w.unchanged = 0
	w.fired = false
}
