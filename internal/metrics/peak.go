package metrics

import (
	"math"

	"github.com/san-kum/trebsim/internal/dynamo"
)

// Probe extracts one scalar from a state.
type Probe func(x dynamo.State) float64

// Peak records the largest value a probe has returned.
type Peak struct {
	name    string
	probe   Probe
	max     float64
	at      float64
	samples int
}

func NewPeak(name string, probe Probe) *Peak {
	return &Peak{name: name, probe: probe}
}

func (p *Peak) Name() string {
	return p.name
}

func (p *Peak) Observe(x dynamo.State, t float64) {
	v := p.probe(x)
	if math.IsNaN(v) {
		return
	}
	if p.samples == 0 || v > p.max {
		p.max, p.at = v, t
	}
	p.samples++
}

func (p *Peak) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.max
}

// At is the time the peak was observed.
func (p *Peak) At() float64 { return p.at }

func (p *Peak) Reset() {
	p.max = 0
	p.at = 0
	p.samples = 0
}
