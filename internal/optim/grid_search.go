// Package optim searches trebuchet parameters for the longest throw.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/trebsim/internal/analysis"
	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/sim"
	"github.com/san-kum/trebsim/internal/storage"
)

// Setters are the parameters a search can vary.
var Setters = map[string]func(*config.SimulationConfig, float64){
	"release-angle":   func(c *config.SimulationConfig, v float64) { config.WithReleaseAngle(v)(c) },
	"sling-length":    func(c *config.SimulationConfig, v float64) { config.WithSlingLength(v)(c) },
	"cw-mass":         func(c *config.SimulationConfig, v float64) { config.WithCounterweightMass(v)(c) },
	"projectile-mass": func(c *config.SimulationConfig, v float64) { config.WithProjectileMass(v)(c) },
	"long-arm":        func(c *config.SimulationConfig, v float64) { c.Trebuchet.LongArmLength = v },
}

type Param struct {
	Name   string
	Values []float64
}

// ParseParam reads "name=lo:hi:n" (n evenly spaced values) or
// "name=v1,v2,...".
func ParseParam(spec string) (Param, error) {
	name, rest, ok := strings.Cut(spec, "=")
	if !ok {
		return Param{}, fmt.Errorf("param %q: want name=lo:hi:n or name=v1,v2", spec)
	}
	if _, known := Setters[name]; !known {
		return Param{}, fmt.Errorf("unknown param: %s", name)
	}

	if parts := strings.Split(rest, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return Param{}, fmt.Errorf("param %q: bad range", spec)
		}
		vals := make([]float64, n)
		for i := range vals {
			if n == 1 {
				vals[i] = lo
				continue
			}
			vals[i] = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		return Param{Name: name, Values: vals}, nil
	}

	var vals []float64
	for _, s := range strings.Split(rest, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Param{}, fmt.Errorf("param %q: %w", spec, err)
		}
		vals = append(vals, v)
	}
	return Param{Name: name, Values: vals}, nil
}

type Candidate struct {
	Values   map[string]float64
	Launch   *analysis.LaunchReport
	Range    float64
	Degraded bool
	Err      error
}

type GridSearch struct {
	params  []Param
	workers int
	opts    []sim.Option
}

func NewGridSearch(params []Param, workers int, opts ...sim.Option) *GridSearch {
	return &GridSearch{params: params, workers: workers, opts: opts}
}

// Search runs every combination from base and returns the candidates sorted
// by range, longest first. Runs that never land or degrade score zero.
func (g *GridSearch) Search(ctx context.Context, base *config.SimulationConfig, rc sim.RunConfig) ([]Candidate, error) {
	var combos []map[string]float64
	g.searchRecursive(0, map[string]float64{}, &combos)
	if len(combos) == 0 {
		return nil, fmt.Errorf("empty search grid")
	}

	configs := make([]*config.SimulationConfig, len(combos))
	for i, combo := range combos {
		cfg := base.Clone()
		for name, v := range combo {
			Setters[name](cfg, v)
		}
		configs[i] = cfg
	}

	if rc.RecordEvery < 1 {
		rc.RecordEvery = 1
	}
	results, errs, err := sim.NewEnsemble(configs, g.workers, g.opts...).Run(ctx, rc)
	if results == nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := make([]Candidate, len(combos))
	for i, combo := range combos {
		c := Candidate{Values: combo, Err: errs[i]}
		if r := results[i]; r != nil && c.Err == nil {
			c.Degraded = r.Degraded
			c.Launch, c.Err = launch(r, configs[i])
			if c.Launch != nil && c.Launch.Landed && !c.Degraded {
				c.Range = c.Launch.Range
			}
		}
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Range > out[j].Range })
	return out, nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.params) {
		if len(current) > 0 {
			*out = append(*out, current)
		}
		return
	}

	p := g.params[depth]
	for _, val := range p.Values {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[p.Name] = val
		g.searchRecursive(depth+1, next, out)
	}
}

func launch(r *sim.Result, cfg *config.SimulationConfig) (*analysis.LaunchReport, error) {
	rows := make([]storage.FrameRow, len(r.Frames))
	for i, f := range r.Frames {
		rows[i] = storage.NewFrameRow(f)
	}
	return analysis.Launch(rows, cfg.Projectile.Radius+1e-3, math.Abs(cfg.Environment.Gravity))
}
