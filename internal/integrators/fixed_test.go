package integrators

import (
	"io"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/dynamo"
)

type recorder struct {
	times []float64
}

func (r *recorder) OnStep(x dynamo.State, t float64) { r.times = append(r.times, t) }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ = Describe("Fixed", func() {
	var (
		cfg config.IntegrationConfig
		x0  dynamo.State
	)

	BeforeEach(func() {
		cfg = config.CreateConfig().Integration
		x0 = dynamo.State{1, 0, 0}
	})

	Describe("Update", func() {
		var f *Fixed

		BeforeEach(func() {
			f = NewFixed(oscillator{}, x0, cfg, WithLogger(quiet))
		})

		It("treats a zero dt as a no-op", func() {
			r := f.Update(0)
			Expect(r.StepsTaken).To(Equal(0))
			Expect(r.InterpolationAlpha).To(Equal(0.0))
			Expect(f.State().Equal(x0)).To(BeTrue())
		})

		It("leaves a backlog alone on a zero dt", func() {
			r := f.Update(0.1)
			Expect(r.StepsTaken).To(Equal(cfg.MaxSubsteps))
			Expect(f.Accumulator()).To(BeNumerically(">", f.StepSize()))

			before := f.State().Clone()
			acc, t := f.Accumulator(), f.Time()
			z := f.Update(0)
			Expect(z.StepsTaken).To(Equal(0))
			Expect(z.InterpolationAlpha).To(Equal(r.InterpolationAlpha))
			Expect(f.State().Equal(before)).To(BeTrue())
			Expect(f.Accumulator()).To(Equal(acc))
			Expect(f.Time()).To(Equal(t))
		})

		It("never takes a partial step when minTimestep is as large as the step", func() {
			cfg.MinTimestep = cfg.InitialTimestep
			f = NewFixed(oscillator{}, x0, cfg, WithLogger(quiet))

			Expect(f.Update(0.0015).StepsTaken).To(Equal(1))
			Expect(f.Update(0).StepsTaken).To(Equal(0))
			Expect(f.Update(0.0002).StepsTaken).To(Equal(0))
			Expect(f.State()[2]).To(BeNumerically("~", 0.001, 1e-12))
		})

		It("ignores negative and non-finite dt", func() {
			for _, dt := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
				r := f.Update(dt)
				Expect(r.StepsTaken).To(Equal(0))
			}
			Expect(f.State().Equal(x0)).To(BeTrue())
			Expect(f.Accumulator()).To(Equal(0.0))
		})

		It("consumes whole sub-steps and reports the remainder as alpha", func() {
			r := f.Update(0.01)
			Expect(r.StepsTaken).To(Equal(10))
			Expect(r.InterpolationAlpha).To(BeNumerically("<", 1e-6))
			Expect(f.State()[2]).To(BeNumerically("~", 0.01, 1e-12))

			r = f.Update(0.0015)
			Expect(r.StepsTaken).To(Equal(1))
			Expect(r.InterpolationAlpha).To(BeNumerically("~", 0.5, 1e-6))
		})

		It("bounds catch-up work by maxSubsteps", func() {
			r := f.Update(0.1)
			Expect(r.StepsTaken).To(Equal(cfg.MaxSubsteps))
			Expect(r.InterpolationAlpha).To(BeNumerically(">=", 0))
			Expect(r.InterpolationAlpha).To(BeNumerically("<", 1))
		})

		It("clamps the accumulator after a stall", func() {
			f.Update(10)
			Expect(f.Accumulator()).To(BeNumerically("<=", cfg.MaxAccumulator))
		})

		It("notifies observers after every sub-step", func() {
			rec := &recorder{}
			f = NewFixed(oscillator{}, x0, cfg, WithObservers(rec), WithLogger(quiet))
			f.Update(0.005)
			Expect(rec.times).To(HaveLen(5))
			for i := 1; i < len(rec.times); i++ {
				Expect(rec.times[i]).To(BeNumerically(">", rec.times[i-1]))
			}
		})

		It("applies the normalizer after each step", func() {
			calls := 0
			f = NewFixed(oscillator{}, x0, cfg, WithLogger(quiet), WithNormalizer(func(x dynamo.State) {
				calls++
				x[0] = 1
			}))
			f.Update(0.003)
			Expect(calls).To(Equal(3))
			Expect(f.State()[0]).To(Equal(1.0))
		})

		It("is deterministic", func() {
			g := NewFixed(oscillator{}, x0, cfg, WithLogger(quiet))
			for _, dt := range []float64{0.016, 0.017, 0.0, 0.033, 0.001} {
				f.Update(dt)
				g.Update(dt)
			}
			Expect(f.State().Equal(g.State())).To(BeTrue())
		})
	})

	Describe("Step", func() {
		It("subdivides steps longer than maxTimestep", func() {
			f := NewFixed(oscillator{}, x0, cfg, WithLogger(quiet))
			r := f.Step(0.05)
			Expect(r.StepsTaken).To(Equal(1))
			Expect(f.State()[2]).To(BeNumerically("~", 0.05, 1e-12))
			Expect(f.State()[0]).To(BeNumerically("~", math.Cos(0.05), 1e-9))
			Expect(f.PreviousState().Equal(x0)).To(BeTrue())
		})
	})

	Describe("degraded mode", func() {
		var f *Fixed

		BeforeEach(func() {
			f = NewFixed(blowup{at: 0.0055}, x0, cfg, WithLogger(quiet))
			r := f.Update(0.01)
			Expect(r.Degraded).To(BeTrue())
			Expect(r.StepsTaken).To(Equal(5))
		})

		It("freezes at the previous snapshot", func() {
			Expect(f.Degraded()).To(BeTrue())
			Expect(f.State().Equal(f.PreviousState())).To(BeTrue())
			Expect(f.State().IsValid()).To(BeTrue())
			Expect(f.Accumulator()).To(Equal(0.0))
		})

		It("rewinds the clock with the state", func() {
			Expect(f.State()[2]).To(BeNumerically("~", 0.004, 1e-12))
			Expect(f.Time()).To(BeNumerically("~", f.State()[2], 1e-12))
		})

		It("takes no steps while degraded", func() {
			before := f.State().Clone()
			r := f.Update(0.01)
			Expect(r.StepsTaken).To(Equal(0))
			Expect(r.InterpolationAlpha).To(Equal(0.0))
			Expect(f.State().Equal(before)).To(BeTrue())

			r = f.Step(0.001)
			Expect(r.StepsTaken).To(Equal(0))
		})

		It("survives Reset", func() {
			f.Reset()
			Expect(f.Degraded()).To(BeTrue())
		})

		It("is cleared by ResetDegraded", func() {
			f.ResetDegraded()
			Expect(f.Degraded()).To(BeFalse())
		})

		It("is cleared by SetState", func() {
			f.SetState(x0)
			Expect(f.Degraded()).To(BeFalse())
			Expect(f.State().Equal(x0)).To(BeTrue())
			Expect(f.PreviousState().Equal(x0)).To(BeTrue())
		})
	})

	Describe("Interpolate", func() {
		It("blends previous and current state", func() {
			f := NewFixed(oscillator{}, x0, cfg, WithLogger(quiet))
			f.Step(0.001)
			mid := f.Interpolate(0.5)
			Expect(mid[2]).To(BeNumerically("~", 0.0005, 1e-12))
		})
	})
})
