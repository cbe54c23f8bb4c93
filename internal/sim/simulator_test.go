package sim

import (
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/physics"
)

func newDefault(opts ...Option) *Simulation {
	cfg := config.CreateConfig()
	return New(physics.NewInitialState(cfg), cfg, append([]Option{WithLogger(quiet)}, opts...)...)
}

func expectFinite(s *Simulation) {
	GinkgoHelper()
	Expect(s.State().IsFinite()).To(BeTrue(), "non-finite state at t=%v", s.Time())
}

// unstable returns a finite state that overflows within one step.
func unstable(s *Simulation) *physics.PhysicsState {
	ps := s.State()
	ps.AngularVelocity = mgl64.Vec3{0, 0, 1e200}
	return ps
}

var _ = Describe("Simulation", func() {
	Describe("construction", func() {
		It("validates the configuration and keeps the warnings", func() {
			cfg := config.CreateConfig(config.WithRopeStiffness(math.NaN()), config.WithSlingLength(200))
			s := New(nil, cfg, WithLogger(quiet))

			got := s.Config().Trebuchet
			Expect(*got.RopeStiffness).To(Equal(1e9))
			Expect(got.SlingLength).To(Equal(100.0))

			props := make([]string, 0)
			for _, w := range s.Warnings() {
				props = append(props, w.Property)
			}
			Expect(props).To(ContainElement("slingLength"))
			Expect(cfg.Trebuchet.SlingLength).To(Equal(200.0), "caller config must not be modified")
		})

		It("starts swinging, at rest and not degraded", func() {
			s := newDefault()
			Expect(s.Phase()).To(Equal(Swinging))
			Expect(s.Degraded()).To(BeFalse())
			Expect(s.Time()).To(Equal(0.0))
			expectFinite(s)
		})

		It("replaces an initial state with the wrong sling", func() {
			cfg := config.CreateConfig()
			ps := physics.NewInitialState(config.CreateConfig(func(c *config.SimulationConfig) {
				c.Trebuchet.SlingParticles = 2
			}))
			s := New(ps, cfg, WithLogger(quiet))
			Expect(s.State().NumParticles()).To(Equal(cfg.Trebuchet.SlingParticles))
		})
	})

	Describe("Update", func() {
		It("treats dt = 0 as a no-op", func() {
			s := newDefault()
			before := s.State().Vector()
			r := s.Update(0)
			Expect(r.StepsTaken).To(Equal(0))
			Expect(s.State().Vector().Equal(before)).To(BeTrue())
		})

		It("treats dt = 0 as a no-op while a backlog is pending", func() {
			s := newDefault()
			s.Update(0.1)
			before := s.State().Vector()
			t := s.Time()

			r := s.Update(0)
			Expect(r.StepsTaken).To(Equal(0))
			Expect(s.Time()).To(Equal(t))
			Expect(s.State().Vector().Equal(before)).To(BeTrue())
		})

		It("is deterministic", func() {
			a, b := newDefault(), newDefault()
			for i := 0; i < 150; i++ {
				dt := 0.004 + 0.003*float64(i%5)
				a.Update(dt)
				b.Update(dt)
			}
			Expect(a.State().Vector().Equal(b.State().Vector())).To(BeTrue())
			Expect(a.ExportFrameData()).To(Equal(b.ExportFrameData()))
		})

		It("keeps the orientation a unit quaternion", func() {
			cfg := config.GetPreset("windy")
			s := New(nil, cfg, WithLogger(quiet))
			for i := 0; i < 300; i++ {
				s.Update(0.01)
				Expect(s.State().Orientation.Len()).To(BeNumerically("~", 1, 1e-6))
			}
		})
	})

	Describe("degraded mode", func() {
		var (
			s      *Simulation
			frozen *physics.PhysicsState
		)

		BeforeEach(func() {
			s = newDefault()
			frozen = unstable(s)
			Expect(s.SetState(frozen)).To(Succeed())
			r := s.Update(0.01)
			Expect(r.Degraded).To(BeTrue())
		})

		It("freezes at the last good snapshot", func() {
			Expect(s.Degraded()).To(BeTrue())
			Expect(s.State().Vector().Equal(frozen.Vector())).To(BeTrue())
			expectFinite(s)
		})

		It("takes no steps until cleared", func() {
			r := s.Update(0.01)
			Expect(r.StepsTaken).To(Equal(0))
			Expect(r.InterpolationAlpha).To(Equal(0.0))
			Expect(s.State().Vector().Equal(frozen.Vector())).To(BeTrue())
		})

		It("reports itself in frame data", func() {
			Expect(s.ExportFrameData().Degraded).To(BeTrue())
		})

		It("is cleared by ResetDegraded", func() {
			s.ResetDegraded()
			Expect(s.Degraded()).To(BeFalse())
		})

		It("is cleared by SetState", func() {
			Expect(s.SetState(physics.NewInitialState(s.Config()))).To(Succeed())
			Expect(s.Degraded()).To(BeFalse())
			r := s.Update(0.01)
			Expect(r.StepsTaken).To(Equal(10))
		})

		It("is cleared by Reset, which restores the initial state", func() {
			s.Reset()
			Expect(s.Degraded()).To(BeFalse())
			Expect(s.Phase()).To(Equal(Swinging))
			Expect(s.Time()).To(Equal(0.0))
			Expect(s.State().Vector().Equal(physics.NewInitialState(s.Config()).Vector())).To(BeTrue())
		})
	})

	Describe("SetState", func() {
		It("rejects a state with a different sling", func() {
			s := newDefault()
			ps := physics.NewInitialState(config.CreateConfig(func(c *config.SimulationConfig) {
				c.Trebuchet.SlingParticles = 1
			}))
			Expect(s.SetState(ps)).NotTo(Succeed())
		})

		It("rejects a non-finite state", func() {
			s := newDefault()
			ps := s.State()
			ps.Velocity[0] = math.NaN()
			Expect(s.SetState(ps)).NotTo(Succeed())
		})
	})

	Describe("a launch with the default configuration", Ordered, func() {
		var s *Simulation

		BeforeAll(func() {
			s = newDefault()
		})

		It("keeps energy plus dissipated work within 0.21% over 5 s", func() {
			for i := 0; i < 500; i++ {
				s.Update(0.01)
				expectFinite(s)
				Expect(s.EnergyDrift()).To(BeNumerically("<", 0.0021), "t=%v", s.Time())
			}
			Expect(s.Phase()).NotTo(Equal(Swinging))
		})

		It("reaches 20 s without stalling", func() {
			wd := NewWatchdog(DefaultStallLimit)
			wd.Observe(s.Time())
			for i := 500; i < 2000; i++ {
				prev := s.Time()
				s.Update(0.01)
				expectFinite(s)
				Expect(s.Time()).To(BeNumerically(">", prev))
				Expect(wd.Observe(s.Time())).To(BeFalse())
			}
			Expect(s.Time()).To(BeNumerically("~", 20.0, 0.5))
			Expect(s.Degraded()).To(BeFalse())
			Expect(s.Phase()).To(Equal(GroundDragging))
		})

		It("exports frame data that survives JSON", func() {
			f := s.ExportFrameData()
			data, err := json.Marshal(f)
			Expect(err).NotTo(HaveOccurred())

			var back map[string]any
			Expect(json.Unmarshal(data, &back)).To(Succeed())
			Expect(back).To(HaveKey("forces"))
			Expect(back["phase"]).To(Equal("groundDragging"))
			Expect(f.Sling.Attached).To(BeFalse())
		})

		It("goes back to swinging on Reset", func() {
			s.Reset()
			Expect(s.Phase()).To(Equal(Swinging))
			Expect(s.Dynamics().Released()).To(BeFalse())
			Expect(s.EnergyDrift()).To(Equal(0.0))
		})
	})

	Describe("the extreme scenario", func() {
		It("never leaks NaN: it finishes, stalls or degrades", func() {
			s := New(nil, config.GetPreset("extreme"), WithLogger(quiet))
			wd := NewWatchdog(DefaultStallLimit)
			fired := false

			Expect(func() {
				for i := 0; i < 2000; i++ {
					s.Update(0.01)
					expectFinite(s)
					if wd.Observe(s.Time()) {
						fired = true
						break
					}
				}
			}).NotTo(Panic())

			if s.Time() < 19.5 {
				Expect(fired || s.Degraded()).To(BeTrue())
			}
		})
	})
})
