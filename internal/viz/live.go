package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/trebsim/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	trailCapacity   = 400
	frameRate       = 60
)

type TickMsg time.Time

// Model drives a simulation at a fixed wall-clock tick and renders its
// frames.
type Model struct {
	sim     *sim.Simulation
	name    string
	dt      float64
	canvas  *Canvas
	running bool

	frame      sim.FrameData
	startAngle float64
	history    []sim.FrameData
	energy     []float64
	tension    []float64
	trail      [][2]float64
	playHead   int

	theme    int
	st       styles
	showHelp bool
}

// NewModel wraps s. Each tick advances the simulation by dt seconds.
func NewModel(s *sim.Simulation, name string, dt float64) Model {
	f := s.ExportFrameData()
	return Model{
		sim:        s,
		name:       name,
		dt:         dt,
		canvas:     NewCanvas(width, height),
		running:    true,
		frame:      f,
		startAngle: f.Arm.Angle,
		history:    make([]sim.FrameData, 0, historyCapacity),
		energy:     make([]float64, 0, historyCapacity),
		tension:    make([]float64, 0, historyCapacity),
		trail:      make([][2]float64, 0, trailCapacity),
		playHead:   -1,
		st:         Themes[0].styles(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "d":
			m.sim.ResetDegraded()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.st = Themes[m.theme].styles()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	m.sim.Update(m.dt)
	m.frame = m.sim.ExportFrameData()

	m.energy = appendCapped(m.energy, m.frame.Energy.Total, historyCapacity)
	m.tension = appendCapped(m.tension, m.frame.Sling.Tension, historyCapacity)
	m.history = appendCapped(m.history, m.frame, historyCapacity)
	if m.frame.Phase != sim.Swinging {
		p := m.frame.Projectile.Position
		m.trail = appendCapped(m.trail, [2]float64{p[0], p[1]}, trailCapacity)
	}
}

func appendCapped[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		s = s[1:]
	}
	return s
}

// scrub moves the playback head; stepping past the newest frame returns to
// live mode.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead = max(m.playHead+dir, 0)
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m *Model) reset() {
	m.sim.Reset()
	m.frame = m.sim.ExportFrameData()
	m.history = m.history[:0]
	m.energy = m.energy[:0]
	m.tension = m.tension[:0]
	m.trail = m.trail[:0]
	m.playHead = -1
}

// shown is the frame being displayed: live or the one under the play head.
func (m Model) shown() sim.FrameData {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return m.frame
}

func (m Model) View() string {
	f := m.shown()
	m.draw(f)

	var s strings.Builder
	s.WriteString(m.st.header.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(m.status(f) + "\n\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy (J)"))
		s.WriteString(m.st.graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3f s", f.Time))
	row("Phase", f.Phase.String())
	row("Arm", fmt.Sprintf("%.1f°  %.1f°/s", deg(f.Arm.Angle), deg(f.Arm.AngularVelocity)))
	row("Speed", fmt.Sprintf("%.2f m/s", f.Projectile.Speed))
	row("Height", fmt.Sprintf("%.2f m", f.Ground.Height))
	row("Range", fmt.Sprintf("%.2f m", -f.Projectile.Position[0]))
	row("Energy", fmt.Sprintf("%.1f J", f.Energy.Total))
	row("Drift", fmt.Sprintf("%.4f%%", 100*m.sim.EnergyDrift()))
	row("Violation", fmt.Sprintf("%.2f cm", 100*f.Constraints.SlingLength.Violation))

	release := m.sim.Config().Trebuchet.ReleaseAngle
	progress := (f.Arm.Angle - m.startAngle) / (release - m.startAngle)
	row("Release", ProgressBar(progress, 16, m.st.ok))
	row("Tension", Sparkline(m.tension, 24))

	if w := m.sim.Warnings(); len(w) > 0 {
		s.WriteString("\n" + m.st.warn.Render(fmt.Sprintf("%d config warning(s)", len(w))) + "\n")
		for _, warning := range w {
			s.WriteString(m.st.label.Width(40).Render("  "+warning.Message) + "\n")
		}
	}

	s.WriteString(m.st.help.Render("SP:Pause R:Reset D:Undegrade Q:Quit\nT:Theme [ ]:Scrub ?:Help"))

	canvasView := m.st.canvas.Render(m.canvas.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
  Space  Pause/Resume simulation
  R      Reset to the at-rest state
  D      Leave degraded mode
  T      Cycle themes
  [ ]    Step through recorded frames
  ?      Toggle this help
  Q      Quit`

func (m Model) status(f sim.FrameData) string {
	switch {
	case f.Degraded:
		return m.st.bad.Render("DEGRADED")
	case m.playHead != -1:
		return m.st.warn.Render(fmt.Sprintf("REPLAY (%.2fs)", f.Time-m.frame.Time))
	case !m.running:
		return m.st.warn.Render("PAUSED")
	}
	return m.st.ok.Render("RUNNING")
}

// draw renders the scene. The viewport grows to keep the projectile and its
// trail in view.
func (m Model) draw(f sim.FrameData) {
	c := m.canvas
	c.Clear()

	minX, maxX, maxY := -12.0, 8.0, 10.0
	include := func(x, y float64) {
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return
		}
		minX, maxX, maxY = math.Min(minX, x-2), math.Max(maxX, x+2), math.Max(maxY, y+2)
	}
	include(f.Projectile.Position[0], f.Projectile.Position[1])
	for _, p := range m.trail {
		include(p[0], p[1])
	}
	v := Fit(c, minX, maxX, -0.5, maxY)

	line := func(a, b sim.Vec3) {
		x0, y0 := v.Project(a[0], a[1])
		x1, y1 := v.Project(b[0], b[1])
		c.DrawLine(x0, y0, x1, y1)
	}

	gx0, gy := v.Project(minX, 0)
	gx1, _ := v.Project(maxX, 0)
	c.DrawLine(gx0, gy, gx1, gy)

	base := sim.Vec3{f.Arm.Pivot[0], 0, 0}
	line(sim.Vec3{base[0] - 1, 0, 0}, f.Arm.Pivot)
	line(sim.Vec3{base[0] + 1, 0, 0}, f.Arm.Pivot)

	line(f.Arm.ShortArmTip, f.Arm.LongArmTip)
	line(f.Arm.ShortArmTip, f.Counterweight.Position)
	cx, cy := v.Project(f.Counterweight.Position[0], f.Counterweight.Position[1])
	c.DrawCircle(cx, cy, int(0.4*v.Scale))

	prev := f.Sling.StartPoint
	for _, p := range f.Sling.Particles {
		line(prev, p)
		prev = p
	}
	if f.Sling.Attached {
		line(prev, f.Projectile.Position)
	}

	for _, p := range m.trail {
		x, y := v.Project(p[0], p[1])
		c.Set(x, y)
	}
	px, py := v.Project(f.Projectile.Position[0], f.Projectile.Position[1])
	c.DrawCircle(px, py, int(f.Projectile.Radius*v.Scale))
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

// Run blocks until the user quits.
func Run(s *sim.Simulation, name string, dt float64) error {
	_, err := tea.NewProgram(NewModel(s, name, dt), tea.WithAltScreen()).Run()
	return err
}
