package viz

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/sim"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCanvasSetAndLine(t *testing.T) {
	c := NewCanvas(4, 2)
	if c.DotWidth() != 8 || c.DotHeight() != 8 {
		t.Fatalf("unexpected dot size %dx%d", c.DotWidth(), c.DotHeight())
	}

	c.Set(-1, 0)
	c.Set(100, 100)
	c.DrawLine(0, 0, 7, 7)
	for i := 0; i < 8; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("dot (%d,%d) not set", i, i)
		}
	}
	if c.IsSet(7, 0) {
		t.Error("unexpected dot set")
	}

	c.Clear()
	if strings.Trim(c.String(), "⠀\n") != "" {
		t.Error("Clear left dots behind")
	}
}

func TestViewportProject(t *testing.T) {
	c := NewCanvas(10, 5)
	v := Fit(c, 0, 19, 0, 19)

	tests := []struct {
		x, y   float64
		px, py int
	}{
		{0, 0, 0, 19},
		{19, 19, 19, 0},
		{10, 0, 10, 19},
	}
	for _, tt := range tests {
		px, py := v.Project(tt.x, tt.y)
		if px != tt.px || py != tt.py {
			t.Errorf("Project(%v,%v) = (%d,%d), want (%d,%d)", tt.x, tt.y, px, py, tt.px, tt.py)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("empty sparkline = %q", got)
	}
	got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 4)
	if got != "▁▃▅█" {
		t.Errorf("sparkline = %q", got)
	}
	if got := Sparkline([]float64{2, 2}, 2); got != "▁▁" {
		t.Errorf("flat sparkline = %q", got)
	}
}

func newModel(t *testing.T) Model {
	t.Helper()
	s := sim.New(nil, config.CreateConfig(), sim.WithLogger(quiet))
	return NewModel(s, "default", 0.01)
}

func TestModelTicks(t *testing.T) {
	m := newModel(t)
	for i := 0; i < 5; i++ {
		next, cmd := m.Update(TickMsg(time.Now()))
		if cmd == nil {
			t.Fatal("tick did not schedule the next tick")
		}
		m = next.(Model)
	}
	if len(m.history) != 5 {
		t.Errorf("expected 5 recorded frames, got %d", len(m.history))
	}
	if m.frame.Time < 0.049 {
		t.Errorf("simulation did not advance: t=%v", m.frame.Time)
	}

	view := m.View()
	for _, want := range []string{"DEFAULT", "swinging", "RUNNING"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelKeys(t *testing.T) {
	m := newModel(t)
	key := func(s string) {
		var msg tea.KeyMsg
		if s == " " {
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	tick := func() {
		next, _ := m.Update(TickMsg(time.Now()))
		m = next.(Model)
	}

	tick()
	tick()
	key(" ")
	tick()
	if len(m.history) != 2 {
		t.Errorf("paused model advanced: %d frames", len(m.history))
	}

	key("[")
	if m.playHead != 0 {
		t.Errorf("play head = %d, want 0", m.playHead)
	}
	key("]")
	key("]")
	if m.playHead != -1 {
		t.Errorf("play head = %d, want live", m.playHead)
	}

	key("t")
	if m.theme != 1 {
		t.Errorf("theme = %d, want 1", m.theme)
	}

	key("r")
	if len(m.history) != 0 || m.frame.Time != 0 {
		t.Error("reset did not clear history")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q did not quit")
	}
}
