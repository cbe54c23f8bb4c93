package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/trebsim/internal/storage"
)

// Column selects one value from a frame row.
type Column struct {
	Name  string
	Value func(storage.FrameRow) float64
}

var Columns = map[string]Column{
	"time":      {"Time (s)", func(r storage.FrameRow) float64 { return r.Time }},
	"x":         {"Proj X (m)", func(r storage.FrameRow) float64 { return r.ProjX }},
	"y":         {"Proj Y (m)", func(r storage.FrameRow) float64 { return r.ProjY }},
	"vx":        {"Proj VX (m/s)", func(r storage.FrameRow) float64 { return r.ProjVX }},
	"vy":        {"Proj VY (m/s)", func(r storage.FrameRow) float64 { return r.ProjVY }},
	"arm":       {"Arm Angle (deg)", func(r storage.FrameRow) float64 { return r.ArmAngle }},
	"arm-omega": {"Arm Omega (deg/s)", func(r storage.FrameRow) float64 { return r.ArmOmega }},
	"cw-omega":  {"Weight Rel Omega (deg/s)", func(r storage.FrameRow) float64 { return r.WeightRelOmega }},
	"tension":   {"Tension Force (N)", func(r storage.FrameRow) float64 { return r.Tension }},
	"energy":    {"Energy (J)", func(r storage.FrameRow) float64 { return r.Energy }},
	"violation": {"Violation (cm)", func(r storage.FrameRow) float64 { return r.SlingViolationCm }},
	"normal":    {"Normal Force (N)", func(r storage.FrameRow) float64 { return r.NormalForce }},
}

func LookupColumn(key string) (Column, error) {
	c, ok := Columns[key]
	if !ok {
		return Column{}, fmt.Errorf("unknown column: %s", key)
	}
	return c, nil
}

// PhasePortrait plots y against x on a width x height character grid, with
// axes drawn where zero is in range.
func PhasePortrait(rows []storage.FrameRow, x, y Column, width, height int) string {
	if len(rows) == 0 || width < 2 || height < 2 {
		return ""
	}

	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i], ys[i] = x.Value(r), y.Value(r)
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX, maxX = minX-rangeX*0.1, maxX+rangeX*0.1
	minY, maxY = minY-rangeY*0.1, maxY+rangeY*0.1
	rangeX, rangeY = maxX-minX, maxY-minY

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	col := func(v float64) int { return int((v - minX) / rangeX * float64(width-1)) }
	row := func(v float64) int { return height - 1 - int((v-minY)/rangeY*float64(height-1)) }

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range grid {
			grid[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range grid[r] {
			if grid[r][c] == '│' {
				grid[r][c] = '┼'
			} else {
				grid[r][c] = '─'
			}
		}
	}

	for i := range xs {
		c, r := col(xs[i]), row(ys[i])
		if r >= 0 && r < height && c >= 0 && c < width {
			grid[r][c] = '•'
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s vs %s\n", y.Name, x.Name)
	for _, line := range grid {
		sb.WriteString(string(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}
