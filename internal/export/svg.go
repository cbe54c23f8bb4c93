// Package export renders stored launches to static formats.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/trebsim/internal/analysis"
	"github.com/san-kum/trebsim/internal/storage"
)

type SVGOptions struct {
	Width, Height int
	Stroke        string
	Background    string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 400, Stroke: "#00ff88", Background: "#0a0a0a"}
}

// TrajectorySVG draws the projectile path with equal scale on both axes,
// marking the release point and, if present, the landing point.
func TrajectorySVG(w io.Writer, rows []storage.FrameRow, launch *analysis.LaunchReport, opt SVGOptions) error {
	if len(rows) < 2 {
		return fmt.Errorf("need at least 2 frames, got %d", len(rows))
	}

	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i], ys[i] = r.ProjX, r.ProjY
	}
	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := math.Min(0, floats.Min(ys)), floats.Max(ys)

	pad := 0.05 * math.Max(maxX-minX, maxY-minY)
	if !(pad > 0) {
		pad = 1
	}
	minX, maxX, minY, maxY = minX-pad, maxX+pad, minY-pad, maxY+pad
	scale := math.Min(float64(opt.Width)/(maxX-minX), float64(opt.Height)/(maxY-minY))

	px := func(x float64) float64 { return (x - minX) * scale }
	py := func(y float64) float64 { return float64(opt.Height) - (y-minY)*scale }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, opt.Width, opt.Height, opt.Width, opt.Height, opt.Background)

	fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#666666" stroke-width="1"/>
`, py(0), opt.Width, py(0))

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, opt.Stroke)
	for i := range xs {
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", px(xs[i]), py(ys[i]))
	}
	sb.WriteString("\"/>\n")

	if launch != nil {
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="4" fill="#ffcc00"><title>release t=%.3fs</title></circle>
`, px(launch.ReleaseX), py(launch.ReleaseY), launch.ReleaseTime)
		if launch.Landed {
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="4" fill="#ff4444"><title>landing range=%.2fm</title></circle>
`, px(launch.LandingX), py(0), launch.Range)
		}
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
