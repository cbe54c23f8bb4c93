package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders fraction (clamped to [0,1]) as a bar of width cells.
func ProgressBar(fraction float64, width int, style lipgloss.Style) string {
	if math.IsNaN(fraction) {
		fraction = 0
	}
	filled := int(math.Max(0, math.Min(1, fraction)) * float64(width))
	return style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline samples the last width values into block characters scaled
// between their min and max.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	if !(span > 0) {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(sparkChars)-1))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}
