package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles is the panel style set derived from a theme.
type styles struct {
	canvas, stats, header, label, value, active, graph, help, warn lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas: lipgloss.NewStyle().Padding(1, 2),
		stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(44),
		header: lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		active: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		graph:  lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 0),
		help:   lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		warn:   lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
	}
}

// Sparkline renders values as a row of block glyphs, sampling down to width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int(math.Round((values[i*step] - lo) / rng * float64(len(chars)-1)))
		b.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return b.String()
}

// FillBar draws a capacity bar such as particle count over the cap.
func FillBar(fraction float64, width int) string {
	filled := max(0, min(int(fraction*float64(width)), width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}
