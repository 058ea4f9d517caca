package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// EnergyBar renders a filled bar for a fraction in [0, 1].
func EnergyBar(th Theme, fraction float64, width int) string {
	if width < 1 {
		return ""
	}
	filled := int(fraction * float64(width))
	filled = min(max(filled, 0), width)

	color := th.Warning
	if fraction > 0.8 {
		color = th.Success
	} else if fraction > 0.4 {
		color = th.Accent
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(th.Muted).Render(strings.Repeat("░", width-filled))
}

// Sparkline draws values as block characters, marking index mark in the primary colour.
func Sparkline(th Theme, values []float64, mark int) string {
	if len(values) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	normal := lipgloss.NewStyle().Foreground(th.Secondary)
	marked := lipgloss.NewStyle().Foreground(th.Primary).Bold(true)

	var sb strings.Builder
	for i, v := range values {
		idx := int((v - lo) / rng * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		if i == mark {
			sb.WriteString(marked.Render(string(chars[idx])))
		} else {
			sb.WriteString(normal.Render(string(chars[idx])))
		}
	}
	return sb.String()
}

func separator(th Theme, width int) string {
	if width < 8 {
		width = 8
	}
	mid := width / 2
	return lipgloss.NewStyle().Foreground(th.Muted).
		Render(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}
