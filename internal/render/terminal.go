package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/palette/moreland"
)

// Heatmap draws data as coloured blocks, width x height cells at most, in the same
// orientation as ContourFigure: data rows left to right, columns bottom to top.
func Heatmap(data mat.Matrix, width, height int) string {
	rows, cols := data.Dims()
	if rows == 0 || cols == 0 || width < 1 || height < 1 {
		return ""
	}
	width = min(width, rows)
	height = min(height, cols)

	lo, hi := mat.Min(data), mat.Max(data)
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return ""
	}
	lo, hi = nonsingular(lo, hi)
	cm := moreland.SmoothBlueRed()
	cm.SetMin(lo)
	cm.SetMax(hi)

	var b strings.Builder
	for cy := 0; cy < height; cy++ {
		jy := height - 1 - cy
		j0, j1 := jy*cols/height, (jy+1)*cols/height
		for cx := 0; cx < width; cx++ {
			i0, i1 := cx*rows/width, (cx+1)*rows/width
			v := blockMean(data, i0, i1, j0, j1)
			c, err := cm.At(math.Max(lo, math.Min(hi, v)))
			if err != nil {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(lipgloss.NewStyle().Foreground(hexColor(c)).Render("█"))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "min %.4g  max %.4g", lo, hi)
	return b.String()
}

func blockMean(m mat.Matrix, i0, i1, j0, j1 int) float64 {
	sum, n := 0.0, 0
	for i := i0; i < max(i1, i0+1); i++ {
		for j := j0; j < max(j1, j0+1); j++ {
			sum += m.At(i, j)
			n++
		}
	}
	return sum / float64(n)
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

// Spectrum charts log10 of the eigenvalues and the cumulative energy in percent.
func Spectrum(eigenvalues, cumulative []float64, width int) string {
	if len(eigenvalues) == 0 {
		return ""
	}

	logs := make([]float64, len(eigenvalues))
	for i, v := range eigenvalues {
		logs[i] = math.Log10(math.Max(v, 1e-300))
	}

	var b strings.Builder
	b.WriteString(asciigraph.Plot(logs,
		asciigraph.Height(10),
		asciigraph.Width(width),
		asciigraph.Caption("log10 eigenvalue vs mode"),
	))

	if len(cumulative) > 0 {
		pct := make([]float64, len(cumulative))
		for i, v := range cumulative {
			pct[i] = 100 * v
		}
		b.WriteString("\n\n")
		b.WriteString(asciigraph.Plot(pct,
			asciigraph.Height(10),
			asciigraph.Width(width),
			asciigraph.Caption("cumulative energy (%) vs mode"),
		))
	}
	return b.String()
}

// Series charts a single sequence, e.g. a temporal coefficient or its spectrum.
func Series(values []float64, caption string, width int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(12),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
