// Package render draws POD fields as filled contour figures and terminal graphics.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/san-kum/flowpod/internal/field"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

type Options struct {
	Levels int
	Width  vg.Length
	Height vg.Length
	// Format is the output extension without the dot: png, svg, pdf, eps, jpg, tif.
	Format string
}

func DefaultOptions() Options {
	return Options{Levels: 100, Width: 16 * vg.Centimeter, Height: 12 * vg.Centimeter, Format: "png"}
}

// Figure is one field to draw. Data is Ny x Nx; rows run along the horizontal
// axis at Grid.Y and columns along the vertical axis at Grid.X.
type Figure struct {
	Name  string
	Title string
	Data  mat.Matrix
	Grid  field.Grid
}

// gridXYZ adapts a figure to plotter.GridXYZ.
type gridXYZ struct {
	data mat.Matrix
	g    field.Grid
}

func (g gridXYZ) Dims() (c, r int) {
	rows, cols := g.data.Dims()
	return rows, cols
}

func (g gridXYZ) Z(c, r int) float64 { return g.data.At(c, r) }
func (g gridXYZ) X(c int) float64    { return g.g.Y[c] }
func (g gridXYZ) Y(r int) float64    { return g.g.X[r] }

// ContourFigure writes a filled contour plot of fig with a colour bar to path.
func ContourFigure(path string, fig Figure, opts Options) error {
	rows, cols := fig.Data.Dims()
	if rows != len(fig.Grid.Y) || cols != len(fig.Grid.X) {
		return fmt.Errorf("render %s: data is %dx%d, grid is %dx%d", fig.Name, rows, cols, len(fig.Grid.Y), len(fig.Grid.X))
	}

	levels := Levels(mat.Min(fig.Data), mat.Max(fig.Data), opts.Levels)
	if levels == nil {
		return fmt.Errorf("render %s: field is not finite", fig.Name)
	}
	lo, hi := levels[0], levels[len(levels)-1]

	cm := moreland.SmoothBlueRed()
	cm.SetMin(lo)
	cm.SetMax(hi)
	pal := cm.Palette(len(levels) - 1)

	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = "y"
	p.Y.Label.Text = "x"

	hm := plotter.NewHeatMap(gridXYZ{data: fig.Data, g: fig.Grid}, pal)
	hm.Min, hm.Max = lo, hi
	p.Add(hm)

	bar := plot.New()
	bar.HideX()
	bar.Y.Padding = 0
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})

	c, err := draw.NewFormattedCanvas(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return fmt.Errorf("render %s: %w", fig.Name, err)
	}
	dc := draw.New(c)
	barWidth := opts.Width * 0.15
	p.Draw(draw.Crop(dc, 0, -barWidth, 0, 0))
	bar.Draw(draw.Crop(dc, opts.Width-barWidth, 0, 0, 0))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := c.WriteTo(f); err != nil {
		return fmt.Errorf("render %s: %w", fig.Name, err)
	}
	return f.Close()
}

// RenderAll draws every figure into dir concurrently and returns the written paths
// in figure order.
func RenderAll(ctx context.Context, dir string, figs []Figure, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	paths := make([]string, len(figs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, fig := range figs {
		paths[i] = filepath.Join(dir, fileName(fig.Name)+"."+opts.Format)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return ContourFigure(paths[i], fig, opts)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.ToLower(name))
}
