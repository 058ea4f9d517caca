package pod

import (
	"fmt"

	"github.com/san-kum/flowpod/internal/field"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Fluctuations subtracts the temporal mean at every grid point of each component and
// lays the result out as a T x (C*Ny*Nx) matrix. Each row is one snapshot: every
// component is flattened column-major (point (i, j) goes to i + j*Ny) and the
// components are concatenated in order.
func Fluctuations(comps ...*field.Field) (*mat.Dense, error) {
	if len(comps) == 0 || comps[0] == nil || comps[0].T == 0 || comps[0].Points() == 0 {
		return nil, ErrEmpty
	}
	ref := comps[0]
	for _, c := range comps[1:] {
		if c == nil || !ref.SameShape(c) {
			return nil, &ShapeError{
				Op:   "fluctuations",
				Want: fmt.Sprintf("%dx%dx%d", ref.T, ref.Ny, ref.Nx),
				Got:  shapeOf(c),
			}
		}
	}

	t, ny, n := ref.T, ref.Ny, ref.Points()
	x := mat.NewDense(t, len(comps)*n, nil)

	for k, c := range comps {
		mean := make([]float64, n)
		for s := 0; s < t; s++ {
			floats.Add(mean, c.Snapshot(s))
		}
		floats.Scale(1/float64(t), mean)

		offset := k * n
		parallelFor(t, 64, func(start, end int) {
			dash := make([]float64, n)
			for s := start; s < end; s++ {
				floats.SubTo(dash, c.Snapshot(s), mean)
				row := x.RawRowView(s)[offset : offset+n]
				for p, v := range dash {
					i, j := p/c.Nx, p%c.Nx
					row[i+j*ny] = v
				}
			}
		})
	}

	return x, nil
}

func shapeOf(f *field.Field) string {
	if f == nil {
		return "nil"
	}
	return fmt.Sprintf("%dx%dx%d", f.T, f.Ny, f.Nx)
}

// Unflatten reshapes a column-major vector of length ny*nx into an ny x nx grid.
func Unflatten(v []float64, ny, nx int) (*mat.Dense, error) {
	if len(v) < ny*nx {
		return nil, &ShapeError{Op: "unflatten", Want: fmt.Sprintf(">= %d values", ny*nx), Got: fmt.Sprint(len(v))}
	}
	g := mat.NewDense(ny, nx, nil)
	for j := 0; j < nx; j++ {
		for i := 0; i < ny; i++ {
			g.Set(i, j, v[i+j*ny])
		}
	}
	return g, nil
}
