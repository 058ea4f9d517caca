// Package field holds velocity snapshot data and the loaders that read it from disk.
package field

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFormat = errors.New("field: unknown dataset format")
	ErrShape         = errors.New("field: dataset shape mismatch")
	ErrComponents    = errors.New("field: not enough velocity components")
)

// Field is one velocity component sampled on an Ny x Nx grid at T instants.
// Values are stored row-major in (t, i, j) order.
type Field struct {
	T, Ny, Nx int
	Data      []float64
}

func NewField(t, ny, nx int) *Field {
	return &Field{T: t, Ny: ny, Nx: nx, Data: make([]float64, t*ny*nx)}
}

func (f *Field) Points() int { return f.Ny * f.Nx }

func (f *Field) At(t, i, j int) float64 { return f.Data[(t*f.Ny+i)*f.Nx+j] }

func (f *Field) Set(t, i, j int, v float64) { f.Data[(t*f.Ny+i)*f.Nx+j] = v }

// Snapshot returns the grid at instant t. The slice aliases the field's storage.
func (f *Field) Snapshot(t int) []float64 {
	n := f.Points()
	return f.Data[t*n : (t+1)*n]
}

func (f *Field) SameShape(o *Field) bool {
	return f.T == o.T && f.Ny == o.Ny && f.Nx == o.Nx
}

// Dataset is a set of velocity components sharing one grid and time base.
type Dataset struct {
	U, V *Field
}

// Components returns the non-nil components in U, V order.
func (d *Dataset) Components() []*Field {
	comps := make([]*Field, 0, 2)
	if d.U != nil {
		comps = append(comps, d.U)
	}
	if d.V != nil {
		comps = append(comps, d.V)
	}
	return comps
}

func (d *Dataset) Shape() (t, ny, nx int) {
	if d.U == nil {
		return 0, 0, 0
	}
	return d.U.T, d.U.Ny, d.U.Nx
}

func (d *Dataset) Validate() error {
	if d.U == nil {
		return fmt.Errorf("%w: missing U component", ErrComponents)
	}
	if d.U.T == 0 || d.U.Points() == 0 {
		return fmt.Errorf("%w: empty field", ErrShape)
	}
	if len(d.U.Data) != d.U.T*d.U.Points() {
		return fmt.Errorf("%w: U holds %d values, want %d", ErrShape, len(d.U.Data), d.U.T*d.U.Points())
	}
	if d.V != nil && !d.U.SameShape(d.V) {
		return fmt.Errorf("%w: U is %dx%dx%d, V is %dx%dx%d", ErrShape,
			d.U.T, d.U.Ny, d.U.Nx, d.V.T, d.V.Ny, d.V.Nx)
	}
	return nil
}
