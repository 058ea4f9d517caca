package field

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ReadFunc reads the first comps velocity components of a snapshot file.
type ReadFunc func(path string, comps int) (*Dataset, error)

type Registry struct {
	formats map[string]ReadFunc
}

func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]ReadFunc)}

	r.formats[".npy"] = readNPY
	r.formats[".arrow"] = readArrow
	r.formats[".ipc"] = readArrow
	r.formats[".pickle"] = readPickle
	r.formats[".pkl"] = readPickle

	return r
}

func (r *Registry) Register(ext string, fn ReadFunc) {
	r.formats[strings.ToLower(ext)] = fn
}

func (r *Registry) Get(ext string) (ReadFunc, error) {
	fn, ok := r.formats[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFormat, ext, strings.Join(r.Extensions(), ", "))
	}
	return fn, nil
}

func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.formats))
	for ext := range r.formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) Load(path string, comps int) (*Dataset, error) {
	fn, err := r.Get(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	ds, err := fn(path, comps)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}

// Load reads a snapshot file using the default format registry.
func Load(path string, comps int) (*Dataset, error) {
	return NewRegistry().Load(path, comps)
}

// fromArray splits a (T, Ny, Nx, C) array into its first comps components.
func fromArray(raw []float64, shape []int, fortran bool, comps int) (*Dataset, error) {
	if len(shape) != 4 {
		return nil, fmt.Errorf("%w: want rank 4 (T, Ny, Nx, C), got shape %v", ErrShape, shape)
	}
	t, ny, nx, c := shape[0], shape[1], shape[2], shape[3]
	if comps < 1 || comps > 2 || comps > c {
		return nil, fmt.Errorf("%w: asked for %d of %d", ErrComponents, comps, c)
	}
	if len(raw) != t*ny*nx*c {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, shape, t*ny*nx*c, len(raw))
	}

	index := func(ti, i, j, k int) int { return ((ti*ny+i)*nx+j)*c + k }
	if fortran {
		index = func(ti, i, j, k int) int { return ti + t*(i+ny*(j+nx*k)) }
	}

	fields := make([]*Field, comps)
	for k := range fields {
		f := NewField(t, ny, nx)
		for ti := 0; ti < t; ti++ {
			for i := 0; i < ny; i++ {
				for j := 0; j < nx; j++ {
					f.Set(ti, i, j, raw[index(ti, i, j, k)])
				}
			}
		}
		fields[k] = f
	}

	ds := &Dataset{U: fields[0]}
	if comps > 1 {
		ds.V = fields[1]
	}
	return ds, nil
}
