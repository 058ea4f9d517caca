package storage

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/flowpod/internal/pod"
)

const recreatedColumn = "recreated"

// StoredModes is the content of modes.arrow: the spatial modes of a run and the
// recreated snapshot, all flattened column-major per component.
type StoredModes struct {
	Ny, Nx     int
	Components int
	Modes      *mat.Dense
	Recreated  []float64
}

func (m *StoredModes) Len() int {
	_, k := m.Modes.Dims()
	return k
}

// Field returns the first component of mode i as an Ny x Nx grid.
func (m *StoredModes) Field(i int) (*mat.Dense, error) {
	if i < 0 || i >= m.Len() {
		return nil, fmt.Errorf("%w: mode %d of %d", pod.ErrModeRange, i, m.Len())
	}
	return pod.Unflatten(mat.Col(nil, i, m.Modes), m.Ny, m.Nx)
}

// ModeField returns mode i as the run plotted it: scaled by its coefficient
// when the run kept scaled mode fields, the unit mode otherwise.
func (m *StoredModes) ModeField(meta *RunMetadata, i int) (*mat.Dense, error) {
	f, err := m.Field(i)
	if err != nil {
		return nil, err
	}
	if !meta.Params.ScaledModes {
		return f, nil
	}
	if i >= len(meta.Coefficients) {
		return nil, fmt.Errorf("%w: no coefficient for mode %d", pod.ErrModeRange, i+1)
	}
	f.Scale(meta.Coefficients[i], f)
	return f, nil
}

// Reconstruction returns the first component of the recreated snapshot.
func (m *StoredModes) Reconstruction() (*mat.Dense, error) {
	return pod.Unflatten(m.Recreated, m.Ny, m.Nx)
}

func modeColumn(i int) string { return fmt.Sprintf("mode_%d", i+1) }

func writeModes(path string, result *pod.Result) error {
	_, k := result.Modes.Dims()
	cols := make([]column, 0, k+1)
	for i := 0; i < k; i++ {
		cols = append(cols, column{name: modeColumn(i), values: mat.Col(nil, i, result.Modes)})
	}
	cols = append(cols, column{name: recreatedColumn, values: result.Recreated})

	return writeColumns(path, map[string]int{
		"ny":         result.Ny,
		"nx":         result.Nx,
		"components": result.Components,
	}, cols)
}

func (s *Store) LoadModes(runID string) (*StoredModes, error) {
	meta, cols, err := readColumns(filepath.Join(s.baseDir, runID, modesFile), "ny", "nx", "components")
	if err != nil {
		return nil, err
	}

	k := len(cols) - 1
	if k < 1 || len(cols[0].values) == 0 {
		return nil, fmt.Errorf("modes %s: empty record", runID)
	}
	if cols[k].name != recreatedColumn {
		return nil, fmt.Errorf("modes %s: no %s column", runID, recreatedColumn)
	}

	out := &StoredModes{
		Ny:         meta["ny"],
		Nx:         meta["nx"],
		Components: meta["components"],
		Modes:      mat.NewDense(len(cols[0].values), k, nil),
		Recreated:  cols[k].values,
	}
	for i := 0; i < k; i++ {
		if len(cols[i].values) != len(cols[0].values) {
			return nil, fmt.Errorf("modes %s: column %s has %d rows", runID, cols[i].name, len(cols[i].values))
		}
		out.Modes.SetCol(i, cols[i].values)
	}
	return out, nil
}
