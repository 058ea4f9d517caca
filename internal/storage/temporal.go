package storage

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/flowpod/internal/pod"
)

func temporalColumn(i int) string { return fmt.Sprintf("a_%d", i+1) }

func writeTemporal(path string, result *pod.Result) error {
	t, k := result.Temporal.Dims()
	cols := make([]column, k)
	for i := range cols {
		cols[i] = column{name: temporalColumn(i), values: mat.Col(nil, i, result.Temporal)}
	}
	return writeColumns(path, map[string]int{"t": t}, cols)
}

// LoadTemporal returns the T x k temporal coefficients of a run: every snapshot
// projected onto every retained mode.
func (s *Store) LoadTemporal(runID string) (*mat.Dense, error) {
	meta, cols, err := readColumns(filepath.Join(s.baseDir, runID, temporalFile), "t")
	if err != nil {
		return nil, err
	}
	t := meta["t"]
	if len(cols) == 0 || t == 0 {
		return nil, fmt.Errorf("temporal %s: empty record", runID)
	}

	out := mat.NewDense(t, len(cols), nil)
	for i, c := range cols {
		if len(c.values) != t {
			return nil, fmt.Errorf("temporal %s: column %s has %d rows, want %d", runID, c.name, len(c.values), t)
		}
		out.SetCol(i, c.values)
	}
	return out, nil
}
