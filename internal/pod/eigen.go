package pod

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

type EigenOptions struct {
	// Limit bounds the eligible snapshots to [0, Limit).
	Limit int
	// Step is the stride between sampled snapshots.
	Step int
	// Eigenvalues <= Cutoff are discarded, as are non-positive ones.
	Cutoff float64
}

// Eigen is the solution of the snapshot eigenproblem R = Xs Xs^T.
type Eigen struct {
	// Indices are the sampled snapshot rows of the fluctuation matrix.
	Indices []int
	// All holds every eigenvalue of R in descending order.
	All []float64
	// Values are the retained eigenvalues (> cutoff), descending.
	Values []float64
	// Vectors holds the matching unit eigenvectors as columns (m x k).
	Vectors *mat.Dense
	// Sampled is Xs^T, one sampled snapshot per column (N x m).
	Sampled *mat.Dense
}

func (e *Eigen) Len() int { return len(e.Values) }

// SampleIndices returns 0, step, 2*step, ... below min(limit, t).
func SampleIndices(t, limit, step int) ([]int, error) {
	if step < 1 || limit < 1 {
		return nil, fmt.Errorf("%w: step=%d limit=%d", ErrStep, step, limit)
	}
	if limit > t {
		limit = t
	}
	idx := make([]int, 0, (limit+step-1)/step)
	for s := 0; s < limit; s += step {
		idx = append(idx, s)
	}
	return idx, nil
}

// SolveEigen samples rows of the fluctuation matrix x, forms their correlation
// matrix and keeps the eigenpairs whose eigenvalue exceeds the cutoff.
func SolveEigen(x *mat.Dense, opts EigenOptions) (*Eigen, error) {
	t, n := x.Dims()
	if t == 0 || n == 0 {
		return nil, ErrEmpty
	}

	idx, err := SampleIndices(t, opts.Limit, opts.Step)
	if err != nil {
		return nil, err
	}
	m := len(idx)

	xs := mat.NewDense(m, n, nil)
	for r, s := range idx {
		xs.SetRow(r, x.RawRowView(s))
	}

	r := mat.NewSymDense(m, nil)
	r.SymOuterK(1, xs)

	var es mat.EigenSym
	if ok := es.Factorize(r, true); !ok {
		return nil, ErrFactorize
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	e := &Eigen{Indices: idx, All: make([]float64, m)}
	kept := make([]int, 0, m)
	for rank, col := range order {
		e.All[rank] = values[col]
		if values[col] > opts.Cutoff && values[col] > 0 {
			kept = append(kept, col)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: largest eigenvalue %g, cutoff %g", ErrNoModes, e.All[0], opts.Cutoff)
	}

	e.Values = make([]float64, len(kept))
	e.Vectors = mat.NewDense(m, len(kept), nil)
	col := make([]float64, m)
	for k, c := range kept {
		e.Values[k] = values[c]
		mat.Col(col, c, &vectors)
		e.Vectors.SetCol(k, col)
	}

	e.Sampled = mat.DenseCopyOf(xs.T())
	return e, nil
}
