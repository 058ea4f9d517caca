package pod

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Modes builds the spatial modes Phi = Xs^T Psi diag(lambda^-1/2). Each column is a
// unit-norm mode of length N, ordered like the eigenvalues.
func Modes(e *Eigen) *mat.Dense {
	k := e.Len()
	inv := make([]float64, k)
	for i, l := range e.Values {
		inv[i] = 1 / math.Sqrt(l)
	}

	var scaled mat.Dense
	scaled.Mul(e.Vectors, mat.NewDiagDense(k, inv))

	n, _ := e.Sampled.Dims()
	modes := mat.NewDense(n, k, nil)
	modes.Mul(e.Sampled, &scaled)
	return modes
}

// Coefficients projects sampled snapshot s (an index into e.Indices) onto every mode.
func Coefficients(e *Eigen, modes *mat.Dense, s int) ([]float64, error) {
	_, m := e.Sampled.Dims()
	if s < 0 || s >= m {
		return nil, fmt.Errorf("%w: snapshot %d of %d sampled", ErrModeRange, s, m)
	}
	n, k := modes.Dims()
	if rows, _ := e.Sampled.Dims(); rows != n {
		return nil, &ShapeError{Op: "coefficients", Want: fmt.Sprintf("%d rows", rows), Got: fmt.Sprint(n)}
	}

	x := e.Sampled.ColView(s)
	a := make([]float64, k)
	for i := range a {
		a[i] = mat.Dot(x, modes.ColView(i))
	}
	return a, nil
}

// DiagonalCoefficients pairs the i-th sampled snapshot with the i-th mode:
// a_i = <x_{s_i}, phi_i>.
func DiagonalCoefficients(e *Eigen, modes *mat.Dense) ([]float64, error) {
	n, m := e.Sampled.Dims()
	rows, k := modes.Dims()
	if rows != n {
		return nil, &ShapeError{Op: "coefficients", Want: fmt.Sprintf("%d rows", n), Got: fmt.Sprint(rows)}
	}
	if k > m {
		return nil, fmt.Errorf("%w: %d modes but %d sampled snapshots", ErrModeRange, k, m)
	}

	a := make([]float64, k)
	for i := range a {
		a[i] = mat.Dot(e.Sampled.ColView(i), modes.ColView(i))
	}
	return a, nil
}

// RecreatedModes scales each mode column by its coefficient.
func RecreatedModes(modes mat.Matrix, a []float64) *mat.Dense {
	rec := mat.DenseCopyOf(modes)
	n, _ := rec.Dims()
	col := make([]float64, n)
	for i, ai := range a {
		mat.Col(col, i, rec)
		floats.Scale(ai, col)
		rec.SetCol(i, col)
	}
	return rec
}

// Reconstruct sums the recreated modes into one flattened snapshot of length N.
func Reconstruct(modes *mat.Dense, a []float64) []float64 {
	n, k := modes.Dims()
	k = min(k, len(a))
	out := make([]float64, n)
	if k == 0 {
		return out
	}
	rec := RecreatedModes(modes.Slice(0, n, 0, k), a[:k])
	for i := range out {
		out[i] = floats.Sum(rec.RawRowView(i))
	}
	return out
}

// ModeFields returns the first component of the first n modes as ny x nx grids.
func ModeFields(n int, modes *mat.Dense, ny, nx int) ([]*mat.Dense, error) {
	rows, k := modes.Dims()
	if n < 0 || n > k {
		return nil, fmt.Errorf("%w: %d modes requested, %d retained", ErrModeRange, n, k)
	}
	if rows < ny*nx {
		return nil, &ShapeError{Op: "mode fields", Want: fmt.Sprintf(">= %d rows", ny*nx), Got: fmt.Sprint(rows)}
	}

	grids := make([]*mat.Dense, n)
	col := make([]float64, rows)
	for i := range grids {
		mat.Col(col, i, modes)
		g, err := Unflatten(col, ny, nx)
		if err != nil {
			return nil, err
		}
		grids[i] = g
	}
	return grids, nil
}

type EnergyFraction struct {
	Fraction   float64 `json:"fraction"`
	Cumulative float64 `json:"cumulative"`
}

// Energy gives each eigenvalue's share of the total, and the running sum.
func Energy(values []float64) []EnergyFraction {
	total := floats.Sum(values)
	out := make([]EnergyFraction, len(values))
	if total == 0 {
		return out
	}
	cum := 0.0
	for i, v := range values {
		cum += v
		out[i] = EnergyFraction{Fraction: v / total, Cumulative: cum / total}
	}
	return out
}
