package pod

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TemporalCoefficients projects every snapshot (row of x) onto every mode, giving
// a T x k matrix whose column i is the time history of mode i.
func TemporalCoefficients(x, modes *mat.Dense) (*mat.Dense, error) {
	t, n := x.Dims()
	rows, k := modes.Dims()
	if n != rows {
		return nil, &ShapeError{Op: "temporal coefficients", Want: fmt.Sprintf("%d rows", n), Got: fmt.Sprint(rows)}
	}
	a := mat.NewDense(t, k, nil)
	a.Mul(x, modes)
	return a, nil
}

type Spectrum struct {
	// Power holds |A(f)| for bins 0..len/2, bin b at b/len cycles per snapshot.
	Power []float64
	// Dominant is the strongest non-zero frequency, in cycles per snapshot.
	Dominant float64
	// Period is 1/Dominant, in snapshots.
	Period float64
}

// CoefficientSpectrum returns the amplitude spectrum of one temporal coefficient.
func CoefficientSpectrum(a []float64) (*Spectrum, error) {
	if len(a) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples, got %d", ErrEmpty, len(a))
	}

	mean := stat.Mean(a, nil)
	centered := make([]float64, len(a))
	for i, v := range a {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	sp := &Spectrum{Power: make([]float64, len(a)/2+1)}
	for i := range sp.Power {
		sp.Power[i] = cmplx.Abs(coeffs[i])
	}

	best := 0
	for i := 1; i < len(sp.Power); i++ {
		if best == 0 || sp.Power[i] > sp.Power[best] {
			best = i
		}
	}
	if best > 0 {
		sp.Dominant = float64(best) / float64(len(a))
		sp.Period = 1 / sp.Dominant
	}
	return sp, nil
}
