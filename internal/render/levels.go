package render

import "math"

var niceSteps = []float64{1, 2, 2.5, 5, 10}

// Levels returns evenly spaced "nice" contour levels covering [lo, hi] with at most
// nbins intervals. The first level is <= lo and the last is >= hi.
func Levels(lo, hi float64, nbins int) []float64 {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil
	}
	if nbins < 1 {
		nbins = 1
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	lo, hi = nonsingular(lo, hi)

	raw := (hi - lo) / float64(nbins)
	scale := math.Pow(10, math.Floor(math.Log10(raw)))

	for decade := scale; ; decade *= 10 {
		for _, s := range niceSteps {
			step := s * decade
			if step < raw*(1-1e-10) {
				continue
			}
			first := math.Floor(lo/step+1e-10) * step
			last := math.Ceil(hi/step-1e-10) * step
			n := int(math.Round((last - first) / step))
			if n > nbins {
				continue
			}
			if n < 1 {
				n = 1
			}
			levels := make([]float64, n+1)
			for i := range levels {
				levels[i] = first + float64(i)*step
			}
			return levels
		}
	}
}

// nonsingular widens a degenerate range so it has positive extent.
func nonsingular(lo, hi float64) (float64, float64) {
	const expander = 0.001
	maxAbs := math.Max(math.Abs(lo), math.Abs(hi))
	if hi-lo > maxAbs*1e-15 && hi-lo > 1e-300 {
		return lo, hi
	}
	if maxAbs == 0 {
		return -expander, expander
	}
	return lo - expander*math.Abs(lo), hi + expander*math.Abs(hi)
}
