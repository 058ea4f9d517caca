package field

// Grid holds the normalised coordinates of an Ny x Nx field: Y[i] for rows and
// X[j] for columns, both spanning [0, 1].
type Grid struct {
	Y, X []float64
}

func NewGrid(ny, nx int) Grid {
	return Grid{Y: unitSpace(ny), X: unitSpace(nx)}
}

func unitSpace(n int) []float64 {
	if n <= 0 {
		return nil
	}
	v := make([]float64, n)
	if n == 1 {
		return v
	}
	d := 1 / float64(n-1)
	for i := range v {
		v[i] = float64(i) * d
	}
	v[n-1] = 1
	return v
}
