package field

import (
	"math"
	"math/rand"
)

// WakeSpec describes a synthetic wake: a shear-layer mean flow carrying two
// travelling vortex-street harmonics, plus seeded noise.
type WakeSpec struct {
	T, Ny, Nx int
	Seed      int64
	// Frequency of the fundamental harmonic in cycles per snapshot.
	Frequency float64
	Noise     float64
}

func DefaultWakeSpec() WakeSpec {
	return WakeSpec{T: 400, Ny: 96, Nx: 48, Seed: 1, Frequency: 0.05, Noise: 0.01}
}

// Synthesize builds a deterministic two-component dataset from spec.
func Synthesize(spec WakeSpec) *Dataset {
	u := NewField(spec.T, spec.Ny, spec.Nx)
	v := NewField(spec.T, spec.Ny, spec.Nx)
	rng := rand.New(rand.NewSource(spec.Seed))
	g := NewGrid(spec.Ny, spec.Nx)

	for t := 0; t < spec.T; t++ {
		wt := 2 * math.Pi * spec.Frequency * float64(t)
		for i, y := range g.Y {
			env := math.Exp(-math.Pow((y-0.5)/0.15, 2))
			mean := 1 - 0.5*env
			for j, x := range g.X {
				k1 := 2*math.Pi*2*x - wt
				k2 := 2*math.Pi*4*x - 2*wt
				uu := mean + 0.8*env*math.Cos(k1) + 0.3*env*math.Cos(k2)
				vv := 0.6*env*math.Sin(k1) + 0.2*env*math.Sin(k2)
				if spec.Noise > 0 {
					uu += spec.Noise * rng.NormFloat64()
					vv += spec.Noise * rng.NormFloat64()
				}
				u.Set(t, i, j, uu)
				v.Set(t, i, j, vv)
			}
		}
	}

	return &Dataset{U: u, V: v}
}
