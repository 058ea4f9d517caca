package pod_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/flowpod/internal/field"
	"github.com/san-kum/flowpod/internal/pod"
)

func smallWake() *field.Dataset {
	return field.Synthesize(field.WakeSpec{T: 80, Ny: 12, Nx: 8, Seed: 7, Frequency: 0.05, Noise: 0.05})
}

var _ = Describe("Fluctuations", func() {
	var u, v *field.Field

	BeforeEach(func() {
		u = field.NewField(3, 2, 3)
		v = field.NewField(3, 2, 3)
		for t := 0; t < 3; t++ {
			for i := 0; i < 2; i++ {
				for j := 0; j < 3; j++ {
					val := float64(t*(i+1) + 10*j)
					u.Set(t, i, j, val)
					v.Set(t, i, j, 2*val)
				}
			}
		}
	})

	It("flattens column-major and concatenates components", func() {
		x, err := pod.Fluctuations(u, v)
		Expect(err).NotTo(HaveOccurred())

		r, c := x.Dims()
		Expect(r).To(Equal(3))
		Expect(c).To(Equal(12))

		// (i=1, j=2) lands at 1 + 2*Ny = 5; fluctuation is (t-1)*(i+1).
		Expect(x.At(2, 5)).To(BeNumerically("~", 2, 1e-12))
		Expect(x.At(0, 5)).To(BeNumerically("~", -2, 1e-12))
		Expect(x.At(2, 6+5)).To(BeNumerically("~", 4, 1e-12))
		// The column term 10*j is constant in time and vanishes.
		Expect(x.At(1, 4)).To(BeNumerically("~", 0, 1e-12))
	})

	It("has zero temporal mean at every point", func() {
		x, err := pod.Fluctuations(smallWake().Components()...)
		Expect(err).NotTo(HaveOccurred())

		t, n := x.Dims()
		col := make([]float64, t)
		for c := 0; c < n; c++ {
			mat.Col(col, c, x)
			Expect(floats.Sum(col)).To(BeNumerically("~", 0, 1e-9))
		}
	})

	It("rejects mismatched components", func() {
		_, err := pod.Fluctuations(u, field.NewField(4, 2, 3))
		Expect(err).To(BeAssignableToTypeOf(&pod.ShapeError{}))
	})

	It("rejects empty input", func() {
		_, err := pod.Fluctuations()
		Expect(err).To(MatchError(pod.ErrEmpty))
	})
})

var _ = Describe("SampleIndices", func() {
	It("reproduces the [:1999:step] slice", func() {
		idx, err := pod.SampleIndices(2000, 1999, 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(idx).To(HaveLen(20))
		Expect(idx[0]).To(Equal(0))
		Expect(idx[19]).To(Equal(1900))
	})

	It("stops at the snapshot count", func() {
		idx, err := pod.SampleIndices(10, 1999, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(idx).To(Equal([]int{0, 3, 6, 9}))
	})

	It("rejects a zero stride", func() {
		_, err := pod.SampleIndices(10, 1999, 0)
		Expect(err).To(MatchError(pod.ErrStep))
	})
})

var _ = Describe("SolveEigen", func() {
	It("solves a diagonal correlation by hand", func() {
		x := mat.NewDense(2, 2, []float64{1, 0, 0, 2})

		e, err := pod.SolveEigen(x, pod.EigenOptions{Limit: 10, Step: 1, Cutoff: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.All).To(HaveLen(2))
		Expect(e.All[0]).To(BeNumerically("~", 4, 1e-12))
		Expect(e.All[1]).To(BeNumerically("~", 1, 1e-12))
		Expect(e.Values).To(HaveLen(1))

		modes := pod.Modes(e)
		Expect(math.Abs(modes.At(0, 0))).To(BeNumerically("~", 0, 1e-12))
		Expect(math.Abs(modes.At(1, 0))).To(BeNumerically("~", 1, 1e-12))
	})

	It("returns descending eigenpairs above the cutoff", func() {
		x, err := pod.Fluctuations(smallWake().Components()...)
		Expect(err).NotTo(HaveOccurred())

		e, err := pod.SolveEigen(x, pod.EigenOptions{Limit: 1999, Step: 2, Cutoff: 0.5})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Indices).To(HaveLen(40))
		Expect(e.Len()).To(BeNumerically(">", 1))

		for i, l := range e.Values {
			Expect(l).To(BeNumerically(">", 0.5))
			if i > 0 {
				Expect(l).To(BeNumerically("<=", e.Values[i-1]))
			}
		}

		// Xs Xs^T psi = lambda psi for every retained pair.
		var r mat.Dense
		r.Mul(e.Sampled.T(), e.Sampled)
		var rv mat.Dense
		rv.Mul(&r, e.Vectors)
		m, k := rv.Dims()
		for j := 0; j < k; j++ {
			for i := 0; i < m; i++ {
				Expect(rv.At(i, j)).To(BeNumerically("~", e.Values[j]*e.Vectors.At(i, j), 1e-8*e.Values[0]))
			}
		}
	})

	It("fails when nothing survives the cutoff", func() {
		x := mat.NewDense(2, 2, []float64{1, 0, 0, 2})
		_, err := pod.SolveEigen(x, pod.EigenOptions{Limit: 10, Step: 1, Cutoff: 20})
		Expect(err).To(MatchError(pod.ErrNoModes))
	})
})

var _ = Describe("Modes and reconstruction", func() {
	var (
		x     *mat.Dense
		e     *pod.Eigen
		modes *mat.Dense
	)

	BeforeEach(func() {
		var err error
		x, err = pod.Fluctuations(smallWake().Components()...)
		Expect(err).NotTo(HaveOccurred())
		e, err = pod.SolveEigen(x, pod.EigenOptions{Limit: 1999, Step: 4, Cutoff: 0})
		Expect(err).NotTo(HaveOccurred())
		modes = pod.Modes(e)
	})

	It("builds orthonormal modes", func() {
		var gram mat.Dense
		gram.Mul(modes.T(), modes)
		k, _ := gram.Dims()
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				want := 0.0
				if i == j {
					want = 1
				}
				Expect(gram.At(i, j)).To(BeNumerically("~", want, 1e-8))
			}
		}
	})

	It("recovers a sampled snapshot from all retained modes", func() {
		a, err := pod.Coefficients(e, modes, 3)
		Expect(err).NotTo(HaveOccurred())

		rec := pod.Reconstruct(modes, a)
		want := mat.Col(nil, 3, e.Sampled)
		Expect(rec).To(HaveLen(len(want)))
		for i := range want {
			Expect(rec[i]).To(BeNumerically("~", want[i], 1e-8))
		}

		recreated := pod.RecreatedModes(modes, a)
		n, k := recreated.Dims()
		sum := make([]float64, n)
		for j := 0; j < k; j++ {
			floats.Add(sum, mat.Col(nil, j, recreated))
		}
		Expect(floats.EqualApprox(sum, rec, 1e-10)).To(BeTrue())
	})

	It("matches the temporal projection of the same snapshot", func() {
		a, err := pod.Coefficients(e, modes, 2)
		Expect(err).NotTo(HaveOccurred())

		temporal, err := pod.TemporalCoefficients(x, modes)
		Expect(err).NotTo(HaveOccurred())
		row := mat.Row(nil, e.Indices[2], temporal)
		Expect(floats.EqualApprox(row, a, 1e-9)).To(BeTrue())
	})

	It("pairs sampled snapshot i with mode i", func() {
		a, err := pod.DiagonalCoefficients(e, modes)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(HaveLen(e.Len()))

		for i := range a {
			want := floats.Dot(mat.Col(nil, i, e.Sampled), mat.Col(nil, i, modes))
			Expect(a[i]).To(BeNumerically("~", want, 1e-12))
		}
		proj, err := pod.Coefficients(e, modes, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(a[0]).To(BeNumerically("~", proj[0], 1e-12))
	})

	It("rejects out-of-range indices", func() {
		_, err := pod.Coefficients(e, modes, len(e.Indices))
		Expect(err).To(MatchError(pod.ErrModeRange))

		_, err = pod.ModeFields(e.Len()+1, modes, 12, 8)
		Expect(err).To(MatchError(pod.ErrModeRange))
	})

	It("reshapes the U half of each mode", func() {
		grids, err := pod.ModeFields(2, modes, 12, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(grids).To(HaveLen(2))

		r, c := grids[1].Dims()
		Expect(r).To(Equal(12))
		Expect(c).To(Equal(8))
		Expect(grids[1].At(5, 3)).To(Equal(modes.At(5+3*12, 1)))
	})
})

var _ = Describe("Energy", func() {
	It("splits the total into cumulative fractions", func() {
		en := pod.Energy([]float64{6, 3, 1})
		Expect(en).To(HaveLen(3))
		Expect(en[0].Fraction).To(BeNumerically("~", 0.6, 1e-12))
		Expect(en[1].Cumulative).To(BeNumerically("~", 0.9, 1e-12))
		Expect(en[2].Cumulative).To(BeNumerically("~", 1, 1e-12))
	})
})

var _ = Describe("CoefficientSpectrum", func() {
	It("finds the frequency of a pure tone", func() {
		a := make([]float64, 400)
		for i := range a {
			a[i] = 3 + math.Sin(2*math.Pi*0.05*float64(i))
		}
		sp, err := pod.CoefficientSpectrum(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(sp.Power).To(HaveLen(201))
		Expect(sp.Dominant).To(BeNumerically("~", 0.05, 1e-12))
		Expect(sp.Period).To(BeNumerically("~", 20, 1e-9))
	})

	It("needs at least two samples", func() {
		_, err := pod.CoefficientSpectrum([]float64{1})
		Expect(err).To(MatchError(pod.ErrEmpty))
	})
})

var _ = Describe("Analyzer", func() {
	opts := pod.Options{
		EigenOptions: pod.EigenOptions{Limit: 1999, Step: 2, Cutoff: 0.5},
		Fields:       4,
	}

	It("runs the whole pipeline", func() {
		res, err := pod.New(opts, nil).Run(context.Background(), smallWake())
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Components).To(Equal(2))
		Expect(res.Indices).To(HaveLen(40))
		Expect(res.Spectrum).To(HaveLen(40))
		Expect(res.ModeFields).To(HaveLen(4))

		r, c := res.Reconstruction.Dims()
		Expect(r).To(Equal(12))
		Expect(c).To(Equal(8))
		Expect(res.Recreated).To(HaveLen(2 * 12 * 8))

		Expect(res.Metrics["captured_energy"]).To(BeNumerically(">", 0.9))
		Expect(res.Metrics["captured_energy"]).To(BeNumerically("<=", 1+1e-12))
		Expect(res.Energy[len(res.Energy)-1].Cumulative).To(BeNumerically("~", 1, 1e-12))
	})

	It("recovers the shedding frequency from the leading mode", func() {
		res, err := pod.New(opts, nil).Run(context.Background(), smallWake())
		Expect(err).NotTo(HaveOccurred())

		sp, err := pod.CoefficientSpectrum(mat.Col(nil, 0, res.Temporal))
		Expect(err).NotTo(HaveOccurred())
		Expect(sp.Dominant).To(BeNumerically("~", 0.05, 1e-12))
	})

	It("reproduces the diagonal pairing with scaled mode fields", func() {
		o := opts
		o.Diagonal = true
		o.ScaledFields = true
		res, err := pod.New(o, nil).Run(context.Background(), smallWake())
		Expect(err).NotTo(HaveOccurred())

		k := len(res.Eigenvalues)
		Expect(res.Coefficients).To(HaveLen(k))

		want := make([]float64, len(res.Recreated))
		for i, ai := range res.Coefficients {
			floats.AddScaled(want, ai, mat.Col(nil, i, res.Modes))
		}
		Expect(floats.EqualApprox(res.Recreated, want, 1e-9)).To(BeTrue())

		unit, err := pod.ModeFields(len(res.ModeFields), res.Modes, 12, 8)
		Expect(err).NotTo(HaveOccurred())
		for i, g := range res.ModeFields {
			var scaled mat.Dense
			scaled.Scale(res.Coefficients[i], unit[i])
			Expect(mat.EqualApprox(g, &scaled, 1e-12)).To(BeTrue())
		}
	})

	It("clamps the requested mode fields to the retained modes", func() {
		o := opts
		o.Fields = 1000
		res, err := pod.New(o, nil).Run(context.Background(), smallWake())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ModeFields).To(HaveLen(len(res.Eigenvalues)))
	})

	It("stops on a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := pod.New(opts, nil).Run(ctx, smallWake())
		Expect(err).To(MatchError(context.Canceled))
	})

	It("rejects an invalid dataset", func() {
		_, err := pod.New(opts, nil).Run(context.Background(), &field.Dataset{})
		Expect(err).To(MatchError(field.ErrComponents))
	})
})
