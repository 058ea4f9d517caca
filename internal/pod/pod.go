// Package pod computes the Proper Orthogonal Decomposition of a velocity dataset by
// the snapshot method: fluctuations, correlation eigenproblem, spatial modes and a
// low-order reconstruction.
package pod

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/flowpod/internal/field"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type Options struct {
	EigenOptions
	// Diagonal takes coefficient i from sampled snapshot i instead of projecting a
	// single snapshot.
	Diagonal bool
	// Snapshot selects which sampled snapshot is reconstructed. Unused when Diagonal.
	Snapshot int
	// Fields is the number of leading modes returned as grids.
	Fields int
	// ScaledFields draws the grids from the coefficient-scaled modes a_i*phi_i.
	ScaledFields bool
}

type Result struct {
	T, Ny, Nx  int
	Components int
	Indices    []int
	// Spectrum holds every eigenvalue of the correlation matrix, descending.
	Spectrum    []float64
	Eigenvalues []float64
	Energy      []EnergyFraction
	// Modes is N x k, N = Components*Ny*Nx.
	Modes        *mat.Dense
	Coefficients []float64
	// Recreated is the sum of the coefficient-scaled modes (length N).
	Recreated      []float64
	Reconstruction *mat.Dense
	ModeFields     []*mat.Dense
	// Temporal is T x k: every snapshot projected onto every mode.
	Temporal *mat.Dense
	Metrics  map[string]float64
}

type Analyzer struct {
	opts Options
	log  *zap.Logger
}

func New(opts Options, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{opts: opts, log: log}
}

func (a *Analyzer) Run(ctx context.Context, ds *field.Dataset) (*Result, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	t, ny, nx := ds.Shape()
	comps := ds.Components()

	res := &Result{T: t, Ny: ny, Nx: nx, Components: len(comps), Metrics: make(map[string]float64)}
	stage := func(name string, start time.Time) {
		d := time.Since(start)
		res.Metrics[name+"_seconds"] = d.Seconds()
		a.log.Debug("stage done", zap.String("stage", name), zap.Duration("elapsed", d))
	}

	start := time.Now()
	x, err := Fluctuations(comps...)
	if err != nil {
		return nil, err
	}
	stage("fluctuations", start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	eig, err := SolveEigen(x, a.opts.EigenOptions)
	if err != nil {
		return nil, err
	}
	stage("eigen", start)
	a.log.Info("eigenproblem solved",
		zap.Int("sampled", len(eig.Indices)),
		zap.Int("retained", eig.Len()),
		zap.Float64("cutoff", a.opts.Cutoff),
		zap.Float64("largest", eig.Values[0]))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	modes := Modes(eig)
	var coeffs []float64
	if a.opts.Diagonal {
		coeffs, err = DiagonalCoefficients(eig, modes)
	} else {
		coeffs, err = Coefficients(eig, modes, a.opts.Snapshot)
	}
	if err != nil {
		return nil, err
	}
	recreated := Reconstruct(modes, coeffs)
	recon, err := Unflatten(recreated, ny, nx)
	if err != nil {
		return nil, err
	}

	n := a.opts.Fields
	if n > eig.Len() {
		a.log.Warn("fewer modes retained than requested",
			zap.Int("requested", n), zap.Int("retained", eig.Len()))
		n = eig.Len()
	}
	fieldSource := modes
	if a.opts.ScaledFields {
		fieldSource = RecreatedModes(modes, coeffs)
	}
	grids, err := ModeFields(n, fieldSource, ny, nx)
	if err != nil {
		return nil, err
	}
	stage("modes", start)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	temporal, err := TemporalCoefficients(x, modes)
	if err != nil {
		return nil, fmt.Errorf("temporal coefficients: %w", err)
	}
	stage("projection", start)

	res.Indices = eig.Indices
	res.Spectrum = eig.All
	res.Eigenvalues = eig.Values
	res.Energy = Energy(eig.Values)
	res.Modes = modes
	res.Coefficients = coeffs
	res.Recreated = recreated
	res.Reconstruction = recon
	res.ModeFields = grids
	res.Temporal = temporal
	res.Metrics["retained_modes"] = float64(eig.Len())
	res.Metrics["captured_energy"] = capturedEnergy(eig)
	return res, nil
}

// capturedEnergy is the share of the sampled fluctuation energy held by the
// retained modes.
func capturedEnergy(e *Eigen) float64 {
	var kept, total float64
	for _, v := range e.Values {
		kept += v
	}
	for _, v := range e.All {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		return 0
	}
	return kept / total
}
