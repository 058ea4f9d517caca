package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/flowpod/internal/config"
	"github.com/san-kum/flowpod/internal/field"
	"github.com/san-kum/flowpod/internal/pod"
	"github.com/san-kum/flowpod/internal/render"
	"github.com/san-kum/flowpod/internal/storage"
	"github.com/san-kum/flowpod/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	// run
	configFile string
	preset     string
	components int
	limit      int
	step       int
	cutoff     float64
	snapshot   int
	modes      int
	levels     int
	outDir     string
	format     string
	noPlot     bool

	coefficients string
	scaledModes  bool

	// synth
	synthT     int
	synthNy    int
	synthNx    int
	synthSeed  int64
	synthFreq  float64
	synthNoise float64

	// spectrum, show, view
	modeIndex     int
	spectrumWidth int
	showWidth     int
	showHeight    int
	themeName     string

	withModes bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree, rebinding every flag to its default.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flowpod",
		Short: "proper orthogonal decomposition of 2D flow fields",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// The browser owns the terminal.
			if cmd.Name() == "view" {
				logger = zap.NewNop()
				return nil
			}

			config := zap.NewProductionConfig()
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".flowpod", "run store directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	defaults := config.DefaultConfig()

	runCmd := &cobra.Command{
		Use:   "run [dataset]",
		Short: "decompose a dataset, store the run and plot modes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalysis,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().IntVar(&components, "components", defaults.Components, "velocity components to load (1 or 2)")
	runCmd.Flags().IntVar(&limit, "limit", defaults.Analysis.Limit, "snapshots [0, limit) are eligible")
	runCmd.Flags().IntVar(&step, "step", defaults.Analysis.Step, "snapshot stride")
	runCmd.Flags().Float64Var(&cutoff, "cutoff", defaults.Analysis.Cutoff, "discard eigenvalues <= cutoff")
	runCmd.Flags().IntVar(&snapshot, "snapshot", defaults.Analysis.Snapshot, "sampled snapshot to reconstruct")
	runCmd.Flags().IntVar(&modes, "modes", defaults.Plot.Modes, "modes to plot")
	runCmd.Flags().IntVar(&levels, "levels", defaults.Plot.Levels, "contour levels")
	runCmd.Flags().StringVar(&outDir, "out", defaults.Plot.OutDir, "figure directory")
	runCmd.Flags().StringVar(&format, "format", defaults.Plot.Format, "figure format (png, svg, pdf, eps, jpg, tif)")
	runCmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip figures")
	runCmd.Flags().StringVar(&coefficients, "coefficients", defaults.Analysis.Coefficients,
		"coefficient pairing: diagonal (snapshot i with mode i) or projection (one snapshot on every mode)")
	runCmd.Flags().BoolVar(&scaledModes, "scaled-modes", defaults.Plot.ScaledModes, "plot each mode scaled by its coefficient")

	synthCmd := &cobra.Command{
		Use:   "synth [path]",
		Short: "write a synthetic wake dataset (.arrow)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  synthDataset,
	}
	wake := field.DefaultWakeSpec()
	synthCmd.Flags().IntVar(&synthT, "t", wake.T, "snapshots")
	synthCmd.Flags().IntVar(&synthNy, "ny", wake.Ny, "grid rows")
	synthCmd.Flags().IntVar(&synthNx, "nx", wake.Nx, "grid columns")
	synthCmd.Flags().Int64Var(&synthSeed, "seed", wake.Seed, "noise seed")
	synthCmd.Flags().Float64Var(&synthFreq, "freq", wake.Frequency, "shedding frequency (cycles per snapshot)")
	synthCmd.Flags().Float64Var(&synthNoise, "noise", wake.Noise, "noise amplitude")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "eigenvalue spectrum and energy, or a mode's temporal spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}
	spectrumCmd.Flags().IntVar(&modeIndex, "mode", 0, "mode whose temporal coefficient to analyse (1-based)")
	spectrumCmd.Flags().IntVar(&spectrumWidth, "width", 60, "chart width")

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "terminal heat map of the reconstruction or a mode",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().IntVar(&modeIndex, "mode", 0, "mode to show (1-based, 0 for the reconstruction)")
	showCmd.Flags().IntVar(&showWidth, "width", 48, "heat map width")
	showCmd.Flags().IntVar(&showHeight, "height", 24, "heat map height")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a run interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}
	viewCmd.Flags().StringVar(&themeName, "theme", viz.ThemeCyberpunk.Name,
		"colour theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(cmd.OutOrStdout(), args[0], withModes)
		},
	}
	exportJSONCmd.Flags().BoolVar(&withModes, "modes", false, "include spatial modes")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTEP\tCUTOFF\tMODES\tLEVELS\tPLOT")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%g\t%d\t%d\t%v\n",
					name, p.Analysis.Step, p.Analysis.Cutoff, p.Plot.Modes, p.Plot.Levels, p.Plot.Enabled)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, synthCmd, listCmd, spectrumCmd, showCmd, viewCmd, exportJSONCmd, presetsCmd)
	return rootCmd
}

// buildConfig resolves the run configuration: preset, then config file, then
// explicitly set flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		p.Dataset = cfg.Dataset
		cfg = p
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Dataset = args[0]
	}
	if flags.Changed("components") {
		cfg.Components = components
	}
	if flags.Changed("limit") {
		cfg.Analysis.Limit = limit
	}
	if flags.Changed("step") {
		cfg.Analysis.Step = step
	}
	if flags.Changed("cutoff") {
		cfg.Analysis.Cutoff = cutoff
	}
	if flags.Changed("snapshot") {
		cfg.Analysis.Snapshot = snapshot
	}
	if flags.Changed("modes") {
		cfg.Plot.Modes = modes
	}
	if flags.Changed("levels") {
		cfg.Plot.Levels = levels
	}
	if flags.Changed("out") {
		cfg.Plot.OutDir = outDir
	}
	if flags.Changed("format") {
		cfg.Plot.Format = strings.ToLower(format)
	}
	if flags.Changed("coefficients") {
		cfg.Analysis.Coefficients = strings.ToLower(coefficients)
	}
	if flags.Changed("scaled-modes") {
		cfg.Plot.ScaledModes = scaledModes
	}
	if noPlot {
		cfg.Plot.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger.Info("loading dataset", zap.String("path", cfg.Dataset), zap.Int("components", cfg.Components))
	ds, err := field.Load(cfg.Dataset, cfg.Components)
	if err != nil {
		return err
	}
	t, ny, nx := ds.Shape()
	fmt.Fprintf(out, "dataset %s: %d snapshots, %dx%d grid, %d components\n", cfg.Dataset, t, ny, nx, len(ds.Components()))
	if ny != config.DefaultNy || nx != config.DefaultNx {
		logger.Info("grid differs from the reference wake",
			zap.Int("ny", ny), zap.Int("nx", nx),
			zap.Int("reference_ny", config.DefaultNy), zap.Int("reference_nx", config.DefaultNx))
	}

	analyzer := pod.New(pod.Options{
		EigenOptions: pod.EigenOptions{
			Limit:  cfg.Analysis.Limit,
			Step:   cfg.Analysis.Step,
			Cutoff: cfg.Analysis.Cutoff,
		},
		Diagonal:     cfg.Analysis.Coefficients == config.CoefficientsDiagonal,
		Snapshot:     cfg.Analysis.Snapshot,
		Fields:       cfg.Plot.Modes,
		ScaledFields: cfg.Plot.ScaledModes,
	}, logger)

	start := time.Now()
	result, err := analyzer.Run(ctx, ds)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunParams{
		Dataset:    cfg.Dataset,
		Components: cfg.Components,
		Limit:      cfg.Analysis.Limit,
		Step:       cfg.Analysis.Step,
		Cutoff:     cfg.Analysis.Cutoff,
		Snapshot:   cfg.Analysis.Snapshot,

		Coefficients: cfg.Analysis.Coefficients,
		ScaledModes:  cfg.Plot.ScaledModes,
	}, result)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", elapsed)
	fmt.Fprintf(out, "run id: %s\n", runID)
	fmt.Fprintf(out, "sampled snapshots: %d\n", len(result.Indices))
	fmt.Fprintf(out, "retained modes: %d (eigenvalue > %g)\n", len(result.Eigenvalues), cfg.Analysis.Cutoff)
	fmt.Fprintf(out, "captured energy: %.2f%%\n", 100*result.Metrics["captured_energy"])

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nMODE\tEIGENVALUE\tENERGY\tCUMULATIVE\tCOEFFICIENT")
	for i := 0; i < min(len(result.Eigenvalues), max(cfg.Plot.Modes, 10)); i++ {
		fmt.Fprintf(w, "%d\t%.6g\t%.2f%%\t%.2f%%\t%.6g\n", i+1,
			result.Eigenvalues[i],
			100*result.Energy[i].Fraction,
			100*result.Energy[i].Cumulative,
			result.Coefficients[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !cfg.Plot.Enabled {
		return nil
	}

	title := "Reconstructed"
	if cfg.Analysis.Coefficients == config.CoefficientsProjection {
		title = fmt.Sprintf("Reconstructed (snapshot %d)", result.Indices[cfg.Analysis.Snapshot])
	}
	grid := field.NewGrid(ny, nx)
	figs := []render.Figure{{
		Name:  "reconstructed",
		Title: title,
		Data:  result.Reconstruction,
		Grid:  grid,
	}}
	for i, f := range result.ModeFields {
		figs = append(figs, render.Figure{
			Name:  fmt.Sprintf("mode_%d", i+1),
			Title: fmt.Sprintf("Mode %d", i+1),
			Data:  f,
			Grid:  grid,
		})
	}

	opts := render.Options{
		Levels: cfg.Plot.Levels,
		Width:  vg.Length(cfg.Plot.Width) * vg.Centimeter,
		Height: vg.Length(cfg.Plot.Height) * vg.Centimeter,
		Format: cfg.Plot.Format,
	}
	dir := filepath.Join(cfg.Plot.OutDir, runID)
	paths, err := render.RenderAll(ctx, dir, figs, opts)
	if err != nil {
		return fmt.Errorf("render figures: %w", err)
	}
	logger.Info("figures written", zap.String("dir", dir), zap.Int("count", len(paths)))
	fmt.Fprintf(out, "\nfigures: %s\n", dir)

	return st.SetFigures(runID, paths)
}

func synthDataset(cmd *cobra.Command, args []string) error {
	path := "wake.arrow"
	if len(args) > 0 {
		path = args[0]
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".arrow" && ext != ".ipc" {
		return fmt.Errorf("%w: synthetic datasets are written as .arrow, got %q", field.ErrUnknownFormat, ext)
	}
	if synthT < 2 || synthNy < 2 || synthNx < 2 {
		return fmt.Errorf("%w: need at least 2 snapshots and a 2x2 grid", field.ErrShape)
	}

	spec := field.WakeSpec{
		T:         synthT,
		Ny:        synthNy,
		Nx:        synthNx,
		Seed:      synthSeed,
		Frequency: synthFreq,
		Noise:     synthNoise,
	}
	logger.Debug("synthesizing wake", zap.Any("spec", spec))
	if err := field.WriteArrow(path, field.Synthesize(spec)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d snapshots, %dx%d grid\n", path, spec.T, spec.Ny, spec.Nx)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATASET\tTIME\tSHAPE\tSTEP\tCUTOFF\tMODES\tENERGY")

	for _, run := range runs {
		energy := 0.0
		if n := len(run.Energy); n > 0 {
			energy = run.Energy[n-1].Cumulative
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%dx%d\t%d\t%g\t%d\t%.1f%%\n",
			run.ID,
			run.Params.Dataset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.T, run.Ny, run.Nx,
			run.Params.Step,
			run.Params.Cutoff,
			run.Modes(),
			100*energy,
		)
	}

	return w.Flush()
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	out := cmd.OutOrStdout()

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	if modeIndex == 0 {
		cumulative := make([]float64, len(meta.Energy))
		for i, e := range meta.Energy {
			cumulative[i] = e.Cumulative
		}
		fmt.Fprintf(out, "eigenvalue spectrum: %s\n", meta.ID)
		fmt.Fprintf(out, "retained %d of %d sampled eigenvalues\n\n", meta.Modes(), len(meta.Spectrum))
		fmt.Fprintln(out, render.Spectrum(meta.Eigenvalues, cumulative, spectrumWidth))
		return nil
	}

	temporal, err := st.LoadTemporal(runID)
	if err != nil {
		return err
	}
	_, k := temporal.Dims()
	if modeIndex < 1 || modeIndex > k {
		return fmt.Errorf("%w: mode %d of %d", pod.ErrModeRange, modeIndex, k)
	}

	a := mat.Col(nil, modeIndex-1, temporal)
	sp, err := pod.CoefficientSpectrum(a)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "temporal analysis: %s mode %d\n\n", meta.ID, modeIndex)
	fmt.Fprintln(out, render.Series(a, fmt.Sprintf("a_%d(t) vs snapshot", modeIndex), spectrumWidth))
	fmt.Fprintln(out)
	fmt.Fprintln(out, render.Series(sp.Power, "amplitude spectrum vs frequency bin", spectrumWidth))
	fmt.Fprintln(out)

	if sp.Dominant > 0 {
		fmt.Fprintf(out, "dominant frequency: %.4f cycles/snapshot\n", sp.Dominant)
		fmt.Fprintf(out, "period: %.2f snapshots\n", sp.Period)
	} else {
		fmt.Fprintln(out, "no dominant frequency")
	}
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	out := cmd.OutOrStdout()

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	stored, err := st.LoadModes(runID)
	if err != nil {
		return err
	}

	var data *mat.Dense
	if modeIndex == 0 {
		data, err = stored.Reconstruction()
		if meta.Params.Coefficients == config.CoefficientsProjection {
			fmt.Fprintf(out, "reconstructed snapshot %d: %s\n\n", meta.Params.Snapshot, meta.ID)
		} else {
			fmt.Fprintf(out, "reconstruction: %s\n\n", meta.ID)
		}
	} else {
		data, err = stored.ModeField(meta, modeIndex-1)
		if err == nil {
			e := meta.Energy[modeIndex-1]
			fmt.Fprintf(out, "mode %d: %s (energy %.2f%%, cumulative %.2f%%)\n\n",
				modeIndex, meta.ID, 100*e.Fraction, 100*e.Cumulative)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, render.Heatmap(data, showWidth, showHeight))
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	if viz.GetTheme(themeName).Name != themeName {
		return fmt.Errorf("unknown theme: %s (available: %v)", themeName, viz.ThemeNames())
	}

	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	stored, err := st.LoadModes(args[0])
	if err != nil {
		return err
	}

	pages, err := viz.PagesFromRun(meta, stored)
	if err != nil {
		return err
	}
	return viz.Run(meta.ID, pages, themeName)
}
