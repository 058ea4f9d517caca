package config

import "sort"

// Presets are named analysis settings. "paper" reproduces the published run;
// "fine" projects one snapshot and plots unit modes.
var Presets = map[string]*Config{
	"paper": {
		Components: 2,
		Analysis:   AnalysisConfig{Limit: DefaultLimit, Step: 100, Cutoff: 20, Coefficients: CoefficientsDiagonal},
		Plot:       PlotConfig{Enabled: true, Modes: 4, ScaledModes: true, Levels: 100, OutDir: "figures", Format: "png", Width: 16, Height: 12},
	},
	"coarse": {
		Components: 2,
		Analysis:   AnalysisConfig{Limit: DefaultLimit, Step: 250, Cutoff: 20, Coefficients: CoefficientsDiagonal},
		Plot:       PlotConfig{Enabled: true, Modes: 4, ScaledModes: true, Levels: 50, OutDir: "figures", Format: "png", Width: 16, Height: 12},
	},
	"fine": {
		Components: 2,
		Analysis:   AnalysisConfig{Limit: DefaultLimit, Step: 20, Cutoff: 20, Coefficients: CoefficientsProjection},
		Plot:       PlotConfig{Enabled: true, Modes: 8, Levels: 100, OutDir: "figures", Format: "png", Width: 16, Height: 12},
	},
	"quick": {
		Components: 2,
		Analysis:   AnalysisConfig{Limit: DefaultLimit, Step: 1, Cutoff: 0, Coefficients: CoefficientsDiagonal},
		Plot:       PlotConfig{Enabled: false, Modes: 4, ScaledModes: true, Levels: 20, OutDir: "figures", Format: "svg", Width: 16, Height: 12},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
