package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultNy         = 384
	DefaultNx         = 192
	DefaultComponents = 2
	DefaultLimit      = 1999
	DefaultStep       = 100
	DefaultCutoff     = 20.0
	DefaultModes      = 4
	DefaultLevels     = 100
	DefaultFormat     = "png"
)

// Coefficient modes. Diagonal takes coefficient i from sampled snapshot i and is
// the reference behaviour; projection expands a single snapshot.
const (
	CoefficientsDiagonal   = "diagonal"
	CoefficientsProjection = "projection"
)

type Config struct {
	Dataset    string         `yaml:"dataset"`
	Components int            `yaml:"components"`
	Analysis   AnalysisConfig `yaml:"analysis"`
	Plot       PlotConfig     `yaml:"plot"`
}

type AnalysisConfig struct {
	Limit        int     `yaml:"limit"`
	Step         int     `yaml:"step"`
	Cutoff       float64 `yaml:"cutoff"`
	Coefficients string  `yaml:"coefficients"`
	Snapshot     int     `yaml:"snapshot"`
}

type PlotConfig struct {
	Enabled bool `yaml:"enabled"`
	Modes   int  `yaml:"modes"`
	// ScaledModes plots a_i*phi_i instead of the unit modes.
	ScaledModes bool    `yaml:"scaled_modes"`
	Levels      int     `yaml:"levels"`
	OutDir      string  `yaml:"out_dir"`
	Format      string  `yaml:"format"`
	Width       float64 `yaml:"width_cm"`
	Height      float64 `yaml:"height_cm"`
}

func DefaultConfig() *Config {
	return &Config{
		Dataset:    "flow_field_data0.npy",
		Components: DefaultComponents,
		Analysis: AnalysisConfig{
			Limit:        DefaultLimit,
			Step:         DefaultStep,
			Cutoff:       DefaultCutoff,
			Coefficients: CoefficientsDiagonal,
		},
		Plot: PlotConfig{
			Enabled:     true,
			Modes:       DefaultModes,
			ScaledModes: true,
			Levels:      DefaultLevels,
			OutDir:      "figures",
			Format:      DefaultFormat,
			Width:       16,
			Height:      12,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the keys present in the file at path onto cfg.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Components < 1 || c.Components > 2 {
		return fmt.Errorf("components must be 1 or 2, got %d", c.Components)
	}
	if c.Analysis.Step < 1 {
		return fmt.Errorf("step must be positive, got %d", c.Analysis.Step)
	}
	if c.Analysis.Limit < 1 {
		return fmt.Errorf("limit must be positive, got %d", c.Analysis.Limit)
	}
	switch c.Analysis.Coefficients {
	case CoefficientsDiagonal, CoefficientsProjection:
	default:
		return fmt.Errorf("coefficients must be %q or %q, got %q",
			CoefficientsDiagonal, CoefficientsProjection, c.Analysis.Coefficients)
	}
	if c.Analysis.Snapshot < 0 {
		return fmt.Errorf("snapshot must not be negative, got %d", c.Analysis.Snapshot)
	}
	if c.Plot.Modes < 0 {
		return fmt.Errorf("modes must not be negative, got %d", c.Plot.Modes)
	}
	if c.Plot.Levels < 1 {
		return fmt.Errorf("levels must be positive, got %d", c.Plot.Levels)
	}
	switch c.Plot.Format {
	case "png", "svg", "pdf", "eps", "jpg", "tif":
	default:
		return fmt.Errorf("unsupported plot format %q", c.Plot.Format)
	}
	return nil
}
