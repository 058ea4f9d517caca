package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/flowpod/internal/pod"
)

const (
	metadataFile     = "metadata.json"
	modesFile        = "modes.arrow"
	coefficientsFile = "coefficients.csv"
	temporalFile     = "temporal.arrow"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunParams are the inputs of an analysis, recorded alongside its results.
type RunParams struct {
	Dataset    string  `json:"dataset"`
	Components int     `json:"components"`
	Limit      int     `json:"limit"`
	Step       int     `json:"step"`
	Cutoff     float64 `json:"cutoff"`
	Snapshot   int     `json:"snapshot"`

	// Coefficients is "diagonal" or "projection".
	Coefficients string `json:"coefficients"`
	ScaledModes  bool   `json:"scaled_modes"`
}

type RunMetadata struct {
	ID           string               `json:"id"`
	Timestamp    time.Time            `json:"timestamp"`
	Params       RunParams            `json:"params"`
	T            int                  `json:"t"`
	Ny           int                  `json:"ny"`
	Nx           int                  `json:"nx"`
	Indices      []int                `json:"indices"`
	Spectrum     []float64            `json:"spectrum"`
	Eigenvalues  []float64            `json:"eigenvalues"`
	Energy       []pod.EnergyFraction `json:"energy"`
	Coefficients []float64            `json:"coefficients"`
	Figures      []string             `json:"figures,omitempty"`
	Metrics      map[string]float64   `json:"metrics"`
}

func (m *RunMetadata) Modes() int { return len(m.Eigenvalues) }

func (s *Store) Save(params RunParams, result *pod.Result) (string, error) {
	name := strings.TrimSuffix(filepath.Base(params.Dataset), filepath.Ext(params.Dataset))
	if name == "" || name == "." {
		name = "run"
	}
	runID := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Timestamp:    time.Now(),
		Params:       params,
		T:            result.T,
		Ny:           result.Ny,
		Nx:           result.Nx,
		Indices:      result.Indices,
		Spectrum:     result.Spectrum,
		Eigenvalues:  result.Eigenvalues,
		Energy:       result.Energy,
		Coefficients: result.Coefficients,
		Metrics:      result.Metrics,
	}
	if err := s.writeMetadata(&meta); err != nil {
		return "", err
	}

	if err := writeModes(filepath.Join(runDir, modesFile), result); err != nil {
		return "", fmt.Errorf("save modes: %w", err)
	}

	if err := writeCoefficients(filepath.Join(runDir, coefficientsFile), result); err != nil {
		return "", fmt.Errorf("save coefficients: %w", err)
	}

	if result.Temporal != nil {
		if err := writeTemporal(filepath.Join(runDir, temporalFile), result); err != nil {
			return "", fmt.Errorf("save temporal coefficients: %w", err)
		}
	}

	return runID, nil
}

// SetFigures records rendered figure paths on an existing run.
func (s *Store) SetFigures(runID string, figures []string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	meta.Figures = figures
	return s.writeMetadata(meta)
}

func (s *Store) writeMetadata(meta *RunMetadata) error {
	metaFile, err := os.Create(filepath.Join(s.baseDir, meta.ID, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeCoefficients(path string, result *pod.Result) error {
	csvFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"mode", "eigenvalue", "fraction", "cumulative", "coefficient"}); err != nil {
		return err
	}

	for i, l := range result.Eigenvalues {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(l, 'g', -1, 64),
			strconv.FormatFloat(result.Energy[i].Fraction, 'g', -1, 64),
			strconv.FormatFloat(result.Energy[i].Cumulative, 'g', -1, 64),
			strconv.FormatFloat(result.Coefficients[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// CoefficientRow is one line of coefficients.csv.
type CoefficientRow struct {
	Mode        int
	Eigenvalue  float64
	Fraction    float64
	Cumulative  float64
	Coefficient float64
}

func (s *Store) LoadCoefficients(runID string) ([]CoefficientRow, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, coefficientsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []CoefficientRow{}, nil
	}

	rows := make([]CoefficientRow, 0, len(records)-1)
	for n, record := range records[1:] {
		if len(record) != 5 {
			return nil, fmt.Errorf("coefficients line %d: want 5 fields, got %d", n+2, len(record))
		}
		mode, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("coefficients line %d: %w", n+2, err)
		}
		vals := make([]float64, 4)
		for k := range vals {
			if vals[k], err = strconv.ParseFloat(record[k+1], 64); err != nil {
				return nil, fmt.Errorf("coefficients line %d: %w", n+2, err)
			}
		}
		rows = append(rows, CoefficientRow{
			Mode:        mode,
			Eigenvalue:  vals[0],
			Fraction:    vals[1],
			Cumulative:  vals[2],
			Coefficient: vals[3],
		})
	}

	return rows, nil
}
