package storage

import (
	"encoding/json"
	"io"

	"gonum.org/v1/gonum/mat"
)

type ExportData struct {
	*RunMetadata
	Modes     [][]float64 `json:"modes,omitempty"`
	Recreated []float64   `json:"recreated,omitempty"`
}

// ExportJSON writes a run's metadata, and its modes when withModes is set, as
// indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string, withModes bool) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}

	data := ExportData{RunMetadata: meta}
	if withModes {
		modes, err := s.LoadModes(runID)
		if err != nil {
			return err
		}
		data.Modes = make([][]float64, modes.Len())
		for i := range data.Modes {
			data.Modes[i] = mat.Col(nil, i, modes.Modes)
		}
		data.Recreated = modes.Recreated
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
