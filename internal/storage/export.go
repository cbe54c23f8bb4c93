package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/sim"
)

type ExportData struct {
	Name        string                   `json:"name"`
	Dt          float64                  `json:"dt"`
	Duration    float64                  `json:"duration"`
	FinalTime   float64                  `json:"finalTime"`
	Phase       sim.Phase                `json:"phase"`
	Degraded    bool                     `json:"degraded"`
	EnergyDrift float64                  `json:"energyDrift"`
	Metrics     map[string]float64       `json:"metrics"`
	Config      *config.SimulationConfig `json:"config"`
	Frames      []sim.FrameData          `json:"frames"`
}

func NewExportData(run Run) ExportData {
	d := ExportData{
		Name:     run.Name,
		Dt:       run.RunConfig.Dt,
		Duration: run.RunConfig.Duration,
		Config:   run.Config,
	}
	if r := run.Result; r != nil {
		d.FinalTime = r.FinalTime
		d.Phase = r.Phase
		d.Degraded = r.Degraded
		d.EnergyDrift = r.EnergyDrift
		d.Metrics = r.Metrics
		d.Frames = r.Frames
	}
	return d
}

func ExportJSON(path string, run Run) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, run)
}

func WriteJSON(w io.Writer, run Run) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(run))
}

func ExportCSV(path string, frames []sim.FrameData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteFrames(file, frames)
}

// StoredRun is a saved run as exported by WriteRunJSON.
type StoredRun struct {
	Metadata *RunMetadata `json:"metadata"`
	Frames   []FrameRow   `json:"frames"`
}

func (s *Store) WriteRunJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(StoredRun{Metadata: meta, Frames: rows})
}

func (s *Store) WriteRunCSV(w io.Writer, runID string) error {
	rows, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}
	return WriteRows(w, rows)
}
