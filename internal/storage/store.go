// Package storage keeps finished runs on disk: a metadata.json describing the
// run and a frames.csv log of the recorded frames.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
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

type RunMetadata struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Timestamp   time.Time                `json:"timestamp"`
	Dt          float64                  `json:"dt"`
	Duration    float64                  `json:"duration"`
	Ticks       int                      `json:"ticks"`
	FinalTime   float64                  `json:"finalTime"`
	Phase       sim.Phase                `json:"phase"`
	Degraded    bool                     `json:"degraded"`
	Stalled     bool                     `json:"stalled"`
	EnergyDrift float64                  `json:"energyDrift"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Metrics     map[string]float64       `json:"metrics"`
	Config      *config.SimulationConfig `json:"config"`
}

// Run is what a caller hands to Save.
type Run struct {
	Name      string
	Config    *config.SimulationConfig
	Warnings  []config.Warning
	RunConfig sim.RunConfig
	Result    *sim.Result
}

func (s *Store) Save(run Run) (string, error) {
	if run.Result == nil {
		return "", errors.New("nothing to save: run has no result")
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", run.Name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Name:        run.Name,
		Timestamp:   now,
		Dt:          run.RunConfig.Dt,
		Duration:    run.RunConfig.Duration,
		Ticks:       run.Result.Ticks,
		FinalTime:   run.Result.FinalTime,
		Phase:       run.Result.Phase,
		Degraded:    run.Result.Degraded,
		Stalled:     run.Result.Stalled,
		EnergyDrift: run.Result.EnergyDrift,
		Metrics:     run.Result.Metrics,
		Config:      run.Config,
	}
	for _, w := range run.Warnings {
		meta.Warnings = append(meta.Warnings, w.Message)
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("writing metadata: %w", err)
	}

	csvFile, err := os.Create(filepath.Join(runDir, framesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteFrames(csvFile, run.Result.Frames); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
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
		return nil, fmt.Errorf("reading metadata for %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]FrameRow, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrames(f)
}
