package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/trebsim/internal/config"
	"github.com/san-kum/trebsim/internal/sim"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func shortRun(t *testing.T) Run {
	t.Helper()
	cfg := config.CreateConfig()
	s := sim.New(nil, cfg, sim.WithLogger(quiet))
	rc := sim.RunConfig{Duration: 0.1, Dt: 0.01, RecordEvery: 5}
	result, err := s.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return Run{Name: "test", Config: s.Config(), RunConfig: rc, Result: result}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	run := shortRun(t)
	run.Warnings = []config.Warning{{Property: "slingLength", Message: "slingLength is missing; using 3.5"}}

	runID, err := st.Save(run)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "test_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Name != "test" {
		t.Errorf("expected name 'test', got '%s'", meta.Name)
	}
	if meta.Ticks != 10 {
		t.Errorf("expected 10 ticks, got %d", meta.Ticks)
	}
	if len(meta.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", meta.Warnings)
	}
	if meta.Config == nil || meta.Config.Trebuchet.CounterweightMass != config.DefaultCWMass {
		t.Error("config not round-tripped")
	}
	if _, ok := meta.Metrics["energy_balance"]; !ok {
		t.Error("energy metric not stored")
	}

	rows, err := st.LoadFrames(runID)
	if err != nil {
		t.Fatalf("load frames failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(rows))
	}
	if rows[0].Time != 0 || math.Abs(rows[2].Time-0.1) > 1e-9 {
		t.Errorf("unexpected frame times %v, %v", rows[0].Time, rows[2].Time)
	}
	if rows[0].Phase != "swinging" {
		t.Errorf("expected phase swinging, got %q", rows[0].Phase)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save(shortRun(t)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(st.baseDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestStoreMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
	if _, err := st.Save(Run{Name: "x"}); err == nil {
		t.Error("expected error saving a run without a result")
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(shortRun(t))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "frames.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestFrameRowColumns(t *testing.T) {
	f := sim.FrameData{Time: 1.5, Phase: sim.Released}
	f.Arm.Angle = math.Pi
	f.Arm.AngularVelocity = 1
	f.Counterweight.AngularVelocity = 3
	f.Projectile.Position = sim.Vec3{-10, 4, 0}
	f.Constraints.SlingLength.Violation = 0.02

	var buf bytes.Buffer
	if err := WriteFrames(&buf, []sim.FrameData{f}); err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	for _, col := range []string{"Time (s)", "Proj X (m)", "Proj Y (m)", "Proj VX (m/s)", "Arm Angle (deg)", "Arm Omega (deg/s)", "Weight Rel Omega (deg/s)"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing %q: %s", col, header)
		}
	}

	rows, err := ReadFrames(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r := rows[0]
	if math.Abs(r.ArmAngle-180) > 1e-9 {
		t.Errorf("arm angle = %v deg, want 180", r.ArmAngle)
	}
	if math.Abs(r.WeightRelOmega-2*180/math.Pi) > 1e-9 {
		t.Errorf("relative omega = %v", r.WeightRelOmega)
	}
	if math.Abs(r.SlingViolationCm-2) > 1e-9 {
		t.Errorf("violation = %v cm, want 2", r.SlingViolationCm)
	}
	if r.Phase != "released" || r.ProjX != -10 {
		t.Errorf("unexpected row %+v", r)
	}
}

func TestWriteJSON(t *testing.T) {
	run := shortRun(t)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, run); err != nil {
		t.Fatal(err)
	}
	var back struct {
		Name   string           `json:"name"`
		Phase  string           `json:"phase"`
		Frames []map[string]any `json:"frames"`
	}
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Name != "test" || back.Phase != "swinging" || len(back.Frames) != 3 {
		t.Errorf("unexpected export %+v", back)
	}
}

func TestWriteStoredRun(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(shortRun(t))
	if err != nil {
		t.Fatal(err)
	}

	var js bytes.Buffer
	if err := st.WriteRunJSON(&js, runID); err != nil {
		t.Fatal(err)
	}
	var back StoredRun
	if err := json.Unmarshal(js.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Metadata.ID != runID || len(back.Frames) != 3 {
		t.Errorf("unexpected stored run %+v", back.Metadata)
	}

	var csvOut bytes.Buffer
	if err := st.WriteRunCSV(&csvOut, runID); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(csvOut.String(), "\n"); lines != 4 {
		t.Errorf("expected header plus 3 rows, got %d lines", lines)
	}

	if err := st.WriteRunJSON(&js, "missing"); err == nil {
		t.Error("expected error for a missing run")
	}
}
