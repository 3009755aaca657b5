package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		Solver:     "sph",
		Backend:    "cpu",
		Columns:    []string{"time", "count", "probe_floor"},
		Rows:       [][]float64{{0, 100, 0}, {0.01, 100, 0.25}},
		Metrics:    map[string]float64{"mass_drift": 1.5e-9},
		StepsTaken: 1,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Seed = 42
	runID, err := st.Save(cfg, "dam_break", testResult(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Solver != "sph" || meta.Preset != "dam_break" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Metrics["mass_drift"] != 1.5e-9 {
		t.Errorf("expected drift 1.5e-9, got %g", meta.Metrics["mass_drift"])
	}

	columns, rows, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	if len(columns) != 3 || len(rows) != 2 {
		t.Fatalf("expected 3 columns and 2 rows, got %d and %d", len(columns), len(rows))
	}
	probe, ok := Column(columns, rows, "probe_floor")
	if !ok || probe[1] != 0.25 {
		t.Errorf("probe column lost: %v", probe)
	}

	loaded, err := st.LoadConfig(runID)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if loaded.Seed != 42 {
		t.Errorf("config seed %d", loaded.Seed)
	}
}

func TestStoreRecordsRunError(t *testing.T) {
	st := New(t.TempDir())
	err := &fluid.StepError{Step: 3, Time: 0.03, Wrapped: fluid.ErrUnstable}

	runID, saveErr := st.Save(config.DefaultConfig(), "", testResult(), err)
	if saveErr != nil {
		t.Fatal(saveErr)
	}
	meta, _ := st.Load(runID)
	if meta.Error == "" {
		t.Error("run error not recorded")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	// same solver and second: ids must not collide
	for i := 0; i < 2; i++ {
		if _, err := st.Save(config.DefaultConfig(), "", testResult(), nil); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(config.DefaultConfig(), "", testResult(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "series.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, _, err := st.LoadSeries("nope"); err == nil {
		t.Error("expected error for missing series")
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(config.DefaultConfig(), "", testResult(), nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Run.ID != runID {
		t.Errorf("expected id %s, got %s", runID, data.Run.ID)
	}
	if got := data.Series["count"]; len(got) != 2 || got[0] != 100 {
		t.Errorf("count series %v", got)
	}
}
