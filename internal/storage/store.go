package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
	configFile   = "config.yaml"
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
	ID         string             `json:"id"`
	Solver     string             `json:"solver"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	StepsTaken int                `json:"steps_taken"`
	Backend    string             `json:"backend"`
	Elapsed    float64            `json:"elapsed_seconds"`
	Columns    []string           `json:"columns"`
	Metrics    map[string]float64 `json:"metrics"`
	Error      string             `json:"error,omitempty"`
}

// Save writes metadata.json, series.csv and config.yaml into a new run
// directory and returns the run id. runErr, if any, is recorded in the
// metadata so diverged runs stay inspectable.
func (s *Store) Save(cfg *config.Config, preset string, result *sim.Result, runErr error) (string, error) {
	runID, runDir, err := s.newRunDir(cfg.Solver)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Solver:     cfg.Solver,
		Preset:     preset,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		Dt:         cfg.TimeStep(),
		Steps:      cfg.Steps,
		StepsTaken: result.StepsTaken,
		Backend:    result.Backend,
		Elapsed:    result.Elapsed.Seconds(),
		Columns:    result.Columns,
		Metrics:    result.Metrics,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()
	if err := WriteSeries(csvFile, result.Columns, result.Rows); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) newRunDir(solver string) (string, string, error) {
	base := fmt.Sprintf("%s_%d", solver, time.Now().Unix())
	runID := base
	for i := 1; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if err := s.Init(); err != nil {
				return "", "", err
			}
			continue
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s-%d", base, i)
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSeries writes a header row then one row per step.
func WriteSeries(out io.Writer, columns []string, rows [][]float64) error {
	w := csv.NewWriter(out)
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, r := range rows {
		record := make([]string, len(r))
		for i, v := range r {
			record[i] = strconv.FormatFloat(v, 'g', 10, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
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
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
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

// LoadConfig reads back the configuration a run was made with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadSeries reads series.csv. Unparseable cells become zero.
func (s *Store) LoadSeries(runID string) ([]string, [][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("storage: %s: empty series", runID)
	}

	columns := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]float64, len(columns))
		for j := 0; j < len(record) && j < len(columns); j++ {
			row[j], _ = strconv.ParseFloat(record[j], 64)
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// Column extracts one named series from LoadSeries output.
func Column(columns []string, rows [][]float64, name string) ([]float64, bool) {
	for i, c := range columns {
		if c != name {
			continue
		}
		out := make([]float64, len(rows))
		for j, r := range rows {
			out[j] = r[i]
		}
		return out, true
	}
	return nil, false
}

// Path returns the directory of a run, for exporters writing next to it.
func (s *Store) Path(runID string) string {
	return filepath.Join(s.baseDir, runID)
}
