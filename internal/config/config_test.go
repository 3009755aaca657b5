package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Solver != "sph" {
		t.Errorf("expected solver sph, got %s", cfg.Solver)
	}
	if cfg.Steps <= 0 {
		t.Error("steps should be positive")
	}
	if cfg.SPH.SurfaceThreshold != 0.1 {
		t.Errorf("expected surface threshold 0.1, got %g", cfg.SPH.SurfaceThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := GetPreset("lbm", "cylinder")
	cfg.Accelerate = true
	path := filepath.Join(t.TempDir(), "run.yaml")

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
solver: flip
flip:
  pressure_iterations: 12
scene:
  volumes:
    - center: {x: 0.5, y: -0.5}
      size: {x: 0.5, y: 0.5, z: 0.5}
`))
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	want.Solver = "flip"
	want.FLIP.PressureIterations = 12
	want.Scene.Volumes = []Volume{{Center: r3.Vec{X: 0.5, Y: -0.5}, Size: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}}}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("steps: [1, 2"))
	if !errors.Is(err, fluid.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"ok", func(*Config) {}, nil},
		{"unknown solver", func(c *Config) { c.Solver = "vortex" }, fluid.ErrUnknownSolver},
		{"negative steps", func(c *Config) { c.Steps = -1 }, fluid.ErrInvalidConfig},
		{"sph radius", func(c *Config) { c.SPH.SmoothingRadius = 0 }, fluid.ErrInvalidConfig},
		{"sph damping", func(c *Config) { c.SPH.VelocityDamping = 1.5 }, fluid.ErrInvalidConfig},
		{"sph dims", func(c *Config) { c.SPH.Dimensions = 4 }, fluid.ErrInvalidConfig},
		{"flip resolution", func(c *Config) { c.Solver = "flip"; c.FLIP.Resolution = 2 }, fluid.ErrInvalidConfig},
		{"lbm tau", func(c *Config) { c.Solver = "lbm"; c.LBM.Tau = 0.5 }, fluid.ErrInvalidConfig},
		{"obstacle shape", func(c *Config) {
			c.Scene.Obstacles = []Obstacle{{Shape: "star"}}
		}, fluid.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("sph", "dam_break")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if len(cfg.Scene.Volumes) != 1 {
		t.Errorf("expected one volume, got %d", len(cfg.Scene.Volumes))
	}

	// presets are fresh copies
	cfg.Scene.Volumes[0].Density = 1
	if again := GetPreset("sph", "dam_break"); again.Scene.Volumes[0].Density != 1000 {
		t.Error("preset mutated through a returned copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("sph", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "dam_break"); cfg != nil {
		t.Error("expected nil for nonexistent solver")
	}
}

func TestPresetsValidate(t *testing.T) {
	for solver := range Presets {
		for _, name := range ListPresets(solver) {
			cfg := GetPreset(solver, name)
			if cfg.Solver != solver {
				t.Errorf("%s/%s: solver %q", solver, name, cfg.Solver)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", solver, name, err)
			}
		}
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("lbm")
	want := []string{"channel", "cylinder", "quiescent"}
	if diff := cmp.Diff(want, presets); diff != "" {
		t.Errorf("lbm presets (-want +got):\n%s", diff)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent solver")
	}
}

func TestSolverParamsCarryRunSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Accelerate = true
	cfg.Dt = 0.002

	p := cfg.SPHParams()
	if p.Seed != 42 || !p.UseAcceleration || p.TimeStep != 0.002 {
		t.Errorf("sph params not overridden: %+v", p)
	}
	if !cfg.LBMParams().UseAcceleration {
		t.Error("lbm should inherit accelerate")
	}
	if cfg.TimeStep() != 0.002 {
		t.Errorf("expected dt 0.002, got %g", cfg.TimeStep())
	}
}

func TestDomain(t *testing.T) {
	cfg := GetPreset("lbm", "quiescent")
	d := cfg.Domain()
	if d.Max.X != float64(cfg.LBM.Width) || d.Max.Y != float64(cfg.LBM.Height) || d.Min != (r3.Vec{}) {
		t.Errorf("unexpected lattice domain %+v", d)
	}
	cfg = GetPreset("flip", "dam_break")
	if cfg.Domain() != cfg.FLIP.Bounds() {
		t.Error("flip domain should match its bounds")
	}
	if d := DefaultConfig().Domain(); d != fluid.CenteredBox(1) {
		t.Errorf("unexpected sph domain %+v", d)
	}
}
