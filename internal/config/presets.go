package config

import (
	"sort"

	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Presets are keyed by solver, then preset name. GetPreset returns copies
// built over DefaultConfig.
var Presets = map[string]map[string]func(*Config){
	"sph": {
		"dam_break": func(c *Config) {
			c.Steps = 600
			c.Scene.Volumes = []Volume{{Center: r3.Vec{X: -0.5, Y: -0.5}, Size: r3.Vec{X: 0.8, Y: 0.8, Z: 0.8}, Density: 1000}}
			c.Scene.Probes = []Probe{{Name: "floor", Position: r3.Vec{Y: -0.9}}}
		},
		"droplet": func(c *Config) {
			c.Steps = 300
			c.SPH.Gravity = r3.Vec{}
			c.SPH.SurfaceTension = 0.5
			c.Scene.Volumes = []Volume{{Size: r3.Vec{X: 0.4, Y: 0.4, Z: 0.4}, Density: 1000}}
		},
		"fountain": func(c *Config) {
			c.Steps = 900
			c.Scene.Emitters = []fluid.Emitter{{
				Position: r3.Vec{Y: -0.8}, Velocity: r3.Vec{Y: 3},
				Rate: 400, Radius: 0.05, Spread: 0.2, Density: 1000, Color: 0.8,
			}}
		},
		"dam_break_2d": func(c *Config) {
			c.Steps = 800
			c.SPH.Dimensions = 2
			c.Scene.Volumes = []Volume{{Center: r3.Vec{X: -0.6, Y: -0.4}, Size: r3.Vec{X: 0.8, Y: 1.2}, Density: 1000}}
		},
		"plume": func(c *Config) {
			c.Steps = 600
			c.SPH.Gravity = r3.Vec{Y: -1}
			c.SPH.Buoyancy = 0.05
			c.SPH.ColorBy = "temperature"
			c.Scene.Emitters = []fluid.Emitter{{
				Position: r3.Vec{Y: -0.9}, Rate: 200, Radius: 0.1, Density: 1000, Temperature: 60,
			}}
		},
	},
	"flip": {
		"dam_break": func(c *Config) {
			c.Solver = "flip"
			c.Steps = 400
			c.Scene.Volumes = []Volume{{Center: r3.Vec{X: -0.5, Y: -0.5}, Size: r3.Vec{X: 1, Y: 1, Z: 2}, Density: 1}}
			c.Scene.Probes = []Probe{{Name: "wall", Position: r3.Vec{X: 0.9, Y: -0.9}}}
		},
		"pour": func(c *Config) {
			c.Solver = "flip"
			c.Steps = 600
			c.Scene.Emitters = []fluid.Emitter{{
				Position: r3.Vec{Y: 0.8}, Velocity: r3.Vec{X: 1}, Rate: 2000, Radius: 0.1, Density: 1,
			}}
		},
	},
	"lbm": {
		"cylinder": func(c *Config) {
			c.Solver = "lbm"
			c.Steps = 4000
			c.LBM.Tau = 0.56
			c.LBM.ColorBy = "vorticity"
			c.Scene.Obstacles = []Obstacle{{Shape: "circle", Center: r3.Vec{X: 32, Y: 32}, Radius: 6}}
			c.Scene.Emitters = []fluid.Emitter{{Position: r3.Vec{X: 1, Y: 32}, Velocity: r3.Vec{X: 0.08}, Radius: 40}}
			c.Scene.Probes = []Probe{{Name: "wake", Position: r3.Vec{X: 56, Y: 34}}}
		},
		"channel": func(c *Config) {
			c.Solver = "lbm"
			c.Steps = 2000
			c.Scene.Obstacles = []Obstacle{
				{Shape: "rect", Center: r3.Vec{X: 64, Y: 1}, Size: r3.Vec{X: 128, Y: 2}},
				{Shape: "rect", Center: r3.Vec{X: 64, Y: 63}, Size: r3.Vec{X: 128, Y: 2}},
			}
			c.Scene.Emitters = []fluid.Emitter{{Position: r3.Vec{X: 1, Y: 32}, Velocity: r3.Vec{X: 0.05}, Radius: 30}}
			c.Scene.Probes = []Probe{{Name: "centre", Position: r3.Vec{X: 64, Y: 32}}}
		},
		"quiescent": func(c *Config) {
			c.Solver = "lbm"
			c.Steps = 100
		},
	},
}

func GetPreset(solver, preset string) *Config {
	solverPresets, ok := Presets[solver]
	if !ok {
		return nil
	}
	apply, ok := solverPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Solver = solver
	apply(cfg)
	return cfg
}

// ListPresets returns the preset names of a solver in sorted order.
func ListPresets(solver string) []string {
	solverPresets, ok := Presets[solver]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(solverPresets))
	for name := range solverPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
