package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	steps      int
	dt         float64
	seed       int64
	accelerate bool
	noSave     bool
	// plot / export / analyze
	columns   []string
	pngOut    string
	svgOut    string
	column    string
	tolerance float64
	// bench
	profileMode string
	// serve
	addr      string
	watchFile string
	fps       int
	// sweep
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepCount  int
	sweepMetric string
	parallel    int

	logger *log.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fluidsim",
		Short: "particle and lattice fluid simulation lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = log.NewWithOptions(os.Stderr, log.Options{
				Level:           level,
				Prefix:          "fluidsim",
				ReportTimestamp: true,
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fluidsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [solver]",
		Short: "run a simulation and store its series",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "columns", []string{"kinetic_energy", "max_speed"}, "series to plot")
	plotCmd.Flags().StringVar(&pngOut, "png", "", "write a chart image instead of printing")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON, or one series as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&svgOut, "svg", "", "write --column as an SVG polyline to this file")
	exportCmd.Flags().StringVar(&column, "column", "kinetic_energy", "series for --svg")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summary statistics and spectrum of one series",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "kinetic_energy", "series to analyze")
	analyzeCmd.Flags().Float64Var(&tolerance, "tol", 0.05, "relative settling band")

	presetsCmd := &cobra.Command{
		Use:   "presets [solver]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [solver]",
		Short: "time solver steps",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchSolver,
	}
	addConfigFlags(benchCmd)
	benchCmd.Flags().StringVar(&profileMode, "profile", "", "write a cpu or mem profile to the data directory")

	liveCmd := &cobra.Command{
		Use:   "live [solver]",
		Short: "watch a solver in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve [solver]",
		Short: "stream frames over websocket",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
	addConfigFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&watchFile, "watch", "", "reload this config file when it changes")
	serveCmd.Flags().IntVar(&fps, "fps", 30, "steps per second")

	guiCmd := &cobra.Command{
		Use:   "gui [solver]",
		Short: "open a desktop window (needs -tags gui)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGUI,
	}
	addConfigFlags(guiCmd)

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [solver]",
		Short: "run one tunable across a range in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "viscosity", "tunable to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.01, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.1, "last value")
	sweepCmd.Flags().IntVar(&sweepCount, "count", 5, "number of runs")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "kinetic_energy_mean", "metric to report")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (0 = unbounded)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, analyzeCmd, presetsCmd, benchCmd,
		liveCmd, serveCmd, guiCmd, scenarioCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset scene")
	cmd.Flags().IntVar(&steps, "steps", 0, "override step count")
	cmd.Flags().Float64Var(&dt, "dt", 0, "override timestep")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override random seed")
	cmd.Flags().BoolVar(&accelerate, "accelerate", false, "use the accelerated backend when available")
}

// resolveConfig builds the run configuration: a config file, else a preset,
// else the defaults for the named solver. Flags given on the command line
// override all three.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	solver := config.DefaultSolver
	if len(args) > 0 {
		solver = args[0]
	}

	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(solver, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(solver))
		}
	default:
		cfg = config.DefaultConfig()
		cfg.Solver = solver
	}

	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("accelerate") {
		cfg.Accelerate = accelerate
	}
	return cfg, cfg.Validate()
}
