package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/pkg/profile"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg, nil, logger)
	if err := exp.Setup(); err != nil {
		return err
	}
	defer exp.Close()

	logger.Info("running", "solver", cfg.Solver, "preset", preset, "steps", cfg.Steps)
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		logger.Warn("run stopped early", "err", runErr)
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, preset, result, runErr)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Printf("completed in %v on %s\n", result.Elapsed.Round(time.Millisecond), result.Backend)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	printMetrics(result.Metrics)
	return runErr
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %-22s %.6g\n", name, m[name])
	}
}

func benchSolver(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("steps") && !cmd.Flags().Changed("preset") && configFile == "" {
		cfg.Steps = 200
	}

	switch profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(dataDir), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(dataDir), profile.Quiet).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q (cpu, mem)", profileMode)
	}

	s, err := experiment.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	step := cfg.TimeStep()
	start := time.Now()
	for i := 0; i < cfg.Steps; i++ {
		s.Update(step)
	}
	elapsed := time.Since(start)

	d := s.Diagnostics()
	fmt.Printf("solver:      %s (%s)\n", cfg.Solver, d.Backend)
	fmt.Printf("population:  %d\n", d.Count)
	fmt.Printf("steps:       %d\n", cfg.Steps)
	fmt.Printf("total:       %v\n", elapsed.Round(time.Microsecond))
	if cfg.Steps > 0 {
		fmt.Printf("per step:    %v\n", (elapsed / time.Duration(cfg.Steps)).Round(time.Microsecond))
		fmt.Printf("steps/sec:   %.1f\n", float64(cfg.Steps)/elapsed.Seconds())
	}
	if profileMode != "" {
		fmt.Printf("profile:     %s\n", dataDir)
	}
	return nil
}
