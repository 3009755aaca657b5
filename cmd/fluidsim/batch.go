package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fluidsim/internal/automation"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/spf13/cobra"
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &automation.Runner{Logger: logger, Store: st}
	results, err := r.RunScenario(ctx, sc)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSOLVER\tPRESET\tSTEPS\tSTABILITY\tRUN")
	for i, res := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.3f\t%s\n",
			i+1, res.Step.Solver, res.Step.Preset, res.Result.StepsTaken,
			res.Result.Metrics["stability"], res.RunID)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &automation.Runner{Logger: logger, Limit: parallel}
	points, err := r.RunSweep(ctx, automation.Sweep{
		Base:  cfg,
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Count: sweepCount,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\tSTABILITY\tERROR\n", sweepParam, sweepMetric)
	values := make([]float64, 0, len(points))
	for _, p := range points {
		errText := ""
		if p.Err != nil {
			errText = p.Err.Error()
		}
		v, ok := p.Metrics[sweepMetric]
		if !ok {
			v = math.NaN()
		}
		values = append(values, v)
		fmt.Fprintf(w, "%.4g\t%.6g\t%.3f\t%s\n", p.Params[sweepParam], v, p.Metrics["stability"], errText)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(values) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(values, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption(sweepMetric+" vs "+sweepParam)))
	}
	return nil
}
