package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fluidsim/internal/analysis"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/render"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOLVER\tPRESET\tTIME\tSTEPS\tBACKEND\tERROR")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			run.ID,
			run.Solver,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.StepsTaken,
			run.Steps,
			run.Backend,
			run.Error,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	cols, rows, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	times, _ := storage.Column(cols, rows, "time")
	series := make(map[string][]float64, len(columns))
	for _, name := range columns {
		data, ok := storage.Column(cols, rows, name)
		if !ok {
			return fmt.Errorf("run %s has no column %q (have %v)", meta.ID, name, cols)
		}
		series[name] = data
	}

	if pngOut != "" {
		if err := render.PlotSeries(pngOut, meta.ID, times, series); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pngOut)
		return nil
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("solver: %s\n", meta.Solver)
	fmt.Printf("samples: %d\n\n", len(rows))
	for _, name := range columns {
		fmt.Println(asciigraph.Plot(series[name],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if svgOut == "" {
		return st.ExportJSON(os.Stdout, args[0])
	}

	cols, rows, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	data, ok := storage.Column(cols, rows, column)
	if !ok {
		return fmt.Errorf("no column %q (have %v)", column, cols)
	}
	if err := os.WriteFile(svgOut, []byte(render.SeriesToSVG(data, 800, 300, "#00a8cc")), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	cols, rows, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	data, ok := storage.Column(cols, rows, column)
	if !ok {
		return fmt.Errorf("no column %q (have %v)", column, cols)
	}

	sampleDt := meta.Dt
	if times, ok := storage.Column(cols, rows, "time"); ok && len(times) > 1 {
		sampleDt = times[1] - times[0]
	}

	fmt.Printf("analysis: %s (%s)\n", meta.ID, column)
	s := analysis.Summarize(data)
	fmt.Printf("mean %.6g  std %.6g  min %.6g  max %.6g  final %.6g\n", s.Mean, s.StdDev, s.Min, s.Max, s.Final)
	settle := analysis.SettlingIndex(data, tolerance)
	fmt.Printf("settles within %.0f%% after sample %d (t=%.4g)\n", tolerance*100, settle, float64(settle)*sampleDt)

	freqs, power, err := analysis.Spectrum(data, sampleDt)
	if err != nil {
		fmt.Printf("spectrum: %v\n", err)
		return nil
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(power[1:],
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum"),
	))
	f, p, err := analysis.DominantFrequency(data, sampleDt)
	if err == nil && f > 0 {
		fmt.Printf("\ndominant frequency: %.4g (power %.3g, nyquist %.4g)\n", f, p, freqs[len(freqs)-1])
		fmt.Printf("period: %.4g\n", 1/f)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	solvers := config.Solvers
	if len(args) > 0 {
		solvers = args
	}
	for _, s := range solvers {
		presets := config.ListPresets(s)
		if len(presets) == 0 {
			fmt.Printf("no presets for solver: %s\n", s)
			continue
		}
		fmt.Printf("presets for %s:\n", s)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}
