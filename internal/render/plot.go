package render

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotSeries draws each named series against x and saves the chart. The
// image format follows the file extension (png, svg, pdf).
func PlotSeries(path, title string, x []float64, series map[string][]float64) error {
	if len(series) == 0 {
		return fmt.Errorf("render: nothing to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time"
	p.Add(plotter.NewGrid())

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		ys := series[name]
		n := min(len(x), len(ys))
		pts := make(plotter.XYs, n)
		for j := 0; j < n; j++ {
			pts[j].X, pts[j].Y = x[j], ys[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("render: %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
