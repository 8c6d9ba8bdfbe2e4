package stats

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"genopt/internal/evo"
	"genopt/internal/model"
)

// WriteConvergencePlot draws the averaged curve named by metric for every
// configuration of the experiment. The image format follows the extension of
// path (png, svg, pdf).
func WriteConvergencePlot(path string, record model.ExperimentRecord, metric evo.Metric) error {
	if len(record.Configs) == 0 {
		return errors.New("experiment has no configurations to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s fitness", record.Objective, metric)
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness"
	p.Legend.Top = true

	plotted := 0
	for i, cfg := range record.Configs {
		curve, err := cfg.Averaged.History().Metric(metric)
		if err != nil {
			return err
		}
		pts := make(plotter.XYs, 0, len(curve))
		for g, v := range curve {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(g + 1), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = seriesColor(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(cfg.Label, line)
		plotted++
	}
	if plotted == 0 {
		return errors.New("experiment has no finite curve to plot")
	}
	p.Add(plotter.NewGrid())

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// WriteConvergencePlots writes one PNG per metric into dir and returns the
// written paths.
func WriteConvergencePlots(dir string, record model.ExperimentRecord) ([]string, error) {
	metrics := []evo.Metric{evo.MetricBest, evo.MetricMean, evo.MetricWorst}
	paths := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		path := filepath.Join(dir, fmt.Sprintf("convergence_%s.png", metric))
		if err := WriteConvergencePlot(path, record, metric); err != nil {
			return nil, fmt.Errorf("plot %s: %w", metric, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func seriesColor(i int) color.Color {
	return plotutil.Color(i)
}
