package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/essim/internal/analysis"
	"github.com/san-kum/essim/internal/experiment"
)

// Supported image extensions; the format follows the path.
var formats = map[string]bool{".png": true, ".svg": true, ".pdf": true, ".jpg": true, ".jpeg": true}

type PlotOptions struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

func (o PlotOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 8 * vg.Inch
	}
	if h <= 0 {
		h = 5 * vg.Inch
	}
	return w, h
}

func stylePlot(p *plot.Plot, opts PlotOptions) {
	p.Title.Text = opts.Title
	p.Title.Padding = vg.Points(8)
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
}

// SeriesPlot draws every series against times as one line each and saves
// the chart to path.
func SeriesPlot(path string, opts PlotOptions, times []float64, series ...experiment.Series) error {
	if len(series) == 0 {
		return errors.New("no series to plot")
	}
	if opts.XLabel == "" {
		opts.XLabel = "t (s)"
	}

	p := plot.New()
	stylePlot(p, opts)

	for i, s := range series {
		pts := xys(times, s.Values)
		if len(pts) == 0 {
			return errors.Errorf("series %s has no finite samples", s.Name)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "series %s", s.Name)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return save(p, opts, path)
}

// TrajectoryPlot draws a two-channel path with its start and end marked.
func TrajectoryPlot(path string, opts PlotOptions, tr *analysis.Trajectory2D) error {
	if tr == nil || len(tr.Points) == 0 {
		return errors.New("empty trajectory")
	}
	if opts.XLabel == "" {
		opts.XLabel = tr.XLabel
	}
	if opts.YLabel == "" {
		opts.YLabel = tr.YLabel
	}

	p := plot.New()
	stylePlot(p, opts)

	pts := make(plotter.XYs, 0, len(tr.Points))
	for _, pt := range tr.Points {
		if finite(pt.X) && finite(pt.Y) {
			pts = append(pts, plotter.XY{X: pt.X, Y: pt.Y})
		}
	}
	if len(pts) == 0 {
		return errors.New("trajectory has no finite points")
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "trajectory")
	}
	line.Color = plotutil.Color(0)
	ends, err := plotter.NewScatter(plotter.XYs{pts[0], pts[len(pts)-1]})
	if err != nil {
		return errors.Wrap(err, "trajectory ends")
	}
	ends.GlyphStyle.Shape = plotutil.Shape(1)
	ends.GlyphStyle.Radius = vg.Points(4)
	ends.GlyphStyle.Color = plotutil.Color(1)

	p.Add(line, ends)
	p.Legend.Add("path", line)
	p.Legend.Add("start/end", ends)
	return save(p, opts, path)
}

func save(p *plot.Plot, opts PlotOptions, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !formats[ext] {
		return errors.Errorf("unsupported image format %q", ext)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	w, h := opts.size()
	return errors.Wrapf(p.Save(w, h, path), "save %s", path)
}

// xys pairs samples with times, dropping non-finite samples that the
// plotter rejects.
func xys(times, values []float64) plotter.XYs {
	n := min(len(times), len(values))
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if finite(values[i]) {
			pts = append(pts, plotter.XY{X: times[i], Y: values[i]})
		}
	}
	return pts
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// DefaultPlotName is <run>_<series>.png with brackets stripped.
func DefaultPlotName(runID, series string) string {
	r := strings.NewReplacer("[", "", "]", "", ".", "_")
	return fmt.Sprintf("%s_%s.png", runID, r.Replace(series))
}
