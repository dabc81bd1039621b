// Package chart renders the resource and network summaries as PNG line
// charts.
package chart

import (
	"image/color"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Size is the rendered figure size.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

// Inches returns a Size of w by h inches.
func Inches(w, h float64) Size {
	return Size{Width: vg.Length(w) * vg.Inch, Height: vg.Length(h) * vg.Inch}
}

var dashed = []vg.Length{vg.Points(5), vg.Points(5)}

type lineSpec struct {
	label  string
	xs, ys []float64
	color  color.Color
	dashed bool
}

// addLine adds one line to p. Empty series are skipped.
func addLine(p *plot.Plot, spec lineSpec) error {
	if len(spec.ys) == 0 {
		return nil
	}
	pts := make(plotter.XYs, len(spec.ys))
	for i, y := range spec.ys {
		pts[i].X = spec.xs[i]
		pts[i].Y = y
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrapf(err, "invalid series %q", spec.label)
	}
	l.LineStyle.Color = spec.color
	l.LineStyle.Width = vg.Points(1.5)
	if spec.dashed {
		l.LineStyle.Dashes = dashed
	}
	p.Add(l)
	if spec.label != "" {
		p.Legend.Add(spec.label, l)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p
}

// indices returns 0, 1, ..., n-1 offset by from.
func indices(from, n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(from + i)
	}
	return xs
}

// spread returns n points evenly spaced over [0, span) seconds. Without a
// positive span the points are one second apart.
func spread(n int, span float64) []float64 {
	xs := make([]float64, n)
	if n == 0 {
		return xs
	}
	step := 1.0
	if span > 0 {
		step = span / float64(n)
	}
	for i := range xs {
		xs[i] = float64(i) * step
	}
	return xs
}

func save(p *plot.Plot, size Size, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}
	if err := p.Save(size.Width, size.Height, path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

// saveStack draws plots stacked vertically into one PNG.
func saveStack(plots []*plot.Plot, size Size, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}

	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	img := vgimg.New(size.Width, size.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter * 2,
	}
	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}
