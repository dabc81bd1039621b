package chart

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"

	"github.com/thesyncim/rtcbench/pkg/resources"
	"github.com/thesyncim/rtcbench/pkg/series"
)

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
	green = color.RGBA{G: 0x80, A: 0xff}
)

// CPUComparisonConfig configures CPUComparison.
type CPUComparisonConfig struct {
	Size   Size
	Window int // moving-average window in samples
}

// DefaultCPUComparisonConfig returns a 16x8 inch chart smoothed over
// series.SmoothingWindow samples.
func DefaultCPUComparisonConfig() CPUComparisonConfig {
	return CPUComparisonConfig{
		Size:   Inches(16, 8),
		Window: series.SmoothingWindow,
	}
}

// CPUComparison plots the smoothed CPU usage of several processes on one
// chart. Processes are left-padded to a common length first so that their
// last samples line up.
func CPUComparison(procs []resources.ProcessSeries, palette *Palette, cfg CPUComparisonConfig, path string) error {
	p := newPlot("", "Time (s)", "CPU Usage (%)")
	for _, proc := range resources.AlignProcesses(procs) {
		smoothed := series.MovingAverage(proc.CPU, cfg.Window)
		err := addLine(p, lineSpec{
			label: fmt.Sprintf("%s CPU Usage (%%)", proc.PID),
			xs:    indices(0, len(smoothed)),
			ys:    smoothed,
			color: palette.Assign(proc.PID),
		})
		if err != nil {
			return err
		}
	}
	return save(p, cfg.Size, path)
}

// ProcessPanels plots CPU, virtual and resident memory of one process as
// three stacked panels over the seconds elapsed since its first sample.
func ProcessPanels(proc resources.ProcessSeries, size Size, path string) error {
	span := proc.EndTime.Sub(proc.StartTime).Seconds()
	panel := func(title, yLabel, label string, ys []float64, c color.Color, dashed bool) (*plot.Plot, error) {
		p := newPlot(title, "", yLabel)
		return p, addLine(p, lineSpec{
			label:  label,
			xs:     evenly(len(ys), span),
			ys:     ys,
			color:  c,
			dashed: dashed,
		})
	}

	cpu, err := panel(fmt.Sprintf("Time Series Data for %s", proc.PID), "CPU Usage (%)", "CPU Usage (%)", proc.CPU, red, true)
	if err != nil {
		return err
	}
	vmem, err := panel("", "VMEM Usage (KB)", "VMEM Usage (KB)", proc.VMEM, blue, false)
	if err != nil {
		return err
	}
	rmem, err := panel("", "RMEM Usage (KB)", "RMEM Usage (KB)", proc.RMEM, green, false)
	if err != nil {
		return err
	}
	rmem.X.Label.Text = "Time (seconds)"

	return saveStack([]*plot.Plot{cpu, vmem, rmem}, size, path)
}

// evenly returns n points from 0 to span inclusive.
func evenly(n int, span float64) []float64 {
	xs := make([]float64, n)
	if n < 2 {
		return xs
	}
	step := span / float64(n-1)
	for i := range xs {
		xs[i] = float64(i) * step
	}
	return xs
}
