// Package flight derives the standard diagnostic figures and per-flight
// statistics from a decoded ULog. It mirrors the PX4 Flight Review graph
// catalog: a fixed ordered set of plots, each assembled from candidate topic
// fields with presence-based fallbacks, every line reduced by the series
// downsampler before it crosses the rendering boundary. Figures are
// renderer-neutral; the dash package turns them into charts.
package flight

import "github.com/skylark-data/flightdeck/internal/series"

// Line is one labeled trace of a figure, already downsampled.
type Line struct {
	Name   string
	Times  []float64
	Values []float64
	// Width is the stroke width in pixels; zero means the default 1.5.
	Width float64
	// Dash renders the line dashed (used for setpoints).
	Dash bool
}

// Heatmap carries a spectrogram-style grid: Values[f][t] in dB.
type Heatmap struct {
	Times  []float64
	Freqs  []float64
	Values [][]float64
}

// Figure is one diagnostic plot.
type Figure struct {
	Key    string
	Title  string
	YLabel string
	// XLabel defaults to "Time (s)" at the render boundary when empty.
	XLabel string
	// YMin/YMax fix the value axis when both are set.
	YMin, YMax *float64
	// SquareAxes locks the aspect ratio (2D flight path).
	SquareAxes bool
	Lines      []Line
	Heatmap    *Heatmap
}

func yRange(lo, hi float64) (*float64, *float64) {
	return &lo, &hi
}

// newLine builds a downsampled trace.
func newLine(name string, t, v []float64, maxPoints int, width float64, dash bool) Line {
	dt, dv := series.Downsample(t, v, maxPoints)
	return Line{Name: name, Times: dt, Values: dv, Width: width, Dash: dash}
}

// mul returns a freshly allocated copy of v scaled by k.
func mul(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * k
	}
	return out
}
