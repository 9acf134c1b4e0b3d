// Package series implements the plot-side data reductions used by the
// dashboard: bounded downsampling of time series before rendering, and the
// derived signals (Euler angles, flight summary aggregates) computed from raw
// telemetry fields. Everything here is a pure function over its arguments;
// inputs are treated as read-only and results are freshly allocated unless
// documented otherwise.
package series

// TimeSeries pairs a monotonic non-decreasing timestamp sequence (seconds)
// with a sample sequence of equal length. The monotonicity is a guarantee of
// the log reader and is not re-validated here.
type TimeSeries struct {
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// Len returns the number of samples in the series.
func (s TimeSeries) Len() int { return len(s.Values) }

// Downsampled returns the series bounded to at most maxPoints points.
// When the series already fits, the receiver is returned unchanged and the
// caller must treat the backing slices as read-only.
func (s TimeSeries) Downsampled(maxPoints int) TimeSeries {
	t, v := Downsample(s.Times, s.Values, maxPoints)
	return TimeSeries{Times: t, Values: v}
}
