package series

import (
	"math"
	"testing"
)

// TestSummarizeDistance checks the 3-4-5 walk from the horizontal position
// series: steps of 3 m then 4 m give 7 m travelled.
func TestSummarizeDistance(t *testing.T) {
	pos := &Position{
		X: []float64{0, 3, 3},
		Y: []float64{0, 0, 4},
	}
	s := Summarize(pos, nil, nil)
	if s.DistanceM == nil {
		t.Fatal("distance omitted despite x/y being present")
	}
	if math.Abs(*s.DistanceM-7) > 1e-12 {
		t.Errorf("distance = %v, want 7", *s.DistanceM)
	}
}

// TestSummarizePartialInputs verifies that position-only input produces the
// position statistics and omits every speed and tilt statistic.
func TestSummarizePartialInputs(t *testing.T) {
	pos := &Position{X: []float64{0, 1}, Y: []float64{0, 1}}
	s := Summarize(pos, nil, nil)

	if s.DistanceM == nil {
		t.Error("distance should be computed from x/y")
	}
	if s.MaxAltitudeM != nil {
		t.Error("max altitude should be omitted without z")
	}
	for name, got := range map[string]*float64{
		"max speed":   s.MaxSpeedMPS,
		"avg speed":   s.AvgSpeedMPS,
		"max climb":   s.MaxClimbMPS,
		"max descent": s.MaxDescentMPS,
		"max tilt":    s.MaxTiltDeg,
	} {
		if got != nil {
			t.Errorf("%s should be omitted without its inputs, got %v", name, *got)
		}
	}
}

// TestSummarizeAltitudeSignConvention verifies the NED down-positive axis:
// max altitude is the negated minimum of z.
func TestSummarizeAltitudeSignConvention(t *testing.T) {
	pos := &Position{Z: []float64{0, -12.5, -40, -3}}
	s := Summarize(pos, nil, nil)
	if s.MaxAltitudeM == nil {
		t.Fatal("max altitude omitted despite z being present")
	}
	if *s.MaxAltitudeM != 40 {
		t.Errorf("max altitude = %v, want 40", *s.MaxAltitudeM)
	}
}

func TestSummarizeSpeeds(t *testing.T) {
	vel := &Velocity{
		VX: []float64{3, 0, 6},
		VY: []float64{4, 0, 8},
		VZ: []float64{-2, 0, 1.5},
	}
	s := Summarize(nil, vel, nil)

	if s.MaxSpeedMPS == nil || *s.MaxSpeedMPS != 10 {
		t.Errorf("max speed = %v, want 10", s.MaxSpeedMPS)
	}
	if s.AvgSpeedMPS == nil || math.Abs(*s.AvgSpeedMPS-5) > 1e-12 {
		t.Errorf("avg speed = %v, want 5", s.AvgSpeedMPS)
	}
	// Negative vz climbs, positive vz descends.
	if s.MaxClimbMPS == nil || *s.MaxClimbMPS != 2 {
		t.Errorf("max climb = %v, want 2", s.MaxClimbMPS)
	}
	if s.MaxDescentMPS == nil || *s.MaxDescentMPS != 1.5 {
		t.Errorf("max descent = %v, want 1.5", s.MaxDescentMPS)
	}
}

func TestSummarizeTilt(t *testing.T) {
	s2 := math.Sqrt2 / 2
	att := &Attitude{
		W: []float64{1, s2},
		X: []float64{0, s2}, // second sample: 90 degree roll
		Y: []float64{0, 0},
		Z: []float64{0, 0},
	}
	s := Summarize(nil, nil, att)
	if s.MaxTiltDeg == nil {
		t.Fatal("max tilt omitted despite attitude being present")
	}
	if math.Abs(*s.MaxTiltDeg-90) > 1e-9 {
		t.Errorf("max tilt = %v, want 90", *s.MaxTiltDeg)
	}
}

// TestSummarizeEmptyInputs verifies empty slices omit the dependent
// statistics rather than producing NaN.
func TestSummarizeEmptyInputs(t *testing.T) {
	s := Summarize(&Position{}, &Velocity{}, &Attitude{})
	for name, got := range map[string]*float64{
		"distance":     s.DistanceM,
		"max altitude": s.MaxAltitudeM,
		"max speed":    s.MaxSpeedMPS,
		"avg speed":    s.AvgSpeedMPS,
		"max climb":    s.MaxClimbMPS,
		"max descent":  s.MaxDescentMPS,
		"max tilt":     s.MaxTiltDeg,
	} {
		if got != nil {
			t.Errorf("%s should be omitted for empty input, got %v", name, *got)
		}
	}
}

// TestSummarizeSingleSample: distance over one sample is a defined zero, not
// an omission and not NaN.
func TestSummarizeSingleSample(t *testing.T) {
	pos := &Position{X: []float64{5}, Y: []float64{5}}
	s := Summarize(pos, nil, nil)
	if s.DistanceM == nil {
		t.Fatal("distance omitted for single sample")
	}
	if *s.DistanceM != 0 {
		t.Errorf("distance = %v, want 0", *s.DistanceM)
	}
}
