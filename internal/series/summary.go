package series

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Position holds local-frame position samples. The frame is NED: Z grows
// downward, so altitude above origin is -Z.
type Position struct {
	X, Y, Z []float64
}

// Velocity holds local-frame velocity samples in m/s, same NED convention:
// negative VZ is climbing.
type Velocity struct {
	VX, VY, VZ []float64
}

// Attitude holds scalar-first quaternion component series.
type Attitude struct {
	W, X, Y, Z []float64
}

// FlightSummary carries per-flight aggregate statistics. A nil field means
// the inputs required to compute that statistic were absent or empty; it is
// never silently reported as zero. Speeds are native m/s, angles degrees.
type FlightSummary struct {
	DistanceM     *float64 `json:"distance_m,omitempty"`
	MaxAltitudeM  *float64 `json:"max_altitude_m,omitempty"`
	MaxSpeedMPS   *float64 `json:"max_speed_mps,omitempty"`
	AvgSpeedMPS   *float64 `json:"avg_speed_mps,omitempty"`
	MaxClimbMPS   *float64 `json:"max_climb_mps,omitempty"`
	MaxDescentMPS *float64 `json:"max_descent_mps,omitempty"`
	MaxTiltDeg    *float64 `json:"max_tilt_deg,omitempty"`
}

func ptr(v float64) *float64 { return &v }

// Summarize computes the flight summary from whichever of the position,
// velocity and attitude series are available. Any argument may be nil; a
// missing or empty input disables only the statistics that depend on it,
// never the whole computation.
func Summarize(pos *Position, vel *Velocity, att *Attitude) FlightSummary {
	var s FlightSummary

	if pos != nil {
		if n := min(len(pos.X), len(pos.Y)); n > 0 {
			dist := 0.0
			for i := 1; i < n; i++ {
				dx := pos.X[i] - pos.X[i-1]
				dy := pos.Y[i] - pos.Y[i-1]
				dist += math.Hypot(dx, dy)
			}
			s.DistanceM = ptr(dist)
		}
		if len(pos.Z) > 0 {
			minZ := pos.Z[0]
			for _, z := range pos.Z[1:] {
				if z < minZ {
					minZ = z
				}
			}
			s.MaxAltitudeM = ptr(-minZ)
		}
	}

	if vel != nil {
		if n := min(len(vel.VX), len(vel.VY)); n > 0 {
			hspeed := make([]float64, n)
			maxSpeed := 0.0
			for i := 0; i < n; i++ {
				hspeed[i] = math.Hypot(vel.VX[i], vel.VY[i])
				if hspeed[i] > maxSpeed {
					maxSpeed = hspeed[i]
				}
			}
			s.MaxSpeedMPS = ptr(maxSpeed)
			s.AvgSpeedMPS = ptr(stat.Mean(hspeed, nil))
		}
		if len(vel.VZ) > 0 {
			minVZ, maxVZ := vel.VZ[0], vel.VZ[0]
			for _, vz := range vel.VZ[1:] {
				if vz < minVZ {
					minVZ = vz
				}
				if vz > maxVZ {
					maxVZ = vz
				}
			}
			s.MaxClimbMPS = ptr(-minVZ)
			s.MaxDescentMPS = ptr(maxVZ)
		}
	}

	if att != nil {
		roll, pitch, _ := EulerSeries(att.W, att.X, att.Y, att.Z)
		if len(roll) > 0 {
			maxTilt := 0.0
			for i := range roll {
				if tilt := math.Hypot(roll[i], pitch[i]); tilt > maxTilt {
					maxTilt = tilt
				}
			}
			s.MaxTiltDeg = ptr(maxTilt)
		}
	}

	return s
}
