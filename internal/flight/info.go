package flight

import (
	"fmt"

	"github.com/skylark-data/flightdeck/internal/series"
	"github.com/skylark-data/flightdeck/internal/ulog"
)

// VehicleInfo is the header card shown above the graphs.
type VehicleInfo struct {
	SystemName  string  `json:"systemName"`
	Hardware    string  `json:"hardware"`
	SoftwareVer string  `json:"softwareVersion"`
	Estimator   string  `json:"estimator,omitempty"`
	Duration    string  `json:"duration"`
	DurationS   float64 `json:"durationSeconds"`
}

// Info extracts the vehicle header from log metadata.
func Info(lg *ulog.Log) VehicleInfo {
	info := VehicleInfo{
		SystemName: lg.InfoString("sys_name", "unknown"),
		Hardware:   lg.InfoString("ver_hw", "unknown"),
		DurationS:  lg.DurationS(),
	}

	if release, ok := lg.InfoInt("ver_sw_release"); ok {
		info.SoftwareVer = decodeVersion(uint32(release))
	} else {
		info.SoftwareVer = lg.InfoString("ver_sw", "unknown")
	}

	if est, ok := lg.Params["SYS_MC_EST_GROUP"]; ok {
		switch int(est) {
		case 1:
			info.Estimator = "LPE"
		case 2:
			info.Estimator = "EKF2"
		}
	}

	secs := int(info.DurationS + 0.5)
	info.Duration = fmt.Sprintf("%d:%02d", secs/60, secs%60)
	return info
}

// decodeVersion unpacks a PX4 firmware version word: major, minor and
// patch bytes followed by a release-type byte.
func decodeVersion(v uint32) string {
	major := (v >> 24) & 0xFF
	minor := (v >> 16) & 0xFF
	patch := (v >> 8) & 0xFF
	typ := v & 0xFF

	s := fmt.Sprintf("v%d.%d.%d", major, minor, patch)
	switch {
	case typ < 64:
		s += " (dev)"
	case typ >= 64 && typ < 128:
		s += " (alpha)"
	case typ >= 128 && typ < 192:
		s += " (beta)"
	case typ == 255:
		// release
	default:
		s += " (rc)"
	}
	return s
}

// Summarize derives the flight statistics card from the estimator topics,
// omitting any statistic whose source topic was not logged.
func Summarize(lg *ulog.Log) series.FlightSummary {
	var pos *series.Position
	var vel *series.Velocity
	var att *series.Attitude

	if lp := lg.Find("vehicle_local_position", 0); lp != nil {
		if lp.Has("x") && lp.Has("y") && lp.Has("z") {
			pos = &series.Position{
				X: lp.Fields["x"], Y: lp.Fields["y"], Z: lp.Fields["z"],
			}
		}
		if lp.Has("vx") && lp.Has("vy") && lp.Has("vz") {
			vel = &series.Velocity{
				VX: lp.Fields["vx"], VY: lp.Fields["vy"], VZ: lp.Fields["vz"],
			}
		}
	}

	if a := lg.Find("vehicle_attitude", 0); a != nil && a.Has("q[0]") {
		att = &series.Attitude{
			W: a.Fields["q[0]"], X: a.Fields["q[1]"],
			Y: a.Fields["q[2]"], Z: a.Fields["q[3]"],
		}
	}

	return series.Summarize(pos, vel, att)
}
