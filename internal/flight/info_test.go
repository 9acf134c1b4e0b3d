package flight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skylark-data/flightdeck/internal/ulog"
)

func TestInfoDecodesPackedVersion(t *testing.T) {
	lg := &ulog.Log{
		StartUS: 0,
		LastUS:  125_000_000,
		Info: map[string]any{
			"sys_name":       "PX4",
			"ver_hw":         "PX4_FMU_V5",
			"ver_sw_release": int64(0x010E05FF),
		},
		Params: map[string]float64{"SYS_MC_EST_GROUP": 2},
	}

	info := Info(lg)
	require.Equal(t, "PX4", info.SystemName)
	require.Equal(t, "PX4_FMU_V5", info.Hardware)
	require.Equal(t, "v1.14.5", info.SoftwareVer)
	require.Equal(t, "EKF2", info.Estimator)
	require.Equal(t, "2:05", info.Duration)
	require.InDelta(t, 125, info.DurationS, 1e-9)
}

func TestInfoFallsBackToGitHash(t *testing.T) {
	lg := &ulog.Log{
		Info:   map[string]any{"ver_sw": "deadbeef"},
		Params: map[string]float64{},
	}

	info := Info(lg)
	require.Equal(t, "unknown", info.SystemName)
	require.Equal(t, "deadbeef", info.SoftwareVer)
	require.Empty(t, info.Estimator)
	require.Equal(t, "0:00", info.Duration)
}

func TestDecodeVersionReleaseTypes(t *testing.T) {
	tests := []struct {
		packed uint32
		want   string
	}{
		{0x010E05FF, "v1.14.5"},
		{0x010E0500, "v1.14.5 (dev)"},
		{0x010E0540, "v1.14.5 (alpha)"},
		{0x010E0580, "v1.14.5 (beta)"},
		{0x010E05C0, "v1.14.5 (rc)"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, decodeVersion(tt.packed))
	}
}

func TestSummarizeUsesEstimatorTopics(t *testing.T) {
	lp := rampDataset("vehicle_local_position", 0, 10, "x", "y", "z", "vx", "vy", "vz")
	sum := Summarize(testLog(lp))

	require.NotNil(t, sum.DistanceM)
	require.NotNil(t, sum.MaxSpeedMPS)
	require.Nil(t, sum.MaxTiltDeg)
}

func TestSummarizeEmptyLog(t *testing.T) {
	sum := Summarize(testLog())
	require.Nil(t, sum.DistanceM)
	require.Nil(t, sum.MaxAltitudeM)
	require.Nil(t, sum.MaxSpeedMPS)
	require.Nil(t, sum.MaxTiltDeg)
}
