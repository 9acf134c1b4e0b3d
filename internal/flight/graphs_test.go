package flight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skylark-data/flightdeck/internal/ulog"
)

// rampDataset builds a dataset with n samples at 10ms spacing where every
// named field is a simple ramp scaled by its position in the list.
func rampDataset(name string, multiID uint8, n int, fields ...string) *ulog.Dataset {
	ds := &ulog.Dataset{
		Name:        name,
		MultiID:     multiID,
		TimestampUS: make([]uint64, n),
		Fields:      map[string][]float64{},
	}
	for i := 0; i < n; i++ {
		ds.TimestampUS[i] = uint64(i) * 10000
	}
	for fi, f := range fields {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = float64(i) * float64(fi+1)
		}
		ds.Fields[f] = vals
	}
	return ds
}

func testLog(datasets ...*ulog.Dataset) *ulog.Log {
	return &ulog.Log{
		Datasets: datasets,
		Info:     map[string]any{},
		Params:   map[string]float64{},
	}
}

func TestBuildAllEmptyLog(t *testing.T) {
	figs := BuildAll(testLog(), 100)
	require.Empty(t, figs)
}

func TestBuildAllSkipsMissingTopics(t *testing.T) {
	lg := testLog(rampDataset("battery_status", 0, 20, "voltage_v", "current_a"))
	figs := BuildAll(lg, 100)

	require.Len(t, figs, 1)
	require.Equal(t, "power", figs[0].Key)
	require.Len(t, figs[0].Lines, 2)
	require.Equal(t, "Battery Voltage [V]", figs[0].Lines[0].Name)
}

func TestCatalogOrder(t *testing.T) {
	lg := testLog(
		rampDataset("vehicle_local_position", 0, 20, "x", "y", "z", "vx", "vy", "vz"),
		rampDataset("battery_status", 0, 20, "voltage_v"),
		rampDataset("cpuload", 0, 20, "load", "ram_usage"),
	)
	figs := BuildAll(lg, 100)

	var keys []string
	for _, f := range figs {
		keys = append(keys, f.Key)
	}
	require.Equal(t, []string{
		"flight_path",
		"local_pos_x", "local_pos_y", "local_pos_z",
		"velocity",
		"power",
		"cpu_ram",
	}, keys)
}

func TestFlightPathSwapsAxes(t *testing.T) {
	lp := rampDataset("vehicle_local_position", 0, 10, "x", "y")
	fig := (&builder{lg: testLog(lp), max: 100}).flightPath2D()

	require.NotNil(t, fig)
	require.True(t, fig.SquareAxes)
	require.Len(t, fig.Lines, 1)
	// East (y) drives the horizontal axis, north (x) the vertical.
	require.Equal(t, lp.Fields["y"], fig.Lines[0].Times)
	require.Equal(t, lp.Fields["x"], fig.Lines[0].Values)
}

func TestAltitudeMillimeterScaling(t *testing.T) {
	gp := rampDataset("vehicle_gps_position", 0, 10, "alt")
	for i := range gp.Fields["alt"] {
		gp.Fields["alt"][i] = 488_000_000 // 488km in mm, clearly not meters
	}
	fig := (&builder{lg: testLog(gp), max: 100}).altitude()

	require.NotNil(t, fig)
	require.InDelta(t, 488_000, fig.Lines[0].Values[0], 1e-9)
}

func TestAltitudeMSLFieldPreferred(t *testing.T) {
	gp := rampDataset("vehicle_gps_position", 0, 10, "altitude_msl_m", "alt")
	fig := (&builder{lg: testLog(gp), max: 100}).altitude()

	require.NotNil(t, fig)
	require.Equal(t, gp.Fields["altitude_msl_m"], fig.Lines[0].Values)
}

func TestAttitudeAngles(t *testing.T) {
	n := 10
	att := &ulog.Dataset{
		Name:        "vehicle_attitude",
		TimestampUS: make([]uint64, n),
		Fields: map[string][]float64{
			"q[0]": make([]float64, n),
			"q[1]": make([]float64, n),
			"q[2]": make([]float64, n),
			"q[3]": make([]float64, n),
		},
	}
	// 90 degree roll everywhere.
	s := math.Sqrt(2) / 2
	for i := 0; i < n; i++ {
		att.TimestampUS[i] = uint64(i) * 10000
		att.Fields["q[0]"][i] = s
		att.Fields["q[1]"][i] = s
	}

	b := &builder{lg: testLog(att), max: 100}
	roll := attitudeAngle("Roll", 0)(b)
	require.NotNil(t, roll)
	require.Equal(t, "roll", roll.Key)
	require.InDelta(t, 90, roll.Lines[0].Values[0], 1e-6)

	pitch := attitudeAngle("Pitch", 1)(b)
	require.NotNil(t, pitch)
	require.InDelta(t, 0, pitch.Lines[0].Values[0], 1e-6)
}

func TestAngularRateDegrees(t *testing.T) {
	av := rampDataset("vehicle_angular_velocity", 0, 10, "xyz[0]", "xyz[1]", "xyz[2]")
	for i := range av.Fields["xyz[0]"] {
		av.Fields["xyz[0]"][i] = math.Pi // rad/s
	}

	fig := angularRate("Roll", 0)(&builder{lg: testLog(av), max: 100})
	require.NotNil(t, fig)
	require.Equal(t, "roll_rate", fig.Key)
	require.InDelta(t, 180, fig.Lines[0].Values[0], 1e-9)
}

func TestManualControlOldFieldNames(t *testing.T) {
	mc := rampDataset("manual_control_setpoint", 0, 10, "y", "x", "r", "z")
	fig := (&builder{lg: testLog(mc), max: 100}).manualControl()

	require.NotNil(t, fig)
	require.Len(t, fig.Lines, 4)
	require.Equal(t, "Y / Roll", fig.Lines[0].Name)
	require.Equal(t, "Throttle", fig.Lines[3].Name)
	require.NotNil(t, fig.YMin)
	require.InDelta(t, -1.1, *fig.YMin, 1e-9)
}

func TestActuatorControlsPrefersMotors(t *testing.T) {
	motors := rampDataset("actuator_motors", 0, 10,
		"control[0]", "control[1]", "control[2]", "control[3]")
	// A motor that never spun should not get a line.
	motors.Fields["control[3]"] = make([]float64, 10)
	controls := rampDataset("actuator_controls_0", 0, 10, "control[0]")

	fig := (&builder{lg: testLog(motors, controls), max: 100}).actuatorControls()
	require.NotNil(t, fig)
	require.Equal(t, "Motor Outputs", fig.Title)
	require.Len(t, fig.Lines, 3)
	require.Equal(t, "Motor 1", fig.Lines[0].Name)
}

func TestActuatorOutputsSkipsConstant(t *testing.T) {
	act := rampDataset("actuator_outputs", 0, 10, "output[0]", "output[1]", "noutputs")
	for i := range act.Fields["output[1]"] {
		act.Fields["output[1]"][i] = 1500
		act.Fields["noutputs"][i] = 2
	}

	fig := (&builder{lg: testLog(act), max: 100}).actuatorOutputs()
	require.NotNil(t, fig)
	require.Len(t, fig.Lines, 1)
	require.Equal(t, "Output 0", fig.Lines[0].Name)
}

func TestVibrationUsesExactInstances(t *testing.T) {
	imu0 := rampDataset("vehicle_imu_status", 0, 10, "accel_vibration_metric")
	imu2 := rampDataset("vehicle_imu_status", 2, 10, "accel_vibration_metric")

	fig := (&builder{lg: testLog(imu0, imu2), max: 100}).vibration()
	require.NotNil(t, fig)
	// Instance 1 is absent and must not fall back to instance 0.
	require.Len(t, fig.Lines, 2)
	require.Equal(t, "Accel 0 Vibration [m/s²]", fig.Lines[0].Name)
	require.Equal(t, "Accel 2 Vibration [m/s²]", fig.Lines[1].Name)
}

func TestVibrationEstimatorFallback(t *testing.T) {
	est := rampDataset("estimator_status", 0, 10, "vibe[0]", "vibe[1]", "vibe[2]")
	fig := (&builder{lg: testLog(est), max: 100}).vibration()

	require.NotNil(t, fig)
	require.Len(t, fig.Lines, 3)
	require.Equal(t, "Vibe X", fig.Lines[0].Name)
}

func TestGPSTopicRenameFallback(t *testing.T) {
	gps := rampDataset("sensor_gps", 0, 10, "eph", "satellites_used")
	fig := (&builder{lg: testLog(gps), max: 100}).gpsUncertainty()

	require.NotNil(t, fig)
	require.Len(t, fig.Lines, 2)
}

func TestPowerScalesDerivedLines(t *testing.T) {
	bat := rampDataset("battery_status", 0, 10, "voltage_v", "discharged_mah", "remaining")
	fig := (&builder{lg: testLog(bat), max: 100}).power()

	require.NotNil(t, fig)
	require.Len(t, fig.Lines, 3)
	// discharged_mah ramps at 2/sample, shown divided by 100.
	require.InDelta(t, 2.0/100, fig.Lines[1].Values[1], 1e-9)
	// remaining ramps at 3/sample, shown times 10.
	require.InDelta(t, 30, fig.Lines[2].Values[1], 1e-9)
	require.True(t, fig.Lines[2].Dash)
}

func TestLinesAreDownsampled(t *testing.T) {
	lp := rampDataset("vehicle_local_position", 0, 5000, "x", "y")
	fig := (&builder{lg: testLog(lp), max: 100}).flightPath2D()

	require.NotNil(t, fig)
	require.Len(t, fig.Lines[0].Values, 100)
	require.Len(t, fig.Lines[0].Times, 100)
}
