package flight

import (
	"fmt"
	"math"

	"github.com/skylark-data/flightdeck/internal/series"
	"github.com/skylark-data/flightdeck/internal/ulog"
	"github.com/skylark-data/flightdeck/internal/units"
)

// StandardGraph is one entry of the fixed diagnostic catalog.
type StandardGraph struct {
	Key   string
	Title string
	build func(b *builder) []Figure
}

// StandardGraphs lists the catalog in PX4 Flight Review order.
var StandardGraphs = []StandardGraph{
	{"flight_path", "Local Position (2D)", one((*builder).flightPath2D)},
	{"altitude", "Altitude Estimate", one((*builder).altitude)},
	{"roll", "Roll Angle", one(attitudeAngle("Roll", 0))},
	{"roll_rate", "Roll Angular Rate", one(angularRate("Roll", 0))},
	{"pitch", "Pitch Angle", one(attitudeAngle("Pitch", 1))},
	{"pitch_rate", "Pitch Angular Rate", one(angularRate("Pitch", 1))},
	{"yaw", "Yaw Angle", one(attitudeAngle("Yaw", 2))},
	{"yaw_rate", "Yaw Angular Rate", one(angularRate("Yaw", 2))},
	{"local_pos_x", "Local Position X", one(localPosition("x", "X"))},
	{"local_pos_y", "Local Position Y", one(localPosition("y", "Y"))},
	{"local_pos_z", "Local Position Z", one(localPosition("z", "Z"))},
	{"velocity", "Velocity", one((*builder).velocity)},
	{"manual_control", "Manual Control Inputs", one((*builder).manualControl)},
	{"actuator_controls", "Actuator Controls", one((*builder).actuatorControls)},
	{"actuator_outputs", "Actuator Outputs", one((*builder).actuatorOutputs)},
	{"raw_accel", "Raw Acceleration", one((*builder).rawAccel)},
	{"vibration", "Vibration Metrics", one((*builder).vibration)},
	{"raw_gyro", "Raw Angular Speed (Gyroscope)", one((*builder).rawGyro)},
	{"magnetometer", "Raw Magnetic Field Strength", one((*builder).magnetometer)},
	{"distance_sensor", "Distance Sensor", one((*builder).distanceSensor)},
	{"gps_uncertainty", "GPS Uncertainty", one((*builder).gpsUncertainty)},
	{"gps_noise", "GPS Noise & Jamming", one((*builder).gpsNoise)},
	{"power", "Power", one((*builder).power)},
	{"cpu_ram", "CPU & RAM", one((*builder).cpuRAM)},
	{"accel_psd", "Acceleration Power Spectral Density", (*builder).accelPSD},
}

// one adapts a single-figure builder to the catalog signature.
func one(f func(b *builder) *Figure) func(b *builder) []Figure {
	return func(b *builder) []Figure {
		fig := f(b)
		if fig == nil {
			return nil
		}
		return []Figure{*fig}
	}
}

// BuildAll derives every available standard figure from the log. Figures
// whose topics were not logged are skipped; the page never fails as a whole.
func BuildAll(lg *ulog.Log, maxPoints int) []Figure {
	b := &builder{lg: lg, max: maxPoints}
	var figs []Figure
	for _, g := range StandardGraphs {
		figs = append(figs, g.build(b)...)
	}
	return figs
}

type builder struct {
	lg  *ulog.Log
	max int
}

// findExact returns the dataset for an exact (topic, instance) pair, with no
// first-instance fallback. Needed when iterating additional instances of a
// topic, where falling back would duplicate instance 0.
func (b *builder) findExact(name string, multiID int) *ulog.Dataset {
	for _, d := range b.lg.Datasets {
		if d.Name == name && int(d.MultiID) == multiID {
			return d
		}
	}
	return nil
}

// firstField returns the first candidate field present on the dataset.
func firstField(ds *ulog.Dataset, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if ds.Has(c) {
			return c, true
		}
	}
	return "", false
}

func (b *builder) flightPath2D() *Figure {
	lp := b.lg.Find("vehicle_local_position", 0)
	if lp == nil || !lp.Has("x") || !lp.Has("y") {
		return nil
	}

	fig := &Figure{
		Key: "flight_path", Title: "Local Position (2D)",
		XLabel: "[m]", YLabel: "[m]", SquareAxes: true,
	}
	// East on the horizontal axis, north on the vertical.
	fig.Lines = append(fig.Lines,
		newLine("Estimated", lp.Fields["y"], lp.Fields["x"], b.max, 1.5, false))

	if sp := b.lg.Find("vehicle_local_position_setpoint", 0); sp != nil && sp.Has("x") && sp.Has("y") {
		fig.Lines = append(fig.Lines,
			newLine("Setpoint", sp.Fields["y"], sp.Fields["x"], b.max, 1, true))
	}
	return fig
}

func (b *builder) altitude() *Figure {
	gp := b.lg.Find("vehicle_gps_position", 0)
	gpos := b.lg.Find("vehicle_global_position", 0)
	lp := b.lg.Find("vehicle_local_position", 0)
	air := b.lg.Find("vehicle_air_data", 0)
	if gp == nil && gpos == nil && lp == nil && air == nil {
		return nil
	}

	fig := &Figure{Key: "altitude", Title: "Altitude Estimate", YLabel: "[m]"}

	if gp != nil {
		if gp.Has("altitude_msl_m") {
			fig.Lines = append(fig.Lines,
				newLine("GPS Altitude (MSL)", gp.Times(), gp.Fields["altitude_msl_m"], b.max, 1.5, false))
		} else if gp.Has("alt") {
			alt := gp.Fields["alt"]
			// Older logs carry GPS altitude in millimeters.
			if maxAbs(alt) > 10000 {
				alt = mul(alt, 0.001)
			}
			fig.Lines = append(fig.Lines,
				newLine("GPS Altitude (MSL)", gp.Times(), alt, b.max, 1.5, false))
		}
	}

	if air != nil && air.Has("baro_alt_meter") {
		fig.Lines = append(fig.Lines,
			newLine("Barometer Altitude", air.Times(), air.Fields["baro_alt_meter"], b.max, 1, false))
	}

	if gpos != nil && gpos.Has("alt") {
		fig.Lines = append(fig.Lines,
			newLine("Fused Altitude Estimation", gpos.Times(), gpos.Fields["alt"], b.max, 1, false))
	}

	if pst := b.lg.Find("position_setpoint_triplet", 0); pst != nil && pst.Has("current.alt") {
		fig.Lines = append(fig.Lines,
			newLine("Altitude Setpoint", pst.Times(), pst.Fields["current.alt"], b.max, 1.5, true))
	} else if sp := b.lg.Find("vehicle_local_position_setpoint", 0); sp != nil && sp.Has("z") &&
		gpos != nil && gpos.Has("alt") && len(gpos.Fields["alt"]) > 0 {
		// Local z setpoint converted to approximate MSL altitude.
		refAlt := gpos.Fields["alt"][0]
		setpoint := make([]float64, len(sp.Fields["z"]))
		for i, z := range sp.Fields["z"] {
			setpoint[i] = refAlt - z
		}
		fig.Lines = append(fig.Lines,
			newLine("Altitude Setpoint", sp.Times(), setpoint, b.max, 1.5, true))
	}

	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func attitudeAngle(name string, axis int) func(b *builder) *Figure {
	return func(b *builder) *Figure {
		att := b.lg.Find("vehicle_attitude", 0)
		if att == nil || !att.Has("q[0]") {
			return nil
		}

		roll, pitch, yaw := series.EulerSeries(
			att.Fields["q[0]"], att.Fields["q[1]"], att.Fields["q[2]"], att.Fields["q[3]"])
		angles := [][]float64{roll, pitch, yaw}

		fig := &Figure{
			Key:    keyFor(name, "angle"),
			Title:  name + " Angle",
			YLabel: "[deg]",
		}
		fig.Lines = append(fig.Lines,
			newLine(name+" Estimated", att.Times(), angles[axis], b.max, 1.5, false))

		if sp := b.lg.Find("vehicle_attitude_setpoint", 0); sp != nil {
			newNames := []string{"roll_d", "pitch_d", "yaw_d"}
			oldNames := []string{"roll_body", "pitch_body", "yaw_body"}
			if field, ok := firstField(sp, newNames[axis], oldNames[axis]); ok {
				fig.Lines = append(fig.Lines,
					newLine(name+" Setpoint", sp.Times(), units.DegreesSlice(sp.Fields[field]), b.max, 1, true))
			}
		}
		return fig
	}
}

func angularRate(name string, axis int) func(b *builder) *Figure {
	return func(b *builder) *Figure {
		av := b.lg.Find("vehicle_angular_velocity", 0)
		if av == nil {
			return nil
		}

		fig := &Figure{
			Key:    keyFor(name, "rate"),
			Title:  name + " Angular Rate",
			YLabel: "[deg/s]",
		}

		if field := fmt.Sprintf("xyz[%d]", axis); av.Has(field) {
			fig.Lines = append(fig.Lines,
				newLine(name+" Rate Estimated", av.Times(), units.DegreesSlice(av.Fields[field]), b.max, 1.5, false))
		}

		if rs := b.lg.Find("vehicle_rates_setpoint", 0); rs != nil {
			spNames := []string{"roll", "pitch", "yaw"}
			if rs.Has(spNames[axis]) {
				fig.Lines = append(fig.Lines,
					newLine(name+" Rate Setpoint", rs.Times(), units.DegreesSlice(rs.Fields[spNames[axis]]), b.max, 1, true))
			}
		}

		if ri := b.lg.Find("rate_ctrl_status", 0); ri != nil {
			integNames := []string{"rollspeed_integ", "pitchspeed_integ", "yawspeed_integ"}
			if ri.Has(integNames[axis]) {
				fig.Lines = append(fig.Lines,
					newLine(name+" Rate Integral (*100)", ri.Times(), mul(ri.Fields[integNames[axis]], 100), b.max, 1, false))
			}
		}

		if len(fig.Lines) == 0 {
			return nil
		}
		return fig
	}
}

func localPosition(axis, label string) func(b *builder) *Figure {
	return func(b *builder) *Figure {
		lp := b.lg.Find("vehicle_local_position", 0)
		if lp == nil {
			return nil
		}

		fig := &Figure{
			Key:    "local_pos_" + axis,
			Title:  "Local Position " + label,
			YLabel: "[m]",
		}
		if lp.Has(axis) {
			fig.Lines = append(fig.Lines,
				newLine(label+" Estimated", lp.Times(), lp.Fields[axis], b.max, 1.5, false))
		}
		if sp := b.lg.Find("vehicle_local_position_setpoint", 0); sp != nil && sp.Has(axis) {
			fig.Lines = append(fig.Lines,
				newLine(label+" Setpoint", sp.Times(), sp.Fields[axis], b.max, 1, true))
		}
		if len(fig.Lines) == 0 {
			return nil
		}
		return fig
	}
}

func (b *builder) velocity() *Figure {
	lp := b.lg.Find("vehicle_local_position", 0)
	if lp == nil {
		return nil
	}

	fig := &Figure{Key: "velocity", Title: "Velocity", YLabel: "[m/s]"}
	for _, axis := range []struct{ field, label string }{
		{"vx", "X"}, {"vy", "Y"}, {"vz", "Z"},
	} {
		if lp.Has(axis.field) {
			fig.Lines = append(fig.Lines,
				newLine(axis.label, lp.Times(), lp.Fields[axis.field], b.max, 1.5, false))
		}
	}

	if sp := b.lg.Find("vehicle_local_position_setpoint", 0); sp != nil {
		for _, axis := range []struct{ field, label string }{
			{"vx", "X Setpoint"}, {"vy", "Y Setpoint"}, {"vz", "Z Setpoint"},
		} {
			if sp.Has(axis.field) {
				fig.Lines = append(fig.Lines,
					newLine(axis.label, sp.Times(), sp.Fields[axis.field], b.max, 1, true))
			}
		}
	}

	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) manualControl() *Figure {
	mc := b.lg.Find("manual_control_setpoint", 0)
	if mc == nil {
		return nil
	}

	fig := &Figure{Key: "manual_control", Title: "Manual Control Inputs (Radio or Joystick)"}
	fig.YMin, fig.YMax = yRange(-1.1, 1.1)

	// Field names changed across firmware versions; try new first.
	newFields := []struct{ field, label string }{
		{"roll", "Y / Roll"}, {"pitch", "X / Pitch"}, {"yaw", "Yaw"}, {"throttle", "Throttle"},
	}
	oldFields := []struct{ field, label string }{
		{"y", "Y / Roll"}, {"x", "X / Pitch"}, {"r", "Yaw"}, {"z", "Throttle"},
	}
	fields := newFields
	if !mc.Has("roll") {
		fields = oldFields
	}
	for _, f := range fields {
		if mc.Has(f.field) {
			fig.Lines = append(fig.Lines,
				newLine(f.label, mc.Times(), mc.Fields[f.field], b.max, 1.5, false))
		}
	}
	for _, aux := range []string{"aux1", "aux2"} {
		if mc.Has(aux) {
			fig.Lines = append(fig.Lines,
				newLine("Aux"+aux[3:], mc.Times(), mc.Fields[aux], b.max, 1, false))
		}
	}

	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) actuatorControls() *Figure {
	// Dynamic-allocation firmware logs actuator_motors.
	if motors := b.lg.Find("actuator_motors", 0); motors != nil {
		fig := &Figure{Key: "actuator_controls", Title: "Motor Outputs"}
		for i := 0; i < 12; i++ {
			field := fmt.Sprintf("control[%d]", i)
			if !motors.Has(field) {
				continue
			}
			vals := motors.Fields[field]
			if allNaNOrZero(vals) {
				continue
			}
			fig.Lines = append(fig.Lines,
				newLine(fmt.Sprintf("Motor %d", i+1), motors.Times(), vals, b.max, 1, false))
		}
		if len(fig.Lines) > 0 {
			return fig
		}
	}

	act := b.lg.Find("actuator_controls_0", 0)
	if act == nil {
		return nil
	}
	fig := &Figure{Key: "actuator_controls", Title: "Actuator Controls"}
	for i, label := range []string{"Roll", "Pitch", "Yaw", "Thrust"} {
		field := fmt.Sprintf("control[%d]", i)
		if act.Has(field) {
			fig.Lines = append(fig.Lines,
				newLine(label, act.Times(), act.Fields[field], b.max, 1.5, false))
		}
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) actuatorOutputs() *Figure {
	act := b.lg.Find("actuator_outputs", 0)
	if act == nil {
		return nil
	}

	numOutputs := 16
	if act.Has("noutputs") {
		if m := int(maxAbs(act.Fields["noutputs"])); m > 0 && m < numOutputs {
			numOutputs = m
		}
	}

	fig := &Figure{Key: "actuator_outputs", Title: "Actuator Outputs (Main)"}
	for i := 0; i < numOutputs; i++ {
		field := fmt.Sprintf("output[%d]", i)
		if !act.Has(field) {
			continue
		}
		vals := act.Fields[field]
		if isConstant(vals) {
			continue
		}
		fig.Lines = append(fig.Lines,
			newLine(fmt.Sprintf("Output %d", i), act.Times(), vals, b.max, 1, false))
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) rawAccel() *Figure {
	return b.sensorTriplet("raw_accel", "Raw Acceleration", "[m/s²]", "accelerometer_m_s2", 1)
}

func (b *builder) rawGyro() *Figure {
	sc := b.lg.Find("sensor_combined", 0)
	if sc == nil {
		return nil
	}
	fig := &Figure{Key: "raw_gyro", Title: "Raw Angular Speed (Gyroscope)", YLabel: "[deg/s]"}
	for i, label := range []string{"X", "Y", "Z"} {
		field := fmt.Sprintf("gyro_rad[%d]", i)
		if sc.Has(field) {
			fig.Lines = append(fig.Lines,
				newLine(label, sc.Times(), units.DegreesSlice(sc.Fields[field]), b.max, 1, false))
		}
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) sensorTriplet(key, title, ylabel, fieldBase string, width float64) *Figure {
	sc := b.lg.Find("sensor_combined", 0)
	if sc == nil {
		return nil
	}
	fig := &Figure{Key: key, Title: title, YLabel: ylabel}
	for i, label := range []string{"X", "Y", "Z"} {
		field := fmt.Sprintf("%s[%d]", fieldBase, i)
		if sc.Has(field) {
			fig.Lines = append(fig.Lines,
				newLine(label, sc.Times(), sc.Fields[field], b.max, width, false))
		}
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) vibration() *Figure {
	if imu := b.findExact("vehicle_imu_status", 0); imu != nil && imu.Has("accel_vibration_metric") {
		fig := &Figure{Key: "vibration", Title: "Vibration Metrics", YLabel: "[m/s²]"}
		fig.Lines = append(fig.Lines,
			newLine("Accel 0 Vibration [m/s²]", imu.Times(), imu.Fields["accel_vibration_metric"], b.max, 1.5, false))
		for inst := 1; inst < 4; inst++ {
			imuN := b.findExact("vehicle_imu_status", inst)
			if imuN != nil && imuN.Has("accel_vibration_metric") {
				fig.Lines = append(fig.Lines,
					newLine(fmt.Sprintf("Accel %d Vibration [m/s²]", inst),
						imuN.Times(), imuN.Fields["accel_vibration_metric"], b.max, 1.5, false))
			}
		}
		return fig
	}

	// Older estimator-reported vibration levels.
	est := b.lg.Find("estimator_status", 0)
	if est == nil || !est.Has("vibe[0]") {
		return nil
	}
	fig := &Figure{Key: "vibration", Title: "Vibration Metrics", YLabel: "[m/s²]"}
	for i, axis := range []string{"X", "Y", "Z"} {
		field := fmt.Sprintf("vibe[%d]", i)
		if est.Has(field) {
			fig.Lines = append(fig.Lines,
				newLine("Vibe "+axis, est.Times(), est.Fields[field], b.max, 1, false))
		}
	}
	return fig
}

func (b *builder) magnetometer() *Figure {
	mag := b.lg.Find("vehicle_magnetometer", 0)
	if mag == nil {
		mag = b.lg.Find("sensor_combined", 0)
	}
	if mag == nil {
		return nil
	}

	fig := &Figure{Key: "magnetometer", Title: "Raw Magnetic Field Strength", YLabel: "[gauss]"}
	for i, label := range []string{"X", "Y", "Z"} {
		field := fmt.Sprintf("magnetometer_ga[%d]", i)
		if mag.Has(field) {
			fig.Lines = append(fig.Lines,
				newLine(label, mag.Times(), mag.Fields[field], b.max, 1, false))
		}
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) distanceSensor() *Figure {
	ds := b.lg.Find("distance_sensor", 0)
	lp := b.lg.Find("vehicle_local_position", 0)
	if ds == nil && lp == nil {
		return nil
	}

	fig := &Figure{Key: "distance_sensor", Title: "Distance Sensor", YLabel: "[m]"}
	if ds != nil && ds.Has("current_distance") {
		fig.Lines = append(fig.Lines,
			newLine("Distance", ds.Times(), ds.Fields["current_distance"], b.max, 1.5, false))
	}
	if lp != nil && lp.Has("dist_bottom") {
		fig.Lines = append(fig.Lines,
			newLine("Estimated Distance Bottom [m]", lp.Times(), lp.Fields["dist_bottom"], b.max, 1, false))
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) gpsUncertainty() *Figure {
	gps := b.gpsTopic()
	if gps == nil {
		return nil
	}

	fig := &Figure{Key: "gps_uncertainty", Title: "GPS Uncertainty"}
	fig.YMin, fig.YMax = yRange(0, 40)
	for _, f := range []struct{ field, label string }{
		{"eph", "Horizontal position accuracy [m]"},
		{"epv", "Vertical position accuracy [m]"},
		{"hdop", "Horizontal dilution of precision [m]"},
		{"vdop", "Vertical dilution of precision [m]"},
		{"s_variance_m_s", "Speed accuracy [m/s]"},
		{"satellites_used", "Num Satellites used"},
		{"fix_type", "GPS Fix"},
	} {
		if gps.Has(f.field) {
			fig.Lines = append(fig.Lines,
				newLine(f.label, gps.Times(), gps.Fields[f.field], b.max, 1, false))
		}
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) gpsNoise() *Figure {
	gps := b.gpsTopic()
	if gps == nil || (!gps.Has("noise_per_ms") && !gps.Has("jamming_indicator")) {
		return nil
	}

	fig := &Figure{Key: "gps_noise", Title: "GPS Noise & Jamming"}
	if gps.Has("noise_per_ms") {
		fig.Lines = append(fig.Lines,
			newLine("Noise per ms", gps.Times(), gps.Fields["noise_per_ms"], b.max, 1.5, false))
	}
	if gps.Has("jamming_indicator") {
		fig.Lines = append(fig.Lines,
			newLine("Jamming Indicator", gps.Times(), gps.Fields["jamming_indicator"], b.max, 1, false))
	}
	return fig
}

// gpsTopic resolves the GPS topic rename across firmware versions.
func (b *builder) gpsTopic() *ulog.Dataset {
	if gps := b.lg.Find("vehicle_gps_position", 0); gps != nil {
		return gps
	}
	return b.lg.Find("sensor_gps", 0)
}

func (b *builder) power() *Figure {
	bat := b.lg.Find("battery_status", 0)
	if bat == nil {
		return nil
	}

	fig := &Figure{Key: "power", Title: "Power"}
	if field, ok := firstField(bat, "voltage_v", "voltage_filtered_v"); ok {
		fig.Lines = append(fig.Lines,
			newLine("Battery Voltage [V]", bat.Times(), bat.Fields[field], b.max, 1.5, false))
	}
	if field, ok := firstField(bat, "current_a", "current_filtered_a"); ok {
		fig.Lines = append(fig.Lines,
			newLine("Battery Current [A]", bat.Times(), bat.Fields[field], b.max, 1, false))
	}
	if bat.Has("discharged_mah") {
		fig.Lines = append(fig.Lines,
			newLine("Discharged [mAh / 100]", bat.Times(), mul(bat.Fields["discharged_mah"], 0.01), b.max, 1, false))
	}
	if bat.Has("remaining") {
		fig.Lines = append(fig.Lines,
			newLine("Remaining [0=empty, 10=full]", bat.Times(), mul(bat.Fields["remaining"], 10), b.max, 1, true))
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func (b *builder) cpuRAM() *Figure {
	cpu := b.lg.Find("cpuload", 0)
	if cpu == nil {
		return nil
	}

	fig := &Figure{Key: "cpu_ram", Title: "CPU & RAM"}
	fig.YMin, fig.YMax = yRange(0, 1)
	if cpu.Has("ram_usage") {
		fig.Lines = append(fig.Lines,
			newLine("RAM Usage", cpu.Times(), cpu.Fields["ram_usage"], b.max, 1.5, false))
	}
	if cpu.Has("load") {
		fig.Lines = append(fig.Lines,
			newLine("CPU Load", cpu.Times(), cpu.Fields["load"], b.max, 1.5, false))
	}
	if len(fig.Lines) == 0 {
		return nil
	}
	return fig
}

func keyFor(axis, kind string) string {
	keys := map[string]string{"Roll": "roll", "Pitch": "pitch", "Yaw": "yaw"}
	if kind == "rate" {
		return keys[axis] + "_rate"
	}
	return keys[axis]
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func allNaNOrZero(v []float64) bool {
	for _, x := range v {
		if !math.IsNaN(x) && x != 0 {
			return false
		}
	}
	return true
}

func isConstant(v []float64) bool {
	if len(v) == 0 {
		return true
	}
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
