package series

import "math"

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// QuatToEuler converts a scalar-first (w, x, y, z) quaternion to Euler angles
// in degrees using the aerospace Z-Y-X (yaw-pitch-roll) intrinsic convention.
func QuatToEuler(w, x, y, z float64) (roll, pitch, yaw float64) {
	sinrCosp := 2 * (w*x + y*z)
	cosrCosp := 1 - 2*(x*x+y*y)
	roll = degrees(math.Atan2(sinrCosp, cosrCosp))

	// A slightly non-unit quaternion can push the asin argument marginally
	// outside [-1, 1]; clamp so pitch never goes NaN.
	sinp := 2 * (w*y - z*x)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}
	pitch = degrees(math.Asin(sinp))

	sinyCosp := 2 * (w*z + x*y)
	cosyCosp := 1 - 2*(y*y+z*z)
	yaw = degrees(math.Atan2(sinyCosp, cosyCosp))

	return roll, pitch, yaw
}

// EulerSeries applies QuatToEuler element-wise over equal-length component
// slices and returns freshly allocated roll, pitch and yaw slices in degrees.
// The shortest component slice bounds the output length.
func EulerSeries(w, x, y, z []float64) (roll, pitch, yaw []float64) {
	n := len(w)
	for _, c := range [][]float64{x, y, z} {
		if len(c) < n {
			n = len(c)
		}
	}
	roll = make([]float64, n)
	pitch = make([]float64, n)
	yaw = make([]float64, n)
	for i := 0; i < n; i++ {
		roll[i], pitch[i], yaw[i] = QuatToEuler(w[i], x[i], y[i], z[i])
	}
	return roll, pitch, yaw
}
