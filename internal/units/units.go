// Package units provides shared constants and conversions for display units.
// Telemetry series carry SI values (m/s, meters, radians); conversion to the
// configured display unit happens at the presentation boundary only.
package units

import "math"

// Speed unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid speed unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target units.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.23694 // m/s to mph
	case KMPH, KPH:
		return speedMPS * 3.6 // m/s to km/h
	case MPS:
		return speedMPS // no conversion needed
	default:
		return speedMPS // default to m/s if unknown unit
	}
}

// SpeedSuffix returns the display suffix for the given speed unit.
func SpeedSuffix(unit string) string {
	switch unit {
	case MPH:
		return "mph"
	case KMPH, KPH:
		return "km/h"
	default:
		return "m/s"
	}
}

// Degrees converts radians to degrees. Logged angular rates and attitude
// setpoints are in radians; every plot shows degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// DegreesSlice converts a radian series to a freshly allocated degree series.
func DegreesSlice(rad []float64) []float64 {
	out := make([]float64, len(rad))
	for i, r := range rad {
		out[i] = Degrees(r)
	}
	return out
}
