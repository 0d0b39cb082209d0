// Package units provides shared constants and validation for distance units
package units

// Unit constants
const (
	CM = "cm"
	IN = "in"
	M  = "m"
)

// EchoNanosPerCentimeter is the round-trip time-of-flight divisor for an
// HC-SR04 class ultrasonic ranger: 58 us of echo pulse per centimeter of
// target distance (speed of sound at sea level, out and back).
const EchoNanosPerCentimeter = 58_000.0

// ValidUnits contains all valid unit values
var ValidUnits = []string{CM, IN, M}

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
	return "cm, in, m"
}

// ConvertDistance converts a distance from centimeters to the target units.
// The sampler produces centimeters natively.
func ConvertDistance(distanceCM float64, targetUnits string) float64 {
	switch targetUnits {
	case IN:
		return distanceCM / 2.54 // cm to inches
	case M:
		return distanceCM / 100.0 // cm to meters
	case CM:
		return distanceCM // no conversion needed
	default:
		return distanceCM // default to cm if unknown unit
	}
}

// EchoToCentimeters converts an echo pulse width in nanoseconds to a
// distance estimate in centimeters.
func EchoToCentimeters(pulseNanos int64) float64 {
	return float64(pulseNanos) / EchoNanosPerCentimeter
}
