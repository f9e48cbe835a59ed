// Package units provides speed unit constants and the pixel-to-metre
// approximation used to turn image-space motion into physical speed.
package units

import "math"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// Court reference used for the linear pixel scale: the length of a singles
// court in metres spread across a 1920 pixel wide frame. This is a coarse
// approximation with no perspective correction.
const (
	CourtLengthMeters    = 23.77
	ReferenceWidthPixels = 1920.0
)

// MetersPerPixel is the fixed linear scale applied to pixel distances.
const MetersPerPixel = CourtLengthMeters / ReferenceWidthPixels

// MPSToKMPH is the factor from metres per second to kilometres per hour.
const MPSToKMPH = 3.6

// ConvertSpeed converts a speed from meters per second to the target units
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * MPSToKMPH
	default:
		return speedMPS
	}
}

// PixelsToMeters scales a pixel distance by metersPerPixel.
// A non-positive scale falls back to MetersPerPixel.
func PixelsToMeters(pixels, metersPerPixel float64) float64 {
	if metersPerPixel <= 0 {
		metersPerPixel = MetersPerPixel
	}
	return pixels * metersPerPixel
}

// Round rounds v to the given number of decimal places. Used for
// presentation only; callers keep full precision internally.
func Round(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
