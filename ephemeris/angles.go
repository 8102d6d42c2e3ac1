package ephemeris

import "math"

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// Normalize maps any finite angle in degrees onto [0, 360).
func Normalize(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// Mod of a tiny negative value can round back up to exactly 360.
	if r >= 360 {
		r = 0
	}
	return r
}

// Wrap180 maps an angle difference onto (-180, 180].
func Wrap180(deg float64) float64 {
	r := Normalize(deg)
	if r > 180 {
		r -= 360
	}
	return r
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
