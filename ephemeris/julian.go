package ephemeris

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// J2000 is the Julian day of 2000-01-01T12:00:00 TT, used as the epoch for
// every series in this package (UT is used in place of TT).
const J2000 = 2451545.0

// JulianDay returns the Julian day number of t (converted to UTC), including
// the sub-second fraction that satellite.JDay drops.
func JulianDay(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/1e9/86400
}

// JulianCenturies returns the Julian centuries elapsed since J2000.
func JulianCenturies(t time.Time) float64 {
	return (JulianDay(t) - J2000) / 36525
}

