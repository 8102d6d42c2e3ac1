package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/bodygraph-engine/model"
)

// ErrUnknownBody is returned for bodies a provider cannot place.
var ErrUnknownBody = errors.New("unknown body")

// generalPrecession is the accumulated precession in longitude, degrees per
// Julian century, used to move J2000 ecliptic positions to the ecliptic of date.
const generalPrecession = 1.396971

// Analytic is a low-precision geocentric provider built from closed-form
// series: the Sun and Moon from abridged lunisolar theory, the mean lunar
// node, and the planets from mean Keplerian elements. Expect errors of a few
// arcminutes for the planets between 1800 and 2050, which is well inside a
// single line (0.9375°) almost everywhere on the wheel.
type Analytic struct{}

// NewAnalytic returns the built-in provider.
func NewAnalytic() *Analytic { return &Analytic{} }

// Longitude implements Provider.
func (a *Analytic) Longitude(_ context.Context, body model.Body, instant time.Time) (float64, error) {
	if instant.IsZero() {
		return 0, fmt.Errorf("analytic ephemeris: zero instant")
	}
	T := JulianCenturies(instant)

	switch body {
	case model.BodySun:
		return sunLongitude(T), nil
	case model.BodyEarth:
		return Normalize(sunLongitude(T) + 180), nil
	case model.BodyMoon:
		return moonLongitude(T), nil
	case model.BodyNorthNode:
		return meanNode(T), nil
	case model.BodySouthNode:
		return Normalize(meanNode(T) + 180), nil
	}

	el, ok := planetElements[body]
	if !ok {
		return 0, fmt.Errorf("analytic ephemeris: %w: %s", ErrUnknownBody, body)
	}
	px, py, _ := el.heliocentric(T)
	ex, ey, _ := earthMoonBarycenter.heliocentric(T)
	lon := math.Atan2(py-ey, px-ex) * rad2deg
	return Normalize(lon + generalPrecession*T), nil
}

func sunLongitude(T float64) float64 {
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	M := (357.52911 + 35999.05029*T - 0.0001537*T*T) * deg2rad
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(M) +
		(0.019993-0.000101*T)*math.Sin(2*M) +
		0.000289*math.Sin(3*M)
	omega := (125.04 - 1934.136*T) * deg2rad
	return Normalize(L0 + C - 0.00569 - 0.00478*math.Sin(omega))
}

func moonLongitude(T float64) float64 {
	Lp := 218.3164477 + 481267.88123421*T
	D := (297.8501921 + 445267.1114034*T) * deg2rad
	M := (357.5291092 + 35999.0502909*T) * deg2rad
	Mp := (134.9633964 + 477198.8675055*T) * deg2rad
	F := (93.2720950 + 483202.0175233*T) * deg2rad

	lon := Lp +
		6.288774*math.Sin(Mp) +
		1.274027*math.Sin(2*D-Mp) +
		0.658314*math.Sin(2*D) +
		0.213618*math.Sin(2*Mp) -
		0.185116*math.Sin(M) -
		0.114332*math.Sin(2*F) +
		0.058793*math.Sin(2*D-2*Mp) +
		0.057066*math.Sin(2*D-M-Mp) +
		0.053322*math.Sin(2*D+Mp) +
		0.045758*math.Sin(2*D-M) -
		0.040923*math.Sin(M-Mp) -
		0.034720*math.Sin(D) -
		0.030383*math.Sin(M+Mp)
	return Normalize(lon)
}

func meanNode(T float64) float64 {
	return Normalize(125.0445479 - 1934.1362891*T + 0.0020754*T*T)
}

// keplerElements holds J2000 mean elements and their per-century rates:
// semi-major axis (AU), eccentricity, inclination, mean longitude, longitude
// of perihelion, and longitude of the ascending node (degrees).
type keplerElements struct {
	a, e, i, L, peri, node                   float64
	aDot, eDot, iDot, LDot, periDot, nodeDot float64
}

func (k keplerElements) heliocentric(T float64) (x, y, z float64) {
	a := k.a + k.aDot*T
	e := k.e + k.eDot*T
	inc := (k.i + k.iDot*T) * deg2rad
	L := k.L + k.LDot*T
	peri := k.peri + k.periDot*T
	node := k.node + k.nodeDot*T

	M := Wrap180(L-peri) * deg2rad
	w := (peri - node) * deg2rad
	O := node * deg2rad

	E := solveKepler(M, e)
	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	cw, sw := math.Cos(w), math.Sin(w)
	cO, sO := math.Cos(O), math.Sin(O)
	ci, si := math.Cos(inc), math.Sin(inc)

	x = (cw*cO-sw*sO*ci)*xp + (-sw*cO-cw*sO*ci)*yp
	y = (cw*sO+sw*cO*ci)*xp + (-sw*sO+cw*cO*ci)*yp
	z = (sw*si)*xp + (cw*si)*yp
	return x, y, z
}

// solveKepler solves E - e sin E = M by Newton iteration (radians).
func solveKepler(M, e float64) float64 {
	E := M + e*math.Sin(M)
	for range 20 {
		dE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-12 {
			break
		}
	}
	return E
}

var earthMoonBarycenter = keplerElements{
	a: 1.00000261, e: 0.01671123, i: -0.00001531, L: 100.46457166, peri: 102.93768193, node: 0,
	aDot: 0.00000562, eDot: -0.00004392, iDot: -0.01294668, LDot: 35999.37244981, periDot: 0.32327364, nodeDot: 0,
}

var planetElements = map[model.Body]keplerElements{
	model.BodyMercury: {
		a: 0.38709927, e: 0.20563593, i: 7.00497902, L: 252.25032350, peri: 77.45779628, node: 48.33076593,
		aDot: 0.00000037, eDot: 0.00001906, iDot: -0.00594749, LDot: 149472.67411175, periDot: 0.16047689, nodeDot: -0.12534081,
	},
	model.BodyVenus: {
		a: 0.72333566, e: 0.00677672, i: 3.39467605, L: 181.97909950, peri: 131.60246718, node: 76.67984255,
		aDot: 0.00000390, eDot: -0.00004107, iDot: -0.00078890, LDot: 58517.81538729, periDot: 0.00268329, nodeDot: -0.27769418,
	},
	model.BodyMars: {
		a: 1.52371034, e: 0.09339410, i: 1.84969142, L: -4.55343205, peri: -23.94362959, node: 49.55953891,
		aDot: 0.00001847, eDot: 0.00007882, iDot: -0.00813131, LDot: 19140.30268499, periDot: 0.44441088, nodeDot: -0.29257343,
	},
	model.BodyJupiter: {
		a: 5.20288700, e: 0.04838624, i: 1.30439695, L: 34.39644051, peri: 14.72847983, node: 100.47390909,
		aDot: -0.00011607, eDot: -0.00013253, iDot: -0.00183714, LDot: 3034.74612775, periDot: 0.21252668, nodeDot: 0.20469106,
	},
	model.BodySaturn: {
		a: 9.53667594, e: 0.05386179, i: 2.48599187, L: 49.95424423, peri: 92.59887831, node: 113.66242448,
		aDot: -0.00125060, eDot: -0.00050991, iDot: 0.00193609, LDot: 1222.49362201, periDot: -0.41897216, nodeDot: -0.28867794,
	},
	model.BodyUranus: {
		a: 19.18916464, e: 0.04725744, i: 0.77263783, L: 313.23810451, peri: 170.95427630, node: 74.01692503,
		aDot: -0.00196176, eDot: -0.00004397, iDot: -0.00242939, LDot: 428.48202785, periDot: 0.40805281, nodeDot: 0.04240589,
	},
	model.BodyNeptune: {
		a: 30.06992276, e: 0.00859048, i: 1.77004347, L: -55.12002969, peri: 44.96476227, node: 131.78422574,
		aDot: 0.00026291, eDot: 0.00005105, iDot: 0.00035372, LDot: 218.45945325, periDot: -0.32241464, nodeDot: -0.00508664,
	},
	model.BodyPluto: {
		a: 39.48211675, e: 0.24882730, i: 17.14001206, L: 238.92903833, peri: 224.06891629, node: 110.30393684,
		aDot: -0.00031596, eDot: 0.00005170, iDot: 0.00004818, LDot: 145.20780515, periDot: -0.04062942, nodeDot: -0.01183482,
	},
}
