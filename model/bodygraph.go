package model

import "fmt"

// GateID identifies one of the 64 gates (1..64).
type GateID int

// Valid reports whether g lies in 1..64.
func (g GateID) Valid() bool { return g >= 1 && g <= 64 }

// LineID identifies a line within a gate (1..6).
type LineID int

// Valid reports whether l lies in 1..6.
func (l LineID) Valid() bool { return l >= 1 && l <= 6 }

// CenterID identifies one of the nine centers.
type CenterID string

const (
	CenterHead        CenterID = "HEAD"
	CenterAjna        CenterID = "AJNA"
	CenterThroat      CenterID = "THROAT"
	CenterG           CenterID = "G"
	CenterHeart       CenterID = "HEART"
	CenterSolarPlexus CenterID = "SOLAR_PLEXUS"
	CenterSpleen      CenterID = "SPLEEN"
	CenterSacral      CenterID = "SACRAL"
	CenterRoot        CenterID = "ROOT"
)

// CenterOrder is the canonical top-to-bottom order used when listing centers.
var CenterOrder = [...]CenterID{
	CenterHead,
	CenterAjna,
	CenterThroat,
	CenterG,
	CenterHeart,
	CenterSolarPlexus,
	CenterSpleen,
	CenterSacral,
	CenterRoot,
}

// CenterRank returns the position of c in CenterOrder, or -1 when unknown.
func CenterRank(c CenterID) int {
	for i, id := range CenterOrder {
		if id == c {
			return i
		}
	}
	return -1
}

// ChannelID identifies a channel as "<low gate>-<high gate>".
type ChannelID string

// ChannelIDFor returns the canonical ID for the unordered pair (a, b).
func ChannelIDFor(a, b GateID) ChannelID {
	if a > b {
		a, b = b, a
	}
	return ChannelID(fmt.Sprintf("%d-%d", a, b))
}

// Body is a tracked reference point whose longitude activates a gate.
type Body string

const (
	BodySun       Body = "SUN"
	BodyEarth     Body = "EARTH"
	BodyNorthNode Body = "NORTH_NODE"
	BodySouthNode Body = "SOUTH_NODE"
	BodyMoon      Body = "MOON"
	BodyMercury   Body = "MERCURY"
	BodyVenus     Body = "VENUS"
	BodyMars      Body = "MARS"
	BodyJupiter   Body = "JUPITER"
	BodySaturn    Body = "SATURN"
	BodyUranus    Body = "URANUS"
	BodyNeptune   Body = "NEPTUNE"
	BodyPluto     Body = "PLUTO"
)

// StandardBodies is the default tracked set, in display order.
var StandardBodies = []Body{
	BodySun,
	BodyEarth,
	BodyNorthNode,
	BodySouthNode,
	BodyMoon,
	BodyMercury,
	BodyVenus,
	BodyMars,
	BodyJupiter,
	BodySaturn,
	BodyUranus,
	BodyNeptune,
	BodyPluto,
}

// IsKnownBody reports whether b is one of StandardBodies.
func IsKnownBody(b Body) bool {
	for _, known := range StandardBodies {
		if known == b {
			return true
		}
	}
	return false
}

// Moment tags which of the two chart instants produced an activation.
type Moment string

const (
	// MomentCurrent is the activation instant itself.
	MomentCurrent Moment = "current"
	// MomentPrior is the derived instant at which the pivot body sat one arc earlier.
	MomentPrior Moment = "prior"
)

// Moments lists both moments in resolution order.
var Moments = [...]Moment{MomentCurrent, MomentPrior}
