package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

const (
	// GateArc is the width of one gate segment in degrees.
	GateArc = 360.0 / kb.GateCount
	// LineArc is the width of one line within a gate in degrees.
	LineArc = GateArc / 6
)

// Codec maps ecliptic longitudes onto (gate, line) pairs. Both levels use
// closed-open intervals: a longitude exactly on a boundary belongs to the
// segment that starts there, including across the 360°→0° wrap.
type Codec struct {
	wheel    kb.Wheel
	position map[model.GateID]int
}

// NewCodec builds a codec for the given wheel calibration.
func NewCodec(w kb.Wheel) *Codec {
	c := &Codec{wheel: w, position: make(map[model.GateID]int, kb.GateCount)}
	for i, g := range w.Sequence {
		c.position[g] = i
	}
	return c
}

// Wheel returns the calibration in use.
func (c *Codec) Wheel() kb.Wheel { return c.wheel }

// Encode returns the gate and line for longitude, which may be any finite
// number of degrees.
func (c *Codec) Encode(longitude float64) (model.GateID, model.LineID, error) {
	if !ephemeris.IsFinite(longitude) {
		return 0, 0, fmt.Errorf("%w: longitude %v is not finite", ErrInvalidInput, longitude)
	}
	rel := ephemeris.Normalize(ephemeris.Normalize(longitude) - c.wheel.Offset)

	idx := int(math.Floor(rel / GateArc))
	if idx >= kb.GateCount {
		idx = kb.GateCount - 1
	}
	within := rel - float64(idx)*GateArc
	line := int(math.Floor(within / LineArc))
	switch {
	case line < 0:
		line = 0
	case line > 5:
		line = 5
	}
	return c.wheel.Sequence[idx], model.LineID(line + 1), nil
}

// SegmentStart returns the longitude in [0, 360) at which gate g begins.
func (c *Codec) SegmentStart(g model.GateID) (float64, bool) {
	i, ok := c.position[g]
	if !ok {
		return 0, false
	}
	return ephemeris.Normalize(c.wheel.Offset + float64(i)*GateArc), true
}

// LineStart returns the longitude in [0, 360) at which line l of gate g begins.
func (c *Codec) LineStart(g model.GateID, l model.LineID) (float64, bool) {
	start, ok := c.SegmentStart(g)
	if !ok || !l.Valid() {
		return 0, false
	}
	return ephemeris.Normalize(start + float64(l-1)*LineArc), true
}
