package kb

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/bodygraph-engine/model"
)

// ErrTopologyInvalid is returned when the reference data fails its integrity check.
var ErrTopologyInvalid = errors.New("topology invalid")

const (
	// GateCount is the number of gates on the wheel.
	GateCount = 64
	// ChannelCount is the number of channels in the canonical bodygraph.
	ChannelCount = 36
	// CenterCount is the number of centers in the canonical bodygraph.
	CenterCount = 9
)

// Center is one of the nine centers together with the gates it owns.
type Center struct {
	ID    model.CenterID
	Name  string
	Gates []model.GateID
}

// Channel binds two gates, and through them up to two centers.
type Channel struct {
	ID    model.ChannelID
	Name  string
	Gates [2]model.GateID
}

// Wheel calibrates the longitude-to-gate mapping: Offset is the longitude at
// which Sequence[0] begins, and Sequence lists the gates in increasing
// longitude order.
type Wheel struct {
	Offset   float64
	Sequence [GateCount]model.GateID
}

// Topology is the immutable bodygraph reference data. Construct it once with
// New or Standard and share it read-only.
type Topology struct {
	centers  []Center
	channels []Channel
	wheel    Wheel

	gateCenter     map[model.GateID]model.CenterID
	channelIndex   map[model.ChannelID]int
	channelsByGate map[model.GateID][]model.ChannelID
}

// New copies the given reference data, indexes it, and validates it. The
// returned error wraps ErrTopologyInvalid and lists every problem found.
func New(centers []Center, channels []Channel, wheel Wheel) (*Topology, error) {
	t := &Topology{
		centers:        make([]Center, len(centers)),
		channels:       append([]Channel(nil), channels...),
		wheel:          wheel,
		gateCenter:     make(map[model.GateID]model.CenterID, GateCount),
		channelIndex:   make(map[model.ChannelID]int, len(channels)),
		channelsByGate: make(map[model.GateID][]model.ChannelID),
	}
	for i, c := range centers {
		t.centers[i] = Center{ID: c.ID, Name: c.Name, Gates: append([]model.GateID(nil), c.Gates...)}
		for _, g := range c.Gates {
			if _, seen := t.gateCenter[g]; !seen {
				t.gateCenter[g] = c.ID
			}
		}
	}
	for i, ch := range t.channels {
		if _, seen := t.channelIndex[ch.ID]; !seen {
			t.channelIndex[ch.ID] = i
		}
		for _, g := range ch.Gates {
			t.channelsByGate[g] = append(t.channelsByGate[g], ch.ID)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate runs the structural integrity checks over the reference data.
func (t *Topology) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil topology", ErrTopologyInvalid)
	}
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if len(t.centers) != CenterCount {
		add("expected %d centers, got %d", CenterCount, len(t.centers))
	}
	owner := make(map[model.GateID]model.CenterID, GateCount)
	centerIDs := make(map[model.CenterID]bool, len(t.centers))
	for _, c := range t.centers {
		if c.ID == "" {
			add("center with empty id")
			continue
		}
		if centerIDs[c.ID] {
			add("center %s listed twice", c.ID)
		}
		centerIDs[c.ID] = true
		if model.CenterRank(c.ID) < 0 {
			add("center %s is not a recognised center", c.ID)
		}
		if len(c.Gates) == 0 {
			add("center %s owns no gates", c.ID)
		}
		for _, g := range c.Gates {
			if !g.Valid() {
				add("center %s owns out-of-range gate %d", c.ID, g)
				continue
			}
			if prev, dup := owner[g]; dup {
				add("gate %d owned by both %s and %s", g, prev, c.ID)
				continue
			}
			owner[g] = c.ID
		}
	}
	for g := model.GateID(1); g <= GateCount; g++ {
		if _, ok := owner[g]; !ok {
			add("gate %d is not owned by any center", g)
		}
	}

	if len(t.channels) != ChannelCount {
		add("expected %d channels, got %d", ChannelCount, len(t.channels))
	}
	pairs := make(map[model.ChannelID]bool, len(t.channels))
	touched := make(map[model.CenterID]bool, len(t.centers))
	for _, ch := range t.channels {
		a, b := ch.Gates[0], ch.Gates[1]
		if a == b {
			add("channel %s joins gate %d to itself", ch.ID, a)
			continue
		}
		if _, ok := owner[a]; !ok {
			add("channel %s references unknown gate %d", ch.ID, a)
			continue
		}
		if _, ok := owner[b]; !ok {
			add("channel %s references unknown gate %d", ch.ID, b)
			continue
		}
		pair := model.ChannelIDFor(a, b)
		if ch.ID != pair {
			add("channel %s should be identified as %s", ch.ID, pair)
		}
		if pairs[pair] {
			add("duplicate channel for gate pair %s", pair)
		}
		pairs[pair] = true
		touched[owner[a]] = true
		touched[owner[b]] = true
	}
	for _, c := range t.centers {
		if c.ID != "" && !touched[c.ID] {
			add("center %s is not reached by any channel", c.ID)
		}
	}

	if math.IsNaN(t.wheel.Offset) || math.IsInf(t.wheel.Offset, 0) {
		add("wheel offset %v is not finite", t.wheel.Offset)
	}
	onWheel := make(map[model.GateID]bool, GateCount)
	for i, g := range t.wheel.Sequence {
		if !g.Valid() {
			add("wheel position %d holds out-of-range gate %d", i, g)
			continue
		}
		if onWheel[g] {
			add("gate %d appears twice on the wheel", g)
		}
		onWheel[g] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrTopologyInvalid, errors.Join(problems...))
	}
	return nil
}

// CenterOf returns the center owning gate g.
func (t *Topology) CenterOf(g model.GateID) (model.CenterID, bool) {
	c, ok := t.gateCenter[g]
	return c, ok
}

// Centers returns a snapshot of all centers in definition order.
func (t *Topology) Centers() []Center {
	out := make([]Center, len(t.centers))
	for i, c := range t.centers {
		out[i] = Center{ID: c.ID, Name: c.Name, Gates: append([]model.GateID(nil), c.Gates...)}
	}
	return out
}

// Channels returns a snapshot of all channels in definition order.
func (t *Topology) Channels() []Channel {
	return append([]Channel(nil), t.channels...)
}

// Channel returns the channel with the given ID.
func (t *Topology) Channel(id model.ChannelID) (Channel, bool) {
	i, ok := t.channelIndex[id]
	if !ok {
		return Channel{}, false
	}
	return t.channels[i], true
}

// ChannelsOfGate returns the IDs of the channels that use gate g, sorted.
func (t *Topology) ChannelsOfGate(g model.GateID) []model.ChannelID {
	ids := append([]model.ChannelID(nil), t.channelsByGate[g]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Wheel returns the wheel calibration.
func (t *Topology) Wheel() Wheel {
	return t.wheel
}

// WithWheel returns a copy of t using a different wheel calibration.
func (t *Topology) WithWheel(w Wheel) (*Topology, error) {
	return New(t.centers, t.channels, w)
}
