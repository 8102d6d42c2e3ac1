package model

import (
	"sort"
	"time"
)

// Activation is one gate/line produced by one body at one moment.
type Activation struct {
	Body      Body
	Moment    Moment
	Longitude float64 // normalized degrees [0, 360)
	Gate      GateID
	Line      LineID
}

// ActivationSet records which gates were touched from which moment, plus the
// per-body detail used for display. It is built once and not mutated after
// construction; accessors hand out copies.
type ActivationSet struct {
	sources     map[GateID]map[Moment]struct{}
	activations []Activation
}

// NewActivationSet builds a frozen set from the given activations. Gate
// provenance is the union of the moments that activated each gate.
func NewActivationSet(activations []Activation) *ActivationSet {
	s := &ActivationSet{
		sources:     make(map[GateID]map[Moment]struct{}, len(activations)),
		activations: append([]Activation(nil), activations...),
	}
	for _, a := range activations {
		m, ok := s.sources[a.Gate]
		if !ok {
			m = make(map[Moment]struct{}, 2)
			s.sources[a.Gate] = m
		}
		m[a.Moment] = struct{}{}
	}
	return s
}

// NewActivationSetFromGates builds a set with no body detail, tagging every
// gate with the given moments. Useful when only gate presence matters.
func NewActivationSetFromGates(gates map[GateID][]Moment) *ActivationSet {
	s := &ActivationSet{sources: make(map[GateID]map[Moment]struct{}, len(gates))}
	for g, moments := range gates {
		m := make(map[Moment]struct{}, len(moments))
		for _, mo := range moments {
			m[mo] = struct{}{}
		}
		s.sources[g] = m
	}
	return s
}

// Has reports whether the gate was activated from any moment.
func (s *ActivationSet) Has(g GateID) bool {
	if s == nil {
		return false
	}
	_, ok := s.sources[g]
	return ok
}

// Sources returns the moments that activated g, in Moments order.
func (s *ActivationSet) Sources(g GateID) []Moment {
	if s == nil {
		return nil
	}
	m, ok := s.sources[g]
	if !ok {
		return nil
	}
	out := make([]Moment, 0, len(m))
	for _, mo := range Moments {
		if _, ok := m[mo]; ok {
			out = append(out, mo)
		}
	}
	return out
}

// ActivatedBy reports whether g was activated from moment mo.
func (s *ActivationSet) ActivatedBy(g GateID, mo Moment) bool {
	if s == nil {
		return false
	}
	_, ok := s.sources[g][mo]
	return ok
}

// Gates returns the activated gate IDs in ascending order.
func (s *ActivationSet) Gates() []GateID {
	if s == nil {
		return nil
	}
	out := make([]GateID, 0, len(s.sources))
	for g := range s.sources {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of distinct activated gates.
func (s *ActivationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sources)
}

// Activations returns a copy of the per-body detail.
func (s *ActivationSet) Activations() []Activation {
	if s == nil {
		return nil
	}
	return append([]Activation(nil), s.activations...)
}

// DefinitionResult is the output of the definition pass.
type DefinitionResult struct {
	ActiveChannels []ChannelID
	DefinedCenters []CenterID
}

// ChartResult is the assembled chart handed to renderers. Treat it as read-only.
type ChartResult struct {
	Activations    *ActivationSet
	ActiveChannels []ChannelID
	DefinedCenters []CenterID
	OpenCenters    []CenterID
	CurrentInstant time.Time
	PriorInstant   time.Time
}

// IsDefined reports whether c is among the defined centers.
func (r *ChartResult) IsDefined(c CenterID) bool {
	if r == nil {
		return false
	}
	for _, id := range r.DefinedCenters {
		if id == c {
			return true
		}
	}
	return false
}

// HasChannel reports whether ch is among the active channels.
func (r *ChartResult) HasChannel(ch ChannelID) bool {
	if r == nil {
		return false
	}
	for _, id := range r.ActiveChannels {
		if id == ch {
			return true
		}
	}
	return false
}
