package core

import (
	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

// ResolveDefinition marks a channel active when both of its gates are
// activated (from either moment) and a center defined when it owns an
// endpoint of an active channel. Definition is local to each channel; whether
// defined centers connect to one another is left to callers.
func ResolveDefinition(set *model.ActivationSet, topo *kb.Topology) model.DefinitionResult {
	var res model.DefinitionResult
	defined := make(map[model.CenterID]bool)

	for _, ch := range topo.Channels() {
		if !set.Has(ch.Gates[0]) || !set.Has(ch.Gates[1]) {
			continue
		}
		res.ActiveChannels = append(res.ActiveChannels, ch.ID)
		for _, g := range ch.Gates {
			if c, ok := topo.CenterOf(g); ok {
				defined[c] = true
			}
		}
	}

	for _, c := range topo.Centers() {
		if defined[c.ID] {
			res.DefinedCenters = append(res.DefinedCenters, c.ID)
		}
	}
	return res
}
