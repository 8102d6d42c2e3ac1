package core

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

func gates(mo model.Moment, ids ...model.GateID) map[model.GateID][]model.Moment {
	out := make(map[model.GateID][]model.Moment, len(ids))
	for _, id := range ids {
		out[id] = []model.Moment{mo}
	}
	return out
}

func TestResolveDefinition(t *testing.T) {
	topo := kb.MustStandard()
	cases := []struct {
		name     string
		set      *model.ActivationSet
		channels []model.ChannelID
		centers  []model.CenterID
	}{
		{
			name: "empty chart is fully open",
			set:  model.NewActivationSetFromGates(nil),
		},
		{
			name: "hanging gates define nothing",
			set:  model.NewActivationSetFromGates(gates(model.MomentCurrent, 1, 2, 3, 4)),
		},
		{
			name:     "single channel defines both ends",
			set:      model.NewActivationSetFromGates(gates(model.MomentCurrent, 1, 8)),
			channels: []model.ChannelID{"1-8"},
			centers:  []model.CenterID{model.CenterThroat, model.CenterG},
		},
		{
			name:     "shared gates complete a triangle of channels",
			set:      model.NewActivationSetFromGates(gates(model.MomentPrior, 10, 20, 34)),
			channels: []model.ChannelID{"10-20", "10-34", "20-34"},
			centers:  []model.CenterID{model.CenterThroat, model.CenterG, model.CenterSacral},
		},
		{
			name: "halves from different moments complete a channel",
			set: model.NewActivationSetFromGates(map[model.GateID][]model.Moment{
				64: {model.MomentCurrent},
				47: {model.MomentPrior},
			}),
			channels: []model.ChannelID{"47-64"},
			centers:  []model.CenterID{model.CenterHead, model.CenterAjna},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveDefinition(tc.set, topo)
			want := model.DefinitionResult{ActiveChannels: tc.channels, DefinedCenters: tc.centers}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("definition mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveDefinitionIsLocalToChannels(t *testing.T) {
	topo := kb.MustStandard()
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		active := make(map[model.GateID][]model.Moment)
		for g := model.GateID(1); g <= kb.GateCount; g++ {
			if rng.Intn(3) == 0 {
				active[g] = []model.Moment{model.Moments[rng.Intn(2)]}
			}
		}
		set := model.NewActivationSetFromGates(active)
		res := ResolveDefinition(set, topo)

		activeCh := make(map[model.ChannelID]bool, len(res.ActiveChannels))
		for _, id := range res.ActiveChannels {
			activeCh[id] = true
		}
		wantDefined := make(map[model.CenterID]bool)
		for _, ch := range topo.Channels() {
			both := set.Has(ch.Gates[0]) && set.Has(ch.Gates[1])
			if both != activeCh[ch.ID] {
				t.Fatalf("trial %d: channel %s active=%v, both gates=%v", trial, ch.ID, activeCh[ch.ID], both)
			}
			if both {
				for _, g := range ch.Gates {
					c, _ := topo.CenterOf(g)
					wantDefined[c] = true
				}
			}
		}
		if len(res.DefinedCenters) != len(wantDefined) {
			t.Fatalf("trial %d: %d defined centers, want %d", trial, len(res.DefinedCenters), len(wantDefined))
		}
		for _, c := range res.DefinedCenters {
			if !wantDefined[c] {
				t.Fatalf("trial %d: center %s defined without an active channel", trial, c)
			}
		}
	}
}
