package kb

import "github.com/signalsfoundry/bodygraph-engine/model"

// StandardWheelOffset is the tropical longitude at which gate 41 begins (2° Aquarius).
const StandardWheelOffset = 302.0

var standardSequence = [GateCount]model.GateID{
	41, 19, 13, 49, 30, 55, 37, 63,
	22, 36, 25, 17, 21, 51, 42, 3,
	27, 24, 2, 23, 8, 20, 16, 35,
	45, 12, 15, 52, 39, 53, 62, 56,
	31, 33, 7, 4, 29, 59, 40, 64,
	47, 6, 46, 18, 48, 57, 32, 50,
	28, 44, 1, 43, 14, 34, 9, 5,
	26, 11, 10, 58, 38, 54, 61, 60,
}

// StandardWheel returns the canonical wheel calibration.
func StandardWheel() Wheel {
	return Wheel{Offset: StandardWheelOffset, Sequence: standardSequence}
}

// StandardCenters returns a fresh copy of the nine canonical centers.
func StandardCenters() []Center {
	return []Center{
		{ID: model.CenterHead, Name: "Head", Gates: []model.GateID{64, 61, 63}},
		{ID: model.CenterAjna, Name: "Ajna", Gates: []model.GateID{47, 24, 4, 17, 43, 11}},
		{ID: model.CenterThroat, Name: "Throat", Gates: []model.GateID{62, 23, 56, 35, 12, 45, 33, 8, 31, 20, 16}},
		{ID: model.CenterG, Name: "G", Gates: []model.GateID{1, 13, 25, 46, 2, 15, 10, 7}},
		{ID: model.CenterHeart, Name: "Heart", Gates: []model.GateID{21, 40, 26, 51}},
		{ID: model.CenterSolarPlexus, Name: "Solar Plexus", Gates: []model.GateID{6, 37, 22, 36, 30, 55, 49}},
		{ID: model.CenterSpleen, Name: "Spleen", Gates: []model.GateID{48, 57, 44, 50, 32, 28, 18}},
		{ID: model.CenterSacral, Name: "Sacral", Gates: []model.GateID{5, 14, 29, 59, 9, 3, 42, 27, 34}},
		{ID: model.CenterRoot, Name: "Root", Gates: []model.GateID{53, 60, 52, 19, 39, 41, 58, 38, 54}},
	}
}

// StandardChannels returns a fresh copy of the 36 canonical channels.
func StandardChannels() []Channel {
	pairs := []struct {
		a, b model.GateID
		name string
	}{
		{1, 8, "Inspiration"},
		{2, 14, "The Beat"},
		{3, 60, "Mutation"},
		{4, 63, "Logic"},
		{5, 15, "Rhythm"},
		{6, 59, "Mating"},
		{7, 31, "The Alpha"},
		{9, 52, "Concentration"},
		{10, 20, "Awakening"},
		{10, 34, "Exploration"},
		{10, 57, "Perfected Form"},
		{11, 56, "Curiosity"},
		{12, 22, "Openness"},
		{13, 33, "The Prodigal"},
		{16, 48, "The Wavelength"},
		{17, 62, "Acceptance"},
		{18, 58, "Judgment"},
		{19, 49, "Synthesis"},
		{20, 34, "Charisma"},
		{20, 57, "The Brain Wave"},
		{21, 45, "Money"},
		{23, 43, "Structuring"},
		{24, 61, "Awareness"},
		{25, 51, "Initiation"},
		{26, 44, "Surrender"},
		{27, 50, "Preservation"},
		{28, 38, "Struggle"},
		{29, 46, "Discovery"},
		{30, 41, "Recognition"},
		{32, 54, "Transformation"},
		{34, 57, "Power"},
		{35, 36, "Transitoriness"},
		{37, 40, "Community"},
		{39, 55, "Emoting"},
		{42, 53, "Maturation"},
		{47, 64, "Abstraction"},
	}
	out := make([]Channel, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Channel{
			ID:    model.ChannelIDFor(p.a, p.b),
			Name:  p.name,
			Gates: [2]model.GateID{p.a, p.b},
		})
	}
	return out
}

// Standard builds and validates the canonical topology.
func Standard() (*Topology, error) {
	return New(StandardCenters(), StandardChannels(), StandardWheel())
}

// MustStandard is Standard for process start-up: a broken built-in table is a
// programming error, so it panics.
func MustStandard() *Topology {
	t, err := Standard()
	if err != nil {
		panic(err)
	}
	return t
}
