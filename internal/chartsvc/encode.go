package chartsvc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

// ActivationView is one body's placement as carried on the wire.
type ActivationView struct {
	Body      string  `json:"body"`
	Moment    string  `json:"moment"`
	Longitude float64 `json:"longitude"`
	Gate      int     `json:"gate"`
	Line      int     `json:"line"`
}

// ChartView is the decoded form of a ComputeChart response.
type ChartView struct {
	CurrentInstant time.Time
	PriorInstant   time.Time
	Activations    []ActivationView
	ActiveChannels []string
	DefinedCenters []string
	OpenCenters    []string
}

// EncodeChart flattens a chart into a protobuf Struct.
func EncodeChart(chart *model.ChartResult) (*structpb.Struct, error) {
	if chart == nil {
		return nil, fmt.Errorf("encode chart: nil chart")
	}
	acts := chart.Activations.Activations()
	activations := make([]any, 0, len(acts))
	for _, a := range acts {
		activations = append(activations, map[string]any{
			"body":      string(a.Body),
			"moment":    string(a.Moment),
			"longitude": a.Longitude,
			"gate":      int(a.Gate),
			"line":      int(a.Line),
		})
	}
	return structpb.NewStruct(map[string]any{
		"current_instant": chart.CurrentInstant.UTC().Format(time.RFC3339Nano),
		"prior_instant":   chart.PriorInstant.UTC().Format(time.RFC3339Nano),
		"activations":     activations,
		"active_channels": stringList(chart.ActiveChannels),
		"defined_centers": stringList(chart.DefinedCenters),
		"open_centers":    stringList(chart.OpenCenters),
	})
}

// DecodeChart reverses EncodeChart.
func DecodeChart(st *structpb.Struct) (*ChartView, error) {
	if st == nil {
		return nil, fmt.Errorf("decode chart: empty response")
	}
	f := st.GetFields()
	view := &ChartView{
		ActiveChannels: listOfStrings(f["active_channels"]),
		DefinedCenters: listOfStrings(f["defined_centers"]),
		OpenCenters:    listOfStrings(f["open_centers"]),
	}

	var err error
	if view.CurrentInstant, err = time.Parse(time.RFC3339Nano, f["current_instant"].GetStringValue()); err != nil {
		return nil, fmt.Errorf("decode chart: current_instant: %w", err)
	}
	if view.PriorInstant, err = time.Parse(time.RFC3339Nano, f["prior_instant"].GetStringValue()); err != nil {
		return nil, fmt.Errorf("decode chart: prior_instant: %w", err)
	}

	for i, v := range f["activations"].GetListValue().GetValues() {
		row := v.GetStructValue().GetFields()
		if row == nil {
			return nil, fmt.Errorf("decode chart: activation %d is not an object", i)
		}
		view.Activations = append(view.Activations, ActivationView{
			Body:      row["body"].GetStringValue(),
			Moment:    row["moment"].GetStringValue(),
			Longitude: row["longitude"].GetNumberValue(),
			Gate:      int(row["gate"].GetNumberValue()),
			Line:      int(row["line"].GetNumberValue()),
		})
	}
	return view, nil
}

// Chart converts the view back into the engine's chart record.
func (v *ChartView) Chart() *model.ChartResult {
	if v == nil {
		return nil
	}
	acts := make([]model.Activation, 0, len(v.Activations))
	for _, a := range v.Activations {
		acts = append(acts, model.Activation{
			Body:      model.Body(a.Body),
			Moment:    model.Moment(a.Moment),
			Longitude: a.Longitude,
			Gate:      model.GateID(a.Gate),
			Line:      model.LineID(a.Line),
		})
	}
	chart := &model.ChartResult{
		Activations:    model.NewActivationSet(acts),
		CurrentInstant: v.CurrentInstant,
		PriorInstant:   v.PriorInstant,
	}
	for _, id := range v.ActiveChannels {
		chart.ActiveChannels = append(chart.ActiveChannels, model.ChannelID(id))
	}
	for _, id := range v.DefinedCenters {
		chart.DefinedCenters = append(chart.DefinedCenters, model.CenterID(id))
	}
	for _, id := range v.OpenCenters {
		chart.OpenCenters = append(chart.OpenCenters, model.CenterID(id))
	}
	return chart
}

// EncodeTopology describes the reference data: centers with their gates,
// channels with their endpoints, and the wheel calibration.
func EncodeTopology(topo *kb.Topology) (*structpb.Struct, error) {
	if topo == nil {
		return nil, fmt.Errorf("encode topology: nil topology")
	}
	centers := make([]any, 0, kb.CenterCount)
	for _, c := range topo.Centers() {
		gates := make([]any, 0, len(c.Gates))
		for _, g := range c.Gates {
			gates = append(gates, int(g))
		}
		centers = append(centers, map[string]any{
			"id":    string(c.ID),
			"name":  c.Name,
			"gates": gates,
		})
	}
	channels := make([]any, 0, kb.ChannelCount)
	for _, ch := range topo.Channels() {
		channels = append(channels, map[string]any{
			"id":    string(ch.ID),
			"name":  ch.Name,
			"gates": []any{int(ch.Gates[0]), int(ch.Gates[1])},
		})
	}
	w := topo.Wheel()
	sequence := make([]any, 0, len(w.Sequence))
	for _, g := range w.Sequence {
		sequence = append(sequence, int(g))
	}
	return structpb.NewStruct(map[string]any{
		"centers":  centers,
		"channels": channels,
		"wheel": map[string]any{
			"offset_degrees": w.Offset,
			"sequence":       sequence,
		},
	})
}

func stringList[T ~string](in []T) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func listOfStrings(v *structpb.Value) []string {
	vals := v.GetListValue().GetValues()
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, 0, len(vals))
	for _, s := range vals {
		out = append(out, s.GetStringValue())
	}
	return out
}
