// Package render formats charts and reference data for the terminal.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

const ruleWidth = 60

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a renderer. When pretty is false output is plain text with no
// escape sequences, suitable for pipes and tests.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

func (r *Renderer) paint(fn func(string, ...interface{}) string, s string) string {
	if !r.pretty {
		return s
	}
	return fn("%s", s)
}

func (r *Renderer) heading(sb *strings.Builder, title string) {
	if r.pretty {
		sb.WriteString(color.CyanString(title) + "\n")
		sb.WriteString(strings.Repeat("─", ruleWidth) + "\n")
		return
	}
	sb.WriteString(title + "\n")
}

// Chart formats a resolved chart: instants, the activation table, then
// channels and centers.
func (r *Renderer) Chart(chart *model.ChartResult) string {
	if chart == nil {
		return "No chart"
	}
	var sb strings.Builder

	r.heading(&sb, "Chart")
	fmt.Fprintf(&sb, "current  %s\n", chart.CurrentInstant.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "prior    %s\n\n", chart.PriorInstant.UTC().Format(time.RFC3339))

	r.activationTable(&sb, chart.Activations.Activations())

	sb.WriteString("\n")
	r.heading(&sb, "Channels")
	if len(chart.ActiveChannels) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, ch := range chart.ActiveChannels {
		fmt.Fprintf(&sb, "  %s\n", r.paint(color.GreenString, string(ch)))
	}

	sb.WriteString("\n")
	r.heading(&sb, "Centers")
	fmt.Fprintf(&sb, "  defined: %s\n", r.paint(color.YellowString, joinIDs(chart.DefinedCenters)))
	fmt.Fprintf(&sb, "  open:    %s\n", r.paint(color.HiBlackString, joinIDs(chart.OpenCenters)))
	return sb.String()
}

func (r *Renderer) activationTable(sb *strings.Builder, acts []model.Activation) {
	byBody := make(map[model.Body]map[model.Moment]model.Activation)
	var order []model.Body
	for _, a := range acts {
		if _, ok := byBody[a.Body]; !ok {
			byBody[a.Body] = make(map[model.Moment]model.Activation, len(model.Moments))
			order = append(order, a.Body)
		}
		byBody[a.Body][a.Moment] = a
	}

	fmt.Fprintf(sb, "%-12s %-10s %-10s\n", "BODY", "CURRENT", "PRIOR")
	for _, body := range order {
		cur := placement(byBody[body], model.MomentCurrent)
		pri := placement(byBody[body], model.MomentPrior)
		fmt.Fprintf(sb, "%-12s %-10s %-10s\n", body, cur, r.paint(color.RedString, pri))
	}
}

func placement(m map[model.Moment]model.Activation, mo model.Moment) string {
	a, ok := m[mo]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d.%d", a.Gate, a.Line)
}

// Prior formats a solved prior moment. A non-positive arc is left out.
func (r *Renderer) Prior(current, prior time.Time, arc float64) string {
	days := current.Sub(prior).Hours() / 24
	detail := fmt.Sprintf("%.2f days earlier", days)
	if arc > 0 {
		detail = fmt.Sprintf("%g° arc, %s", arc, detail)
	}
	return fmt.Sprintf("%s  %s  (%s)\n",
		r.paint(color.HiBlackString, current.UTC().Format(time.RFC3339)),
		prior.UTC().Format(time.RFC3339),
		detail)
}

// Transit formats one line of a watch feed: the instant and the channels that
// changed since the previous chart.
func (r *Renderer) Transit(at time.Time, added, removed []model.ChannelID) string {
	var parts []string
	for _, ch := range added {
		parts = append(parts, r.paint(color.GreenString, "+"+string(ch)))
	}
	for _, ch := range removed {
		parts = append(parts, r.paint(color.RedString, "-"+string(ch)))
	}
	if len(parts) == 0 {
		parts = append(parts, "no change")
	}
	return fmt.Sprintf("[%s] %s\n", at.UTC().Format(time.RFC3339), strings.Join(parts, " "))
}

// Topology lists centers with their gates, channels, and the wheel order.
func (r *Renderer) Topology(topo *kb.Topology) string {
	if topo == nil {
		return "No topology"
	}
	var sb strings.Builder

	r.heading(&sb, fmt.Sprintf("Centers (%d)", len(topo.Centers())))
	for _, c := range topo.Centers() {
		gates := append([]model.GateID(nil), c.Gates...)
		sort.Slice(gates, func(i, j int) bool { return gates[i] < gates[j] })
		fmt.Fprintf(&sb, "  %-13s %s\n", r.paint(color.YellowString, string(c.ID)), joinGates(gates))
	}

	sb.WriteString("\n")
	r.heading(&sb, fmt.Sprintf("Channels (%d)", len(topo.Channels())))
	for _, ch := range topo.Channels() {
		fmt.Fprintf(&sb, "  %-6s %s\n", ch.ID, ch.Name)
	}

	sb.WriteString("\n")
	w := topo.Wheel()
	r.heading(&sb, fmt.Sprintf("Wheel (offset %.3f°)", w.Offset))
	for i := 0; i < len(w.Sequence); i += 16 {
		sb.WriteString("  " + joinGates(w.Sequence[i:i+16]) + "\n")
	}
	return sb.String()
}

// ChannelDiff returns the channels present in next but not prev, and those
// present in prev but not next, each in input order.
func ChannelDiff(prev, next []model.ChannelID) (added, removed []model.ChannelID) {
	in := func(set []model.ChannelID, id model.ChannelID) bool {
		for _, s := range set {
			if s == id {
				return true
			}
		}
		return false
	}
	for _, id := range next {
		if !in(prev, id) {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if !in(next, id) {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func joinIDs(ids []model.CenterID) string {
	if len(ids) == 0 {
		return "(none)"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func joinGates(gates []model.GateID) string {
	parts := make([]string, len(gates))
	for i, g := range gates {
		parts[i] = fmt.Sprintf("%2d", g)
	}
	return strings.Join(parts, " ")
}
