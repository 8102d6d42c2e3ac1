package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

type recordedMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	iterations []int
	calls      map[string]int
}

func (r *recordedMetrics) ObserveChart(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordedMetrics) ObserveSolver(iterations, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iterations = append(r.iterations, iterations)
}

func (r *recordedMetrics) AddProviderCalls(moment string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[moment] += n
}

// scriptedSky puts the Sun on gate 41 now (gate 28 one arc earlier), Earth on
// gate 30, the Moon on gate 38, and leaves Mercury at 0° (gate 25).
func scriptedSky() *ephemeris.Linear {
	return &ephemeris.Linear{
		Epoch: refInstant,
		Base: map[model.Body]float64{
			model.BodySun:   302.1,
			model.BodyEarth: 325,
			model.BodyMoon:  280,
		},
		DegreesPerDay: map[model.Body]float64{model.BodySun: 1},
	}
}

var scriptedBodies = []model.Body{model.BodySun, model.BodyEarth, model.BodyMoon, model.BodyMercury}

func mustEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(kb.MustStandard(), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestComputeChartScripted(t *testing.T) {
	metrics := &recordedMetrics{}
	e := mustEngine(t, WithBodies(scriptedBodies...), WithParallelism(2), WithMetricsRecorder(metrics))

	chart, err := e.ComputeChart(context.Background(), refInstant, scriptedSky())
	if err != nil {
		t.Fatalf("ComputeChart: %v", err)
	}

	if d := refInstant.Sub(chart.PriorInstant) - 88*day; d < -time.Second || d > time.Second {
		t.Fatalf("prior instant %s is %s away from 88 days back", chart.PriorInstant, d)
	}
	if diff := cmp.Diff([]model.ChannelID{"28-38", "30-41"}, chart.ActiveChannels); diff != "" {
		t.Fatalf("active channels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.CenterID{model.CenterSolarPlexus, model.CenterSpleen, model.CenterRoot}, chart.DefinedCenters); diff != "" {
		t.Fatalf("defined centers (-want +got):\n%s", diff)
	}
	wantOpen := []model.CenterID{
		model.CenterHead, model.CenterAjna, model.CenterThroat,
		model.CenterG, model.CenterHeart, model.CenterSacral,
	}
	if diff := cmp.Diff(wantOpen, chart.OpenCenters); diff != "" {
		t.Fatalf("open centers (-want +got):\n%s", diff)
	}

	set := chart.Activations
	if diff := cmp.Diff([]model.Moment{model.MomentCurrent}, set.Sources(41)); diff != "" {
		t.Fatalf("gate 41 provenance (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Moment{model.MomentPrior}, set.Sources(28)); diff != "" {
		t.Fatalf("gate 28 provenance (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Moment{model.MomentCurrent, model.MomentPrior}, set.Sources(30)); diff != "" {
		t.Fatalf("gate 30 provenance (-want +got):\n%s", diff)
	}
	if !set.Has(25) {
		t.Fatalf("mercury at 0° should activate gate 25")
	}

	if diff := cmp.Diff([]string{OutcomeOK}, metrics.outcomes); diff != "" {
		t.Fatalf("recorded outcomes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"current": 4, "prior": 4}, metrics.calls); diff != "" {
		t.Fatalf("provider calls (-want +got):\n%s", diff)
	}
	if len(metrics.iterations) != 1 {
		t.Fatalf("solver observations = %d, want 1", len(metrics.iterations))
	}
}

func TestComputeChartAnalyticInvariants(t *testing.T) {
	e := mustEngine(t, WithParallelism(4))
	topo := e.Topology()

	for _, at := range []time.Time{
		refInstant,
		time.Date(1979, 11, 2, 8, 45, 0, 0, time.UTC),
		time.Date(2010, 10, 3, 12, 0, 0, 0, time.UTC),
	} {
		chart, err := e.ComputeChart(context.Background(), at, ephemeris.NewAnalytic())
		if err != nil {
			t.Fatalf("ComputeChart(%s): %v", at, err)
		}
		if got := len(chart.Activations.Activations()); got != 2*len(model.StandardBodies) {
			t.Fatalf("%s: %d activations, want %d", at, got, 2*len(model.StandardBodies))
		}
		if got := len(chart.DefinedCenters) + len(chart.OpenCenters); got != kb.CenterCount {
			t.Fatalf("%s: defined+open = %d, want %d", at, got, kb.CenterCount)
		}
		for _, id := range chart.ActiveChannels {
			ch, ok := topo.Channel(id)
			if !ok {
				t.Fatalf("%s: unknown active channel %s", at, id)
			}
			for _, g := range ch.Gates {
				c, _ := topo.CenterOf(g)
				if !chart.IsDefined(c) {
					t.Fatalf("%s: channel %s active but center %s open", at, id, c)
				}
			}
		}
		for _, c := range chart.OpenCenters {
			if chart.IsDefined(c) {
				t.Fatalf("%s: center %s both open and defined", at, c)
			}
		}
	}
}

func TestComputeChartNormalizesZone(t *testing.T) {
	e := mustEngine(t, WithBodies(scriptedBodies...))
	zoned := refInstant.In(time.FixedZone("UTC+5:30", 5*3600+1800))

	utc, err := e.ComputeChart(context.Background(), refInstant, scriptedSky())
	if err != nil {
		t.Fatalf("ComputeChart utc: %v", err)
	}
	local, err := e.ComputeChart(context.Background(), zoned, scriptedSky())
	if err != nil {
		t.Fatalf("ComputeChart zoned: %v", err)
	}
	if local.CurrentInstant.Location() != time.UTC {
		t.Fatalf("current instant kept zone %s", local.CurrentInstant.Location())
	}
	if diff := cmp.Diff(utc.Activations.Activations(), local.Activations.Activations()); diff != "" {
		t.Fatalf("zone changed the chart (-utc +zoned):\n%s", diff)
	}
}

func TestComputeChartErrors(t *testing.T) {
	boom := errors.New("ephemeris offline")
	failing := ephemeris.ProviderFunc(func(context.Context, model.Body, time.Time) (float64, error) {
		return 0, boom
	})
	retrogradeSun := &ephemeris.Linear{
		Epoch:         refInstant,
		DegreesPerDay: map[model.Body]float64{model.BodySun: -1},
	}

	cases := []struct {
		name    string
		at      time.Time
		p       ephemeris.Provider
		want    error
		outcome string
	}{
		{"zero instant", time.Time{}, scriptedSky(), ErrInvalidInput, OutcomeInvalidInput},
		{"nil provider", refInstant, nil, ErrInvalidInput, OutcomeInvalidInput},
		{"provider failure", refInstant, failing, ErrProviderFailure, OutcomeProviderFailure},
		{"unbracketed arc", refInstant, retrogradeSun, ErrSolverDidNotConverge, OutcomeNotConverged},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &recordedMetrics{}
			e := mustEngine(t, WithBodies(scriptedBodies...), WithMetricsRecorder(metrics))
			chart, err := e.ComputeChart(context.Background(), tc.at, tc.p)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if chart != nil {
				t.Fatalf("expected no chart on error")
			}
			if diff := cmp.Diff([]string{tc.outcome}, metrics.outcomes); diff != "" {
				t.Fatalf("outcomes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeChartRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e := mustEngine(t, WithBodies(scriptedBodies...), WithTracerProvider(tp))
	if _, err := e.ComputeChart(context.Background(), refInstant, scriptedSky()); err != nil {
		t.Fatalf("ComputeChart: %v", err)
	}

	names := make(map[string]bool)
	for _, s := range sr.Ended() {
		names[s.Name()] = true
	}
	for _, want := range []string{"ComputeChart", "SolvePrior", "ResolveActivations"} {
		if !names[want] {
			t.Fatalf("span %q not recorded; got %v", want, names)
		}
	}
}

func TestComputeChartConcurrentCallers(t *testing.T) {
	e := mustEngine(t, WithParallelism(3))
	p := ephemeris.NewAnalytic()
	want, err := e.ComputeChart(context.Background(), refInstant, p)
	if err != nil {
		t.Fatalf("ComputeChart: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.ComputeChart(context.Background(), refInstant, p)
			if err != nil {
				errs <- err
				return
			}
			if diff := cmp.Diff(want.ActiveChannels, got.ActiveChannels); diff != "" {
				errs <- fmt.Errorf("channels differ:\n%s", diff)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestNewEngineValidates(t *testing.T) {
	if _, err := NewEngine(nil); !errors.Is(err, ErrTopologyInvalid) {
		t.Fatalf("nil topology err = %v, want ErrTopologyInvalid", err)
	}

	bad := DefaultSolverConfig()
	bad.MaxIterations = 0
	cases := map[string][]EngineOption{
		"zero arc":        {WithArc(0)},
		"full arc":        {WithArc(360)},
		"no pivot":        {WithPivot("")},
		"duplicate body":  {WithBodies(model.BodySun, model.BodySun)},
		"no bodies":       {WithBodies()},
		"solver settings": {WithSolverConfig(bad)},
	}
	for name, opts := range cases {
		if _, err := NewEngine(kb.MustStandard(), opts...); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", name, err)
		}
	}

	e := mustEngine(t)
	if pivot, arc := e.Pivot(); pivot != model.BodySun || arc != DefaultArc {
		t.Fatalf("default pivot = %s %v", pivot, arc)
	}
	if diff := cmp.Diff(model.StandardBodies, e.Bodies()); diff != "" {
		t.Fatalf("default bodies (-want +got):\n%s", diff)
	}
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		OutcomeOK:              nil,
		OutcomeInvalidInput:    fmt.Errorf("wrapped: %w", ErrInvalidInput),
		OutcomeNotConverged:    ErrSolverDidNotConverge,
		OutcomeProviderFailure: fmt.Errorf("%w: %w", ErrProviderFailure, errors.New("x")),
		OutcomeCanceled:        context.DeadlineExceeded,
		OutcomeError:           errors.New("other"),
	}
	for want, err := range cases {
		if got := Outcome(err); got != want {
			t.Errorf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}
