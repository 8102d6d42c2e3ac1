package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

// countingProvider records how often each (body, instant) pair is sampled.
type countingProvider struct {
	inner ephemeris.Provider

	mu    sync.Mutex
	calls map[string]int
}

func newCountingProvider(inner ephemeris.Provider) *countingProvider {
	return &countingProvider{inner: inner, calls: make(map[string]int)}
}

func (c *countingProvider) Longitude(ctx context.Context, body model.Body, at time.Time) (float64, error) {
	c.mu.Lock()
	c.calls[fmt.Sprintf("%s@%s", body, at.UTC().Format(time.RFC3339Nano))]++
	c.mu.Unlock()
	return c.inner.Longitude(ctx, body, at)
}

func (c *countingProvider) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// fixedProvider returns scripted longitudes for the current and prior instants.
func fixedProvider(current time.Time, now, then map[model.Body]float64) ephemeris.Provider {
	return ephemeris.ProviderFunc(func(_ context.Context, body model.Body, at time.Time) (float64, error) {
		if at.Equal(current) {
			return now[body], nil
		}
		return then[body], nil
	})
}

func TestResolveActivationsSamplesEachPairOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	prior := refInstant.Add(-88 * day)
	p := newCountingProvider(ephemeris.NewAnalytic())
	codec := NewCodec(kb.StandardWheel())

	set, err := ResolveActivations(context.Background(), refInstant, prior, model.StandardBodies, p, codec, 4)
	if err != nil {
		t.Fatalf("ResolveActivations: %v", err)
	}
	if got, want := p.total(), 2*len(model.StandardBodies); got != want {
		t.Fatalf("provider calls = %d, want %d", got, want)
	}
	for key, n := range p.calls {
		if n != 1 {
			t.Fatalf("%s sampled %d times", key, n)
		}
	}
	if got := len(set.Activations()); got != 2*len(model.StandardBodies) {
		t.Fatalf("activation detail has %d rows", got)
	}
}

func TestResolveActivationsDetailOrder(t *testing.T) {
	prior := refInstant.Add(-88 * day)
	bodies := []model.Body{model.BodySun, model.BodyMoon, model.BodyMars}
	set, err := ResolveActivations(context.Background(), refInstant, prior, bodies,
		ephemeris.NewAnalytic(), NewCodec(kb.StandardWheel()), 3)
	if err != nil {
		t.Fatalf("ResolveActivations: %v", err)
	}

	var got []string
	for _, a := range set.Activations() {
		got = append(got, fmt.Sprintf("%s/%s", a.Moment, a.Body))
	}
	want := []string{
		"current/SUN", "current/MOON", "current/MARS",
		"prior/SUN", "prior/MOON", "prior/MARS",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("detail order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveActivationsProvenanceUnion(t *testing.T) {
	prior := refInstant.Add(-88 * day)
	p := fixedProvider(refInstant,
		map[model.Body]float64{model.BodySun: 302.1, model.BodyEarth: 122.1},
		map[model.Body]float64{model.BodySun: 10, model.BodyEarth: 302.5},
	)
	set, err := ResolveActivations(context.Background(), refInstant, prior,
		[]model.Body{model.BodySun, model.BodyEarth}, p, NewCodec(kb.StandardWheel()), 1)
	if err != nil {
		t.Fatalf("ResolveActivations: %v", err)
	}

	if diff := cmp.Diff([]model.Moment{model.MomentCurrent, model.MomentPrior}, set.Sources(41)); diff != "" {
		t.Fatalf("gate 41 provenance mismatch (-want +got):\n%s", diff)
	}
	if set.Len() != 3 {
		t.Fatalf("distinct gates = %d, want 3 (gate 41 counted once)", set.Len())
	}
	for _, a := range set.Activations() {
		if a.Gate == 41 && a.Line != 1 {
			t.Fatalf("%s/%s on gate 41 line %d, want line 1", a.Moment, a.Body, a.Line)
		}
	}
}

func TestResolveActivationsParallelMatchesSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	prior := refInstant.Add(-88 * day)
	codec := NewCodec(kb.StandardWheel())
	p := ephemeris.NewAnalytic()

	seq, err := ResolveActivations(context.Background(), refInstant, prior, model.StandardBodies, p, codec, 0)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := ResolveActivations(context.Background(), refInstant, prior, model.StandardBodies, p, codec, 8)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if diff := cmp.Diff(seq.Activations(), par.Activations()); diff != "" {
		t.Fatalf("parallel result differs (-seq +par):\n%s", diff)
	}
}

func TestResolveActivationsProviderError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("no data for that body")
	p := ephemeris.ProviderFunc(func(_ context.Context, body model.Body, _ time.Time) (float64, error) {
		if body == model.BodyPluto {
			return 0, boom
		}
		return 1, nil
	})
	_, err := ResolveActivations(context.Background(), refInstant, refInstant.Add(-88*day),
		model.StandardBodies, p, NewCodec(kb.StandardWheel()), 4)
	if !errors.Is(err, ErrProviderFailure) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrProviderFailure wrapping provider error", err)
	}
}

func TestResolveActivationsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newCountingProvider(ephemeris.NewAnalytic())
	_, err := ResolveActivations(ctx, refInstant, refInstant.Add(-88*day),
		model.StandardBodies, p, NewCodec(kb.StandardWheel()), 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if p.total() != 0 {
		t.Fatalf("provider sampled %d times after cancellation", p.total())
	}
}

func TestResolveActivationsRejectsBadInput(t *testing.T) {
	codec := NewCodec(kb.StandardWheel())
	p := ephemeris.NewAnalytic()
	prior := refInstant.Add(-88 * day)
	cases := []struct {
		name   string
		bodies []model.Body
		p      ephemeris.Provider
		prior  time.Time
	}{
		{"no bodies", nil, p, prior},
		{"duplicate body", []model.Body{model.BodySun, model.BodySun}, p, prior},
		{"empty body", []model.Body{""}, p, prior},
		{"nil provider", model.StandardBodies, nil, prior},
		{"zero prior", model.StandardBodies, p, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveActivations(context.Background(), refInstant, tc.prior, tc.bodies, tc.p, codec, 1)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}
