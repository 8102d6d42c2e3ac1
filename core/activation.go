package core

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

// ResolveActivations samples every body at both instants exactly once,
// encodes each longitude, and merges the results into a provenance-tagged
// set. Up to parallelism provider calls run at once; values below 1 run
// the calls one after another. Detail order is always moment, then body.
func ResolveActivations(
	ctx context.Context,
	current, prior time.Time,
	bodies []model.Body,
	p ephemeris.Provider,
	codec *Codec,
	parallelism int,
) (*model.ActivationSet, error) {
	if p == nil || codec == nil {
		return nil, fmt.Errorf("%w: provider and codec are required", ErrInvalidInput)
	}
	if current.IsZero() || prior.IsZero() {
		return nil, fmt.Errorf("%w: both instants are required", ErrInvalidInput)
	}
	if err := checkBodies(bodies); err != nil {
		return nil, err
	}

	type job struct {
		moment model.Moment
		at     time.Time
		body   model.Body
	}
	jobs := make([]job, 0, 2*len(bodies))
	for _, mo := range model.Moments {
		at := current
		if mo == model.MomentPrior {
			at = prior
		}
		for _, b := range bodies {
			jobs = append(jobs, job{moment: mo, at: at, body: b})
		}
	}

	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]model.Activation, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lon, err := sampleLongitude(gctx, p, j.body, j.at)
			if err != nil {
				return err
			}
			gate, line, err := codec.Encode(lon)
			if err != nil {
				return err
			}
			results[i] = model.Activation{
				Body:      j.body,
				Moment:    j.moment,
				Longitude: lon,
				Gate:      gate,
				Line:      line,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return model.NewActivationSet(results), nil
}

func checkBodies(bodies []model.Body) error {
	if len(bodies) == 0 {
		return fmt.Errorf("%w: no bodies to track", ErrInvalidInput)
	}
	seen := make(map[model.Body]bool, len(bodies))
	for _, b := range bodies {
		if b == "" {
			return fmt.Errorf("%w: empty body identifier", ErrInvalidInput)
		}
		if seen[b] {
			return fmt.Errorf("%w: body %s tracked twice", ErrInvalidInput, b)
		}
		seen[b] = true
	}
	return nil
}
