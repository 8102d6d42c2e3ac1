package ephemeris

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/signalsfoundry/bodygraph-engine/model"
)

// Retrying wraps a flaky Provider with exponential backoff. The engine never
// retries on its own; hosts that talk to a remote or native ephemeris opt in
// by wrapping their provider.
type Retrying struct {
	Provider    Provider
	MaxTries    uint
	Initial     time.Duration
	MaxInterval time.Duration
}

// NewRetrying wraps p with defaults of 3 tries starting at 50ms.
func NewRetrying(p Provider) *Retrying {
	return &Retrying{
		Provider:    p,
		MaxTries:    3,
		Initial:     50 * time.Millisecond,
		MaxInterval: time.Second,
	}
}

// Longitude implements Provider. ErrUnknownBody is treated as permanent.
func (r *Retrying) Longitude(ctx context.Context, body model.Body, instant time.Time) (float64, error) {
	b := backoff.NewExponentialBackOff()
	if r.Initial > 0 {
		b.InitialInterval = r.Initial
	}
	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}
	tries := r.MaxTries
	if tries == 0 {
		tries = 1
	}

	return backoff.Retry(ctx, func() (float64, error) {
		lon, err := r.Provider.Longitude(ctx, body, instant)
		if errors.Is(err, ErrUnknownBody) {
			return 0, backoff.Permanent(err)
		}
		return lon, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}
