// Package ephemeris adapts angular position sources to the chart engine.
//
// The engine treats a Provider as a black box: it asks for one body's
// ecliptic longitude at one UTC instant and range-normalizes whatever comes
// back. Nothing in this package is required by the engine itself; the
// analytic provider exists so the binaries can run without a native
// ephemeris library.
package ephemeris

import (
	"context"
	"time"

	"github.com/signalsfoundry/bodygraph-engine/model"
)

// Provider returns a body's geocentric ecliptic longitude in degrees.
type Provider interface {
	Longitude(ctx context.Context, body model.Body, instant time.Time) (float64, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, body model.Body, instant time.Time) (float64, error)

// Longitude implements Provider.
func (f ProviderFunc) Longitude(ctx context.Context, body model.Body, instant time.Time) (float64, error) {
	return f(ctx, body, instant)
}

// Linear is a synthetic provider moving every body at a constant rate from a
// reference longitude. It is deterministic and exists for tests and demos.
type Linear struct {
	Epoch         time.Time
	Base          map[model.Body]float64
	DegreesPerDay map[model.Body]float64
}

// Longitude implements Provider. Bodies missing from Base start at 0; bodies
// missing from DegreesPerDay are stationary.
func (l *Linear) Longitude(_ context.Context, body model.Body, instant time.Time) (float64, error) {
	days := instant.Sub(l.Epoch).Hours() / 24
	return Normalize(l.Base[body] + l.DegreesPerDay[body]*days), nil
}
