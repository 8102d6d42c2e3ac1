package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

// Direction tells the solver which way the pivot body moves across the
// search window.
type Direction int

const (
	// Prograde bodies move toward increasing longitude.
	Prograde Direction = iota
	// Retrograde bodies move toward decreasing longitude.
	Retrograde
	// AutoDirection infers the sign from the samples at the window edge.
	AutoDirection
)

func (d Direction) String() string {
	switch d {
	case Prograde:
		return "prograde"
	case Retrograde:
		return "retrograde"
	case AutoDirection:
		return "auto"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses "prograde", "retrograde", or "auto".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prograde":
		return Prograde, nil
	case "retrograde":
		return Retrograde, nil
	case "auto":
		return AutoDirection, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, s)
	}
}

// SolverConfig bounds the prior-moment search.
type SolverConfig struct {
	// WindowMin and WindowMax bound how far before the current instant the
	// answer may lie.
	WindowMin time.Duration
	WindowMax time.Duration
	// Tolerance is the accepted angular error in degrees.
	Tolerance     float64
	MaxIterations int
	Direction     Direction
}

const day = 24 * time.Hour

// DefaultSolverConfig returns the window used for the conventional 88° solar
// arc. The arc takes between roughly 86.6 and 92 days depending on the season,
// so the window carries a day of margin on each side.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		WindowMin:     84 * day,
		WindowMax:     93 * day,
		Tolerance:     1e-4,
		MaxIterations: 64,
		Direction:     Prograde,
	}
}

// Validate checks the configuration for usable values.
func (c SolverConfig) Validate() error {
	switch {
	case c.WindowMin <= 0 || c.WindowMax <= c.WindowMin:
		return fmt.Errorf("%w: solver window [%s, %s] is empty", ErrInvalidInput, c.WindowMin, c.WindowMax)
	case !(c.Tolerance > 0) || math.IsInf(c.Tolerance, 0):
		return fmt.Errorf("%w: solver tolerance %v must be positive", ErrInvalidInput, c.Tolerance)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: solver iteration budget %d must be positive", ErrInvalidInput, c.MaxIterations)
	case c.Direction < Prograde || c.Direction > AutoDirection:
		return fmt.Errorf("%w: unknown solver direction %d", ErrInvalidInput, c.Direction)
	}
	return nil
}

// Solution is a converged prior-moment search.
type Solution struct {
	Instant    time.Time
	Iterations int
	// Residual is the remaining angular error in degrees.
	Residual float64
	// Samples counts provider calls made by the search.
	Samples int
}

// PriorSolver finds the instant before a reference instant at which a body
// sat a fixed arc behind (along its direction of motion) its reference
// longitude. It narrows a bracketing window with the Illinois variant of
// regula falsi, so each step uses one provider sample.
type PriorSolver struct {
	cfg SolverConfig
}

// NewPriorSolver validates cfg and returns a solver.
func NewPriorSolver(cfg SolverConfig) (*PriorSolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PriorSolver{cfg: cfg}, nil
}

// Config returns the solver configuration.
func (s *PriorSolver) Config() SolverConfig { return s.cfg }

// Solve searches [current-WindowMax, current-WindowMin] for the instant at
// which body's longitude trailed its longitude at current by arc degrees.
// The context is only consulted between iterations.
func (s *PriorSolver) Solve(ctx context.Context, p ephemeris.Provider, current time.Time, body model.Body, arc float64) (Solution, error) {
	if current.IsZero() {
		return Solution{}, fmt.Errorf("%w: zero current instant", ErrInvalidInput)
	}
	if !ephemeris.IsFinite(arc) || arc <= 0 || arc >= 360 {
		return Solution{}, fmt.Errorf("%w: arc %v must lie in (0, 360)", ErrInvalidInput, arc)
	}
	if p == nil {
		return Solution{}, fmt.Errorf("%w: nil position provider", ErrInvalidInput)
	}

	sol := Solution{}
	at := func(secondsBefore float64) time.Time {
		return current.Add(-time.Duration(secondsBefore * float64(time.Second)))
	}
	sample := func(t time.Time) (float64, error) {
		sol.Samples++
		return sampleLongitude(ctx, p, body, t)
	}

	ref, err := sample(current)
	if err != nil {
		return Solution{}, err
	}

	lo := s.cfg.WindowMin.Seconds()
	hi := s.cfg.WindowMax.Seconds()

	lonLo, err := sample(at(lo))
	if err != nil {
		return Solution{}, err
	}

	sign := 1.0
	switch s.cfg.Direction {
	case Retrograde:
		sign = -1
	case AutoDirection:
		if ephemeris.Wrap180(ref-lonLo) < 0 {
			sign = -1
		}
	}

	// residual is the signed distance between the swept arc and the target;
	// it grows as the candidate instant moves further back.
	residual := func(lon float64) float64 {
		return ephemeris.Wrap180(ephemeris.Normalize(sign*(ref-lon)) - arc)
	}

	fLo := residual(lonLo)
	if math.Abs(fLo) <= s.cfg.Tolerance {
		sol.Instant, sol.Residual = at(lo), fLo
		return sol, nil
	}
	lonHi, err := sample(at(hi))
	if err != nil {
		return Solution{}, err
	}
	fHi := residual(lonHi)
	if math.Abs(fHi) <= s.cfg.Tolerance {
		sol.Instant, sol.Residual = at(hi), fHi
		return sol, nil
	}
	if fLo*fHi > 0 {
		return Solution{}, fmt.Errorf("%w: %s arc %.4f° not bracketed by window [%s, %s] (residuals %.4f, %.4f)",
			ErrSolverDidNotConverge, body, arc, s.cfg.WindowMin, s.cfg.WindowMax, fLo, fHi)
	}

	best := math.Min(math.Abs(fLo), math.Abs(fHi))
	// side records which end the previous step moved (-1 hi, +1 lo); when the
	// same end moves twice the stale end's residual is halved.
	side := 0
	for iter := 1; iter <= s.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Solution{}, fmt.Errorf("prior-moment search interrupted after %d iterations: %w", iter-1, err)
		}
		if (hi-lo)*float64(time.Second) < 1 {
			return Solution{}, fmt.Errorf("%w: bracket collapsed after %d iterations with residual %.6f°",
				ErrSolverDidNotConverge, iter-1, best)
		}

		x := (lo*fHi - hi*fLo) / (fHi - fLo)
		if !(x > lo && x < hi) {
			x = lo + (hi-lo)/2
		}
		lon, err := sample(at(x))
		if err != nil {
			return Solution{}, err
		}
		fx := residual(lon)
		sol.Iterations = iter
		if math.Abs(fx) <= s.cfg.Tolerance {
			sol.Instant, sol.Residual = at(x), fx
			return sol, nil
		}
		best = math.Min(best, math.Abs(fx))

		if fx*fHi > 0 {
			hi, fHi = x, fx
			if side == -1 {
				fLo /= 2
			}
			side = -1
		} else {
			lo, fLo = x, fx
			if side == 1 {
				fHi /= 2
			}
			side = 1
		}
	}
	return Solution{}, fmt.Errorf("%w: %d iterations exhausted with residual %.6f° (tolerance %g°)",
		ErrSolverDidNotConverge, s.cfg.MaxIterations, best, s.cfg.Tolerance)
}

// sampleLongitude queries the provider once and range-normalizes the result.
func sampleLongitude(ctx context.Context, p ephemeris.Provider, body model.Body, t time.Time) (float64, error) {
	lon, err := p.Longitude(ctx, body, t)
	if err != nil {
		return 0, fmt.Errorf("%w: %s at %s: %w", ErrProviderFailure, body, t.UTC().Format(time.RFC3339Nano), err)
	}
	if !ephemeris.IsFinite(lon) {
		return 0, fmt.Errorf("%w: provider returned %v for %s at %s", ErrInvalidInput, lon, body, t.UTC().Format(time.RFC3339Nano))
	}
	return ephemeris.Normalize(lon), nil
}
