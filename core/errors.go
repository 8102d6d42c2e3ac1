package core

import (
	"context"
	"errors"

	"github.com/signalsfoundry/bodygraph-engine/kb"
)

var (
	// ErrInvalidInput marks a malformed longitude, instant, or engine setting.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSolverDidNotConverge marks a prior-moment search that ran out of budget
	// or could not bracket the target arc.
	ErrSolverDidNotConverge = errors.New("prior-moment solver did not converge")
	// ErrProviderFailure marks an error returned by the position provider. The
	// provider's own error stays in the chain.
	ErrProviderFailure = errors.New("position provider failure")
	// ErrTopologyInvalid marks broken reference data detected at start-up.
	ErrTopologyInvalid = kb.ErrTopologyInvalid
)

// Outcome labels for metrics and logs.
const (
	OutcomeOK              = "ok"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeNotConverged    = "not_converged"
	OutcomeProviderFailure = "provider_failure"
	OutcomeCanceled        = "canceled"
	OutcomeError           = "error"
)

// Outcome classifies err into one of the Outcome* labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalidInput
	case errors.Is(err, ErrSolverDidNotConverge):
		return OutcomeNotConverged
	case errors.Is(err, ErrProviderFailure):
		return OutcomeProviderFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
