package chartsvc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/bodygraph-engine/core"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "invalid input", err: fmt.Errorf("%w: nan longitude", core.ErrInvalidInput), code: codes.InvalidArgument},
		{name: "not converged", err: core.ErrSolverDidNotConverge, code: codes.Aborted},
		{name: "provider failure", err: fmt.Errorf("%w: %w", core.ErrProviderFailure, errors.New("down")), code: codes.Unavailable},
		{name: "topology", err: core.ErrTopologyInvalid, code: codes.FailedPrecondition},
		{name: "deadline", err: fmt.Errorf("search: %w", context.DeadlineExceeded), code: codes.DeadlineExceeded},
		{name: "canceled", err: context.Canceled, code: codes.Canceled},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}
