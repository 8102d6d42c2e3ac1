package chartsvc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/signalsfoundry/bodygraph-engine/core"
	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/internal/logging"
)

// Server implements ChartServiceServer on top of a chart engine.
type Server struct {
	engine   *core.Engine
	provider ephemeris.Provider
	cache    *ChartCache
	timeout  time.Duration
	log      logging.Logger
}

// ServerOption customises Server construction.
type ServerOption func(*Server)

// WithCache enables result caching.
func WithCache(c *ChartCache) ServerOption {
	return func(s *Server) { s.cache = c }
}

// WithRequestTimeout bounds each computation; zero leaves only the caller's
// deadline in force.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.timeout = d }
}

// WithLogger attaches a fallback logger for requests that carry none.
func WithLogger(l logging.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer wires an engine and a position provider into a chart service.
func NewServer(engine *core.Engine, provider ephemeris.Provider, opts ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("chartsvc: engine is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("chartsvc: position provider is required")
	}
	s := &Server{engine: engine, provider: provider, log: logging.Noop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ComputeChart resolves the chart for the requested activation instant.
func (s *Server) ComputeChart(ctx context.Context, req *timestamppb.Timestamp) (*structpb.Struct, error) {
	log := logging.FromContext(ctx, s.log)
	if err := req.CheckValid(); err != nil {
		return nil, ToStatusError(fmt.Errorf("%w: activation instant: %v", core.ErrInvalidInput, err))
	}
	instant := req.AsTime()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("activation", instant.Format(time.RFC3339)))

	chart, hit := s.cache.Get(instant)
	if !hit {
		cctx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		var err error
		chart, err = s.engine.ComputeChart(cctx, instant, s.provider)
		if err != nil {
			log.Warn(ctx, "chart computation failed",
				logging.Time("activation", instant),
				logging.String("outcome", core.Outcome(err)),
				logging.Err(err),
			)
			return nil, ToStatusError(err)
		}
		s.cache.Put(instant, chart)
	}

	out, err := EncodeChart(chart)
	if err != nil {
		return nil, ToStatusError(err)
	}
	log.Info(ctx, "chart served",
		logging.Time("activation", instant),
		logging.Bool("cache_hit", hit),
		logging.Int("active_channels", len(chart.ActiveChannels)),
	)
	return out, nil
}

// Topology describes the reference data the engine uses.
func (s *Server) Topology(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := EncodeTopology(s.engine.Topology())
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}
