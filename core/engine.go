package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/internal/logging"
	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

const tracerName = "github.com/signalsfoundry/bodygraph-engine/core"

// DefaultArc is the conventional solar arc separating the two chart moments.
const DefaultArc = 88.0

// MetricsRecorder receives per-chart measurements.
type MetricsRecorder interface {
	ObserveChart(outcome string, elapsed time.Duration)
	ObserveSolver(iterations int, samples int)
	AddProviderCalls(moment string, n int)
}

// Engine computes charts against a validated topology. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	topo        *kb.Topology
	codec       *Codec
	solverCfg   SolverConfig
	solver      *PriorSolver
	pivot       model.Body
	arc         float64
	bodies      []model.Body
	parallelism int

	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
}

// EngineOption customises Engine construction.
type EngineOption func(*Engine)

// WithPivot sets the body whose arc defines the prior moment.
func WithPivot(b model.Body) EngineOption {
	return func(e *Engine) { e.pivot = b }
}

// WithArc sets the arc in degrees the pivot sweeps between the two moments.
func WithArc(deg float64) EngineOption {
	return func(e *Engine) { e.arc = deg }
}

// WithBodies sets the tracked bodies, in display order.
func WithBodies(bodies ...model.Body) EngineOption {
	return func(e *Engine) { e.bodies = append([]model.Body(nil), bodies...) }
}

// WithSolverConfig replaces the prior-moment search settings.
func WithSolverConfig(cfg SolverConfig) EngineOption {
	return func(e *Engine) { e.solverCfg = cfg }
}

// WithParallelism bounds concurrent provider calls while resolving activations.
func WithParallelism(n int) EngineOption {
	return func(e *Engine) { e.parallelism = n }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewEngine validates the topology and settings once. A topology failure
// wraps ErrTopologyInvalid and the engine must not be used.
func NewEngine(topo *kb.Topology, opts ...EngineOption) (*Engine, error) {
	if topo == nil {
		return nil, fmt.Errorf("engine: %w: nil topology", ErrTopologyInvalid)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		topo:      topo,
		solverCfg: DefaultSolverConfig(),
		pivot:     model.BodySun,
		arc:       DefaultArc,
		bodies:    append([]model.Body(nil), model.StandardBodies...),
		log:       logging.Noop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if e.pivot == "" {
		return nil, fmt.Errorf("engine: %w: pivot body is required", ErrInvalidInput)
	}
	if !ephemeris.IsFinite(e.arc) || e.arc <= 0 || e.arc >= 360 {
		return nil, fmt.Errorf("engine: %w: arc %v must lie in (0, 360)", ErrInvalidInput, e.arc)
	}
	if err := checkBodies(e.bodies); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	solver, err := NewPriorSolver(e.solverCfg)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.solver = solver
	e.codec = NewCodec(topo.Wheel())
	return e, nil
}

// Topology returns the reference data the engine was built with.
func (e *Engine) Topology() *kb.Topology { return e.topo }

// Codec returns the gate/line codec.
func (e *Engine) Codec() *Codec { return e.codec }

// Bodies returns a copy of the tracked bodies.
func (e *Engine) Bodies() []model.Body { return append([]model.Body(nil), e.bodies...) }

// Pivot returns the pivot body and its arc.
func (e *Engine) Pivot() (model.Body, float64) { return e.pivot, e.arc }

// SolvePrior finds the prior moment for an activation instant.
func (e *Engine) SolvePrior(ctx context.Context, activation time.Time, p ephemeris.Provider) (Solution, error) {
	ctx, span := e.tracer.Start(ctx, "SolvePrior", trace.WithAttributes(
		attribute.String("pivot", string(e.pivot)),
		attribute.Float64("arc_degrees", e.arc),
	))
	defer span.End()

	sol, err := e.solver.Solve(ctx, p, activation.UTC(), e.pivot, e.arc)
	if err != nil {
		span.RecordError(err)
		return Solution{}, err
	}
	span.SetAttributes(
		attribute.Int("iterations", sol.Iterations),
		attribute.Float64("residual_degrees", sol.Residual),
	)
	if e.metrics != nil {
		e.metrics.ObserveSolver(sol.Iterations, sol.Samples)
	}
	return sol, nil
}

// ComputeChart is the engine's entry point: it solves the prior moment,
// resolves activations at both moments, resolves definition, and assembles
// the chart.
func (e *Engine) ComputeChart(ctx context.Context, activation time.Time, p ephemeris.Provider) (chart *model.ChartResult, err error) {
	start := time.Now()
	log := logging.FromContext(ctx, e.log)

	ctx, span := e.tracer.Start(ctx, "ComputeChart")
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		if e.metrics != nil {
			e.metrics.ObserveChart(Outcome(err), time.Since(start))
		}
	}()

	if activation.IsZero() {
		return nil, fmt.Errorf("%w: zero activation instant", ErrInvalidInput)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: nil position provider", ErrInvalidInput)
	}
	current := activation.UTC()
	span.SetAttributes(attribute.String("activation", current.Format(time.RFC3339)))

	sol, err := e.SolvePrior(ctx, current, p)
	if err != nil {
		log.Warn(ctx, "prior-moment search failed",
			logging.Time("activation", current),
			logging.String("pivot", string(e.pivot)),
			logging.Err(err),
		)
		return nil, err
	}
	log.Debug(ctx, "prior moment solved",
		logging.Time("activation", current),
		logging.Time("prior", sol.Instant),
		logging.Int("iterations", sol.Iterations),
		logging.Float64("residual_deg", sol.Residual),
	)

	rctx, rspan := e.tracer.Start(ctx, "ResolveActivations",
		trace.WithAttributes(attribute.Int("bodies", len(e.bodies))))
	set, err := ResolveActivations(rctx, current, sol.Instant, e.bodies, p, e.codec, e.parallelism)
	if err != nil {
		rspan.RecordError(err)
	}
	rspan.End()
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		for _, mo := range model.Moments {
			e.metrics.AddProviderCalls(string(mo), len(e.bodies))
		}
	}

	def := ResolveDefinition(set, e.topo)
	chart = e.assemble(set, def, current, sol.Instant)

	log.Debug(ctx, "chart computed",
		logging.Int("gates", set.Len()),
		logging.Int("channels", len(chart.ActiveChannels)),
		logging.Int("defined_centers", len(chart.DefinedCenters)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return chart, nil
}

func (e *Engine) assemble(set *model.ActivationSet, def model.DefinitionResult, current, prior time.Time) *model.ChartResult {
	defined := make(map[model.CenterID]bool, len(def.DefinedCenters))
	for _, c := range def.DefinedCenters {
		defined[c] = true
	}
	var open []model.CenterID
	for _, c := range e.topo.Centers() {
		if !defined[c.ID] {
			open = append(open, c.ID)
		}
	}
	return &model.ChartResult{
		Activations:    set,
		ActiveChannels: def.ActiveChannels,
		DefinedCenters: def.DefinedCenters,
		OpenCenters:    open,
		CurrentInstant: current,
		PriorInstant:   prior.UTC(),
	}
}
