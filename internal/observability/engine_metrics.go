package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineCollector exposes chart engine metrics. It satisfies
// core.MetricsRecorder.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	Charts           *prometheus.CounterVec
	ChartDuration    prometheus.Histogram
	SolverIterations prometheus.Histogram
	SolverSamples    prometheus.Histogram
	ProviderCalls    *prometheus.CounterVec
}

// NewEngineCollector registers engine metrics against the provided registerer.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	reg, gatherer := resolveRegistry(reg)

	charts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bodygraph_charts_total",
		Help: "Charts computed, labeled by outcome.",
	}, []string{"outcome"}), "bodygraph_charts_total")
	if err != nil {
		return nil, err
	}

	duration, err := register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bodygraph_chart_duration_seconds",
		Help:    "Wall time of one chart computation, including the prior-moment search.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}), "bodygraph_chart_duration_seconds")
	if err != nil {
		return nil, err
	}

	iterations, err := register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bodygraph_solver_iterations",
		Help:    "Regula falsi iterations used by converged prior-moment searches.",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 12, 16, 32, 64},
	}), "bodygraph_solver_iterations")
	if err != nil {
		return nil, err
	}

	samples, err := register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bodygraph_solver_samples",
		Help:    "Position provider samples taken by converged prior-moment searches.",
		Buckets: []float64{2, 3, 4, 5, 6, 8, 10, 16, 32, 67},
	}), "bodygraph_solver_samples")
	if err != nil {
		return nil, err
	}

	calls, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bodygraph_provider_calls_total",
		Help: "Position provider calls made while resolving activations, labeled by moment.",
	}, []string{"moment"}), "bodygraph_provider_calls_total")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:         gatherer,
		Charts:           charts,
		ChartDuration:    duration,
		SolverIterations: iterations,
		SolverSamples:    samples,
		ProviderCalls:    calls,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a /metrics handler for the collector's registry.
func (c *EngineCollector) Handler() http.Handler {
	if c == nil {
		return handlerFor(nil)
	}
	return handlerFor(c.gatherer)
}

// ObserveChart counts a chart by outcome and records its duration.
func (c *EngineCollector) ObserveChart(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Charts != nil {
		c.Charts.WithLabelValues(outcome).Inc()
	}
	if c.ChartDuration != nil {
		c.ChartDuration.Observe(elapsed.Seconds())
	}
}

// ObserveSolver records the cost of one converged prior-moment search.
func (c *EngineCollector) ObserveSolver(iterations, samples int) {
	if c == nil {
		return
	}
	if c.SolverIterations != nil {
		c.SolverIterations.Observe(float64(iterations))
	}
	if c.SolverSamples != nil {
		c.SolverSamples.Observe(float64(samples))
	}
}

// AddProviderCalls adds n provider calls made for moment.
func (c *EngineCollector) AddProviderCalls(moment string, n int) {
	if c == nil || c.ProviderCalls == nil || n <= 0 {
		return
	}
	c.ProviderCalls.WithLabelValues(moment).Add(float64(n))
}
