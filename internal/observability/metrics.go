package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ServiceCollector bundles Prometheus metrics for the chart gRPC surface and
// provides helpers to wire them into gRPC servers and HTTP handlers.
type ServiceCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	CacheHitRatio prometheus.Gauge
	CacheEntries  prometheus.Gauge
}

// NewServiceCollector registers chart service metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewServiceCollector(reg prometheus.Registerer) (*ServiceCollector, error) {
	reg, gatherer := resolveRegistry(reg)

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chartsvc_requests_total",
		Help: "Total number of handled chart RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "chartsvc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chartsvc_request_duration_seconds",
		Help:    "Chart RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"service", "method"}), "chartsvc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	ratio, err := register[prometheus.Gauge](reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chartsvc_cache_hit_ratio",
		Help: "Hit ratio for the chart result cache.",
	}), "chartsvc_cache_hit_ratio")
	if err != nil {
		return nil, err
	}
	entries, err := register[prometheus.Gauge](reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chartsvc_cache_entries",
		Help: "Current number of charts held in the result cache.",
	}), "chartsvc_cache_entries")
	if err != nil {
		return nil, err
	}

	return &ServiceCollector{
		gatherer:      gatherer,
		RPCRequests:   requests,
		RPCDurations:  durations,
		CacheHitRatio: ratio,
		CacheEntries:  entries,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *ServiceCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ServiceCollector) Handler() http.Handler {
	return handlerFor(c.gatherer)
}

// SetCacheStats satisfies the chart cache's stats hook: it publishes the
// hit ratio and the current number of cached entries.
func (c *ServiceCollector) SetCacheStats(hitRatio float64, entries int) {
	if c == nil {
		return
	}
	if c.CacheHitRatio != nil {
		c.CacheHitRatio.Set(clampRatio(hitRatio))
	}
	if c.CacheEntries != nil {
		c.CacheEntries.Set(float64(entries))
	}
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func resolveRegistry(reg prometheus.Registerer) (prometheus.Registerer, prometheus.Gatherer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	return reg, gatherer
}

func handlerFor(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// register adds c to reg. When an equivalent collector is already
// registered, the existing one is returned so repeated construction against
// one registry shares series.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var zero T
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return zero, err
	}
	return c, nil
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
