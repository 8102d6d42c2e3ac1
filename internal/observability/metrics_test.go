package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewServiceCollector(reg)
	if err != nil {
		t.Fatalf("NewServiceCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/bodygraph.v1.ChartService/ComputeChart"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("ChartService", "ComputeChart", "OK")); got != 1 {
		t.Fatalf("chartsvc_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "chartsvc_request_duration_seconds", map[string]string{
		"service": "ChartService",
		"method":  "ComputeChart",
	}); count != 1 {
		t.Fatalf("chartsvc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewServiceCollector(reg)
	if err != nil {
		t.Fatalf("NewServiceCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/bodygraph.v1.ChartService/ComputeChart"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Aborted, "solver did not converge")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("ChartService", "ComputeChart", "Aborted")); got != 1 {
		t.Fatalf("chartsvc_requests_total error label = %v, want 1", got)
	}
}

func TestServiceCollectorIsIdempotentPerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewServiceCollector(reg)
	if err != nil {
		t.Fatalf("first NewServiceCollector: %v", err)
	}
	second, err := NewServiceCollector(reg)
	if err != nil {
		t.Fatalf("second NewServiceCollector: %v", err)
	}
	first.RPCRequests.WithLabelValues("s", "m", "OK").Inc()
	if got := testutil.ToFloat64(second.RPCRequests.WithLabelValues("s", "m", "OK")); got != 1 {
		t.Fatalf("collectors do not share series: got %v", got)
	}
}

func TestMetricsHandlerExposesCacheGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewServiceCollector(reg)
	if err != nil {
		t.Fatalf("NewServiceCollector: %v", err)
	}
	collector.SetCacheStats(1.7, 12)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	if got := testutil.ToFloat64(collector.CacheHitRatio); got != 1 {
		t.Fatalf("hit ratio = %v, want clamp to 1", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"chartsvc_requests_total",
		"chartsvc_request_duration_seconds",
		"chartsvc_cache_hit_ratio",
		"chartsvc_cache_entries 12",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func TestEngineCollectorRecordsChart(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}

	c.ObserveChart("ok", 3*time.Millisecond)
	c.ObserveChart("not_converged", time.Millisecond)
	c.ObserveSolver(4, 7)
	c.AddProviderCalls("current", 13)
	c.AddProviderCalls("prior", 13)
	c.AddProviderCalls("prior", 0)

	if got := testutil.ToFloat64(c.Charts.WithLabelValues("ok")); got != 1 {
		t.Fatalf("charts ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Charts.WithLabelValues("not_converged")); got != 1 {
		t.Fatalf("charts not_converged = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ProviderCalls.WithLabelValues("prior")); got != 13 {
		t.Fatalf("provider calls prior = %v, want 13", got)
	}
	if count := histogramSampleCount(t, reg, "bodygraph_chart_duration_seconds", nil); count != 2 {
		t.Fatalf("chart duration samples = %d, want 2", count)
	}
	if count := histogramSampleCount(t, reg, "bodygraph_solver_iterations", nil); count != 1 {
		t.Fatalf("solver iteration samples = %d, want 1", count)
	}
}

func TestNilEngineCollectorIsSafe(t *testing.T) {
	var c *EngineCollector
	c.ObserveChart("ok", time.Second)
	c.ObserveSolver(1, 3)
	c.AddProviderCalls("current", 1)
	if c.Gatherer() != nil {
		t.Fatalf("nil collector should have nil gatherer")
	}
}

func TestSplitMethod(t *testing.T) {
	cases := map[string][2]string{
		"":                                        {"unknown", "unknown"},
		"ComputeChart":                            {"unknown", "unknown"},
		"/bodygraph.v1.ChartService/ComputeChart": {"ChartService", "ComputeChart"},
		"/ChartService/":                          {"ChartService", "unknown"},
	}
	for in, want := range cases {
		svc, m := SplitMethod(in)
		if svc != want[0] || m != want[1] {
			t.Errorf("SplitMethod(%q) = %q, %q; want %q, %q", in, svc, m, want[0], want[1])
		}
	}
}

func TestTracingConfigFromLookup(t *testing.T) {
	env := map[string]string{
		"BODYGRAPH_TRACING_ENABLED":      "TRUE",
		"BODYGRAPH_TRACING_EXPORTER":     "OTLP",
		"BODYGRAPH_TRACING_SAMPLE_RATIO": "0.25",
		"BODYGRAPH_OTLP_ENDPOINT":        "collector:4317",
	}
	cfg := TracingConfigFromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ServiceName != "bodygraph-engine" {
		t.Fatalf("service name default = %q", cfg.ServiceName)
	}

	env["BODYGRAPH_TRACING_SAMPLE_RATIO"] = "7"
	cfg = TracingConfigFromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.SampleRatio != 1 {
		t.Fatalf("out-of-range ratio should fall back to 1, got %v", cfg.SampleRatio)
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "carrier-pigeon", SampleRatio: 1}, nil)
	if err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
