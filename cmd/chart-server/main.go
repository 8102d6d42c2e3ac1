package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/bodygraph-engine/core"
	"github.com/signalsfoundry/bodygraph-engine/internal/chartsvc"
	"github.com/signalsfoundry/bodygraph-engine/internal/config"
	"github.com/signalsfoundry/bodygraph-engine/internal/logging"
	"github.com/signalsfoundry/bodygraph-engine/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (defaults to $"+config.EnvPath+")")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the chart gRPC server listens on (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides config)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.Err(err))
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(stopCtx, cfg, log, lis, prometheus.NewRegistry()); err != nil {
		log.Error(ctx, "chart server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the chart service on lis until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logging.Logger, lis net.Listener, reg *prometheus.Registry) error {
	serviceMetrics, err := observability.NewServiceCollector(reg)
	if err != nil {
		return err
	}
	engineMetrics, err := observability.NewEngineCollector(reg)
	if err != nil {
		return err
	}

	engine, err := cfg.NewEngine(
		core.WithLogger(log),
		core.WithMetricsRecorder(engineMetrics),
	)
	if err != nil {
		return err
	}

	cache := chartsvc.NewChartCache(cfg.Server.CacheTTL, cfg.Server.CacheSize)
	cache.SetStatsRecorder(serviceMetrics)

	svc, err := chartsvc.NewServer(engine, cfg.PositionProvider(),
		chartsvc.WithCache(cache),
		chartsvc.WithRequestTimeout(cfg.Server.RequestTimeout),
		chartsvc.WithLogger(log),
	)
	if err != nil {
		return err
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			chartsvc.RequestIDUnaryServerInterceptor(log),
			chartsvc.TracingUnaryServerInterceptor(),
			serviceMetrics.UnaryServerInterceptor(),
		),
	)
	chartsvc.RegisterChartServiceServer(server, svc)

	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, serviceMetrics, log)
	defer shutdownMetrics(metricsSrv)

	pivot, arc := engine.Pivot()
	log.Info(ctx, "starting chart gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.String("pivot", string(pivot)),
		logging.Float64("arc_degrees", arc),
		logging.Int("bodies", len(engine.Bodies())),
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			server.Stop()
			return err
		}
	}

	log.Info(context.Background(), "shutting down chart server")
	server.GracefulStop()
	return nil
}

func shutdownMetrics(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func serveMetrics(addr string, collector *observability.ServiceCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
