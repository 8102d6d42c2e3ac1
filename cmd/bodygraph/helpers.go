package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/bodygraph-engine/core"
	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/internal/chartsvc"
	"github.com/signalsfoundry/bodygraph-engine/internal/config"
	"github.com/signalsfoundry/bodygraph-engine/internal/logging"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

// parseInstant accepts RFC 3339 timestamps, a bare date, or "now". Instants
// without a zone are read as UTC.
func parseInstant(raw string, now func() time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "now") {
		return now().UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse instant %q (want RFC 3339 or YYYY-MM-DD)", core.ErrInvalidInput, raw)
}

// localEngine builds an engine and provider from the configuration.
func localEngine(flags *globalFlags, log logging.Logger) (*core.Engine, ephemeris.Provider, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	engine, err := cfg.NewEngine(core.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg.PositionProvider(), nil
}

// chartSource computes charts locally or through a remote chart server.
type chartSource struct {
	engine   *core.Engine
	provider ephemeris.Provider
	client   *chartsvc.Client
	close    func() error
}

func newChartSource(flags *globalFlags, log logging.Logger) (*chartSource, error) {
	if flags.remote != "" {
		conn, err := grpc.NewClient(flags.remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", flags.remote, err)
		}
		return &chartSource{client: chartsvc.NewClient(conn), close: conn.Close}, nil
	}
	engine, provider, err := localEngine(flags, log)
	if err != nil {
		return nil, err
	}
	return &chartSource{engine: engine, provider: provider, close: func() error { return nil }}, nil
}

func (s *chartSource) compute(ctx context.Context, instant time.Time) (*model.ChartResult, error) {
	if s.client != nil {
		view, err := s.client.ComputeChart(ctx, instant)
		if err != nil {
			return nil, err
		}
		return view.Chart(), nil
	}
	return s.engine.ComputeChart(ctx, instant, s.provider)
}

func formatJSON(st *structpb.Struct) (string, error) {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
