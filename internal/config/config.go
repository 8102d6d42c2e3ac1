// Package config loads the YAML settings shared by the chart server and the
// bodygraph CLI.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/bodygraph-engine/core"
	"github.com/signalsfoundry/bodygraph-engine/ephemeris"
	"github.com/signalsfoundry/bodygraph-engine/kb"
	"github.com/signalsfoundry/bodygraph-engine/model"
)

// EnvPath names the environment variable that points at a config file.
const EnvPath = "BODYGRAPH_CONFIG"

// EngineConfig selects what the engine tracks.
type EngineConfig struct {
	PivotBody   string   `yaml:"pivot_body"`
	ArcDegrees  float64  `yaml:"arc_degrees"`
	Bodies      []string `yaml:"bodies"`
	Parallelism int      `yaml:"parallelism"`
}

// SolverConfig bounds the prior-moment search. Days may be fractional.
type SolverConfig struct {
	WindowMinDays    float64 `yaml:"window_min_days"`
	WindowMaxDays    float64 `yaml:"window_max_days"`
	ToleranceDegrees float64 `yaml:"tolerance_degrees"`
	MaxIterations    int     `yaml:"max_iterations"`
	Direction        string  `yaml:"direction"` // prograde, retrograde or auto
}

// WheelConfig calibrates the gate wheel.
type WheelConfig struct {
	OffsetDegrees float64 `yaml:"offset_degrees"`
}

// RetryConfig wraps the position provider in exponential backoff when
// MaxTries is above one.
type RetryConfig struct {
	MaxTries        uint          `yaml:"max_tries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// ProviderConfig selects the position provider.
type ProviderConfig struct {
	Kind  string      `yaml:"kind"` // analytic
	Retry RetryConfig `yaml:"retry"`
}

// ServerConfig holds chart-server settings.
type ServerConfig struct {
	GRPCAddr       string        `yaml:"grpc_addr"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	CacheSize      int           `yaml:"cache_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Config is the root configuration structure.
type Config struct {
	Version  int            `yaml:"version"`
	Engine   EngineConfig   `yaml:"engine"`
	Solver   SolverConfig   `yaml:"solver"`
	Wheel    WheelConfig    `yaml:"wheel"`
	Provider ProviderConfig `yaml:"provider"`
	Server   ServerConfig   `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	bodies := make([]string, 0, len(model.StandardBodies))
	for _, b := range model.StandardBodies {
		bodies = append(bodies, string(b))
	}
	sc := core.DefaultSolverConfig()
	return &Config{
		Version: 1,
		Engine: EngineConfig{
			PivotBody:   string(model.BodySun),
			ArcDegrees:  core.DefaultArc,
			Bodies:      bodies,
			Parallelism: 4,
		},
		Solver: SolverConfig{
			WindowMinDays:    sc.WindowMin.Hours() / 24,
			WindowMaxDays:    sc.WindowMax.Hours() / 24,
			ToleranceDegrees: sc.Tolerance,
			MaxIterations:    sc.MaxIterations,
			Direction:        sc.Direction.String(),
		},
		Wheel: WheelConfig{OffsetDegrees: kb.StandardWheelOffset},
		Provider: ProviderConfig{
			Kind: "analytic",
			Retry: RetryConfig{
				MaxTries:        1,
				InitialInterval: 50 * time.Millisecond,
				MaxInterval:     time.Second,
			},
		},
		Server: ServerConfig{
			GRPCAddr:       ":50061",
			MetricsAddr:    ":9091",
			CacheTTL:       10 * time.Minute,
			CacheSize:      1024,
			RequestTimeout: 5 * time.Second,
		},
	}
}

// LoadConfig loads configuration from a YAML file. Keys missing from the file
// keep their Default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads the file named by path, or by BODYGRAPH_CONFIG when path is
// empty. With neither set it returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvPath))
	}
	if path == "" {
		return Default(), nil
	}
	return LoadConfig(path)
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Version != 1 {
		errs = append(errs, fmt.Errorf("unsupported config version: %d (expected 1)", c.Version))
	}

	if c.Engine.PivotBody == "" {
		errs = append(errs, errors.New("engine.pivot_body is required"))
	} else if !model.IsKnownBody(normalizeBody(c.Engine.PivotBody)) {
		errs = append(errs, fmt.Errorf("engine.pivot_body: unknown body %s", c.Engine.PivotBody))
	}
	if !(c.Engine.ArcDegrees > 0 && c.Engine.ArcDegrees < 360) {
		errs = append(errs, fmt.Errorf("engine.arc_degrees %v must lie in (0, 360)", c.Engine.ArcDegrees))
	}
	if len(c.Engine.Bodies) == 0 {
		errs = append(errs, errors.New("engine.bodies must list at least one body"))
	}
	seen := make(map[model.Body]bool, len(c.Engine.Bodies))
	for _, raw := range c.Engine.Bodies {
		if strings.TrimSpace(raw) == "" {
			errs = append(errs, errors.New("engine.bodies contains an empty entry"))
			continue
		}
		b := normalizeBody(raw)
		if !model.IsKnownBody(b) {
			errs = append(errs, fmt.Errorf("engine.bodies: unknown body %s", raw))
		}
		if seen[b] {
			errs = append(errs, fmt.Errorf("duplicate body: %s", b))
		}
		seen[b] = true
	}
	if c.Engine.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("engine.parallelism %d must not be negative", c.Engine.Parallelism))
	}

	if _, err := c.SolverSettings(); err != nil {
		errs = append(errs, err)
	}
	if math.IsNaN(c.Wheel.OffsetDegrees) || math.IsInf(c.Wheel.OffsetDegrees, 0) {
		errs = append(errs, errors.New("wheel.offset_degrees must be finite"))
	}

	switch strings.ToLower(c.Provider.Kind) {
	case "", "analytic":
	default:
		errs = append(errs, fmt.Errorf("unsupported provider kind: %s (only 'analytic' is built in)", c.Provider.Kind))
	}

	if c.Server.CacheTTL < 0 {
		errs = append(errs, errors.New("server.cache_ttl must not be negative"))
	}
	if c.Server.CacheSize < 0 {
		errs = append(errs, errors.New("server.cache_size must not be negative"))
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// SolverSettings converts the solver section into core settings.
func (c *Config) SolverSettings() (core.SolverConfig, error) {
	dir, err := core.ParseDirection(c.Solver.Direction)
	if err != nil {
		return core.SolverConfig{}, fmt.Errorf("solver.direction: %w", err)
	}
	sc := core.SolverConfig{
		WindowMin:     days(c.Solver.WindowMinDays),
		WindowMax:     days(c.Solver.WindowMaxDays),
		Tolerance:     c.Solver.ToleranceDegrees,
		MaxIterations: c.Solver.MaxIterations,
		Direction:     dir,
	}
	if err := sc.Validate(); err != nil {
		return core.SolverConfig{}, fmt.Errorf("solver: %w", err)
	}
	return sc, nil
}

// Topology returns the standard bodygraph calibrated with the configured
// wheel offset.
func (c *Config) Topology() (*kb.Topology, error) {
	topo, err := kb.Standard()
	if err != nil {
		return nil, err
	}
	if c.Wheel.OffsetDegrees == kb.StandardWheelOffset {
		return topo, nil
	}
	w := topo.Wheel()
	w.Offset = c.Wheel.OffsetDegrees
	return topo.WithWheel(w)
}

// PositionProvider builds the configured provider, wrapped for retries when
// provider.retry.max_tries exceeds one.
func (c *Config) PositionProvider() ephemeris.Provider {
	var p ephemeris.Provider = ephemeris.NewAnalytic()
	if r := c.Provider.Retry; r.MaxTries > 1 {
		p = &ephemeris.Retrying{
			Provider:    p,
			MaxTries:    r.MaxTries,
			Initial:     r.InitialInterval,
			MaxInterval: r.MaxInterval,
		}
	}
	return p
}

// EngineOptions translates the engine and solver sections into engine
// options. Extra options are applied last.
func (c *Config) EngineOptions(extra ...core.EngineOption) ([]core.EngineOption, error) {
	sc, err := c.SolverSettings()
	if err != nil {
		return nil, err
	}
	bodies := make([]model.Body, 0, len(c.Engine.Bodies))
	for _, b := range c.Engine.Bodies {
		bodies = append(bodies, normalizeBody(b))
	}
	opts := []core.EngineOption{
		core.WithPivot(normalizeBody(c.Engine.PivotBody)),
		core.WithArc(c.Engine.ArcDegrees),
		core.WithBodies(bodies...),
		core.WithSolverConfig(sc),
		core.WithParallelism(c.Engine.Parallelism),
	}
	return append(opts, extra...), nil
}

// NewEngine builds a chart engine from the configuration.
func (c *Config) NewEngine(extra ...core.EngineOption) (*core.Engine, error) {
	topo, err := c.Topology()
	if err != nil {
		return nil, err
	}
	opts, err := c.EngineOptions(extra...)
	if err != nil {
		return nil, err
	}
	return core.NewEngine(topo, opts...)
}

func normalizeBody(name string) model.Body {
	return model.Body(strings.ToUpper(strings.TrimSpace(name)))
}

func days(d float64) time.Duration {
	return time.Duration(d * float64(24*time.Hour))
}
