// Package main implements the entry point for the wordstream application,
// a streaming word count pipeline: a TCP line source feeds a windowed word
// counter whose batches print to the console and fan out over websocket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/componentregistry"
	"github.com/c360/wordstream/config"
	"github.com/c360/wordstream/engine"
	"github.com/c360/wordstream/metric"
	"github.com/c360/wordstream/natsclient"
	"github.com/c360/wordstream/types"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "wordstream"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if cliCfg.Validate {
		return validateOnly(cfg, logger)
	}

	natsClient, metricsRegistry, platform, err := createCoreDependencies(cfg, metricsEnabled(cliCfg))
	if err != nil {
		return fmt.Errorf("create dependencies: %w", err)
	}

	if err := connectToNATS(ctx, natsClient); err != nil {
		return err
	}
	defer func() { _ = natsClient.Close(ctx) }()

	eng, err := setupEngine(cfg, natsClient, metricsRegistry, logger, platform)
	if err != nil {
		return err
	}

	metricsServer := startMetricsServer(cliCfg, metricsRegistry, cfg, eng)
	if metricsServer != nil {
		defer func() { _ = metricsServer.Stop() }()
	}

	return runPipeline(ctx, eng, cliCfg)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting wordstream (streaming word count)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(true)
	cfg, err := loader.LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// validateOnly initializes the pipeline without NATS, checks the wiring,
// and exits. Used by the --validate flag.
func validateOnly(cfg *config.Config, logger *slog.Logger) error {
	// A disconnected client satisfies the factories without dialing NATS.
	eng, err := setupEngine(cfg, &natsclient.Client{}, nil, logger, platformMeta(cfg))
	if err != nil {
		return err
	}

	report, err := eng.ValidateWiring()
	if err != nil {
		return fmt.Errorf("validate wiring: %w", err)
	}

	slog.Info("Configuration is valid",
		"wiring_status", report.Status,
		"connections", len(report.Connections))
	if report.Status == "errors" {
		return fmt.Errorf("pipeline wiring has %d errors", len(report.Errors))
	}
	return nil
}

// createCoreDependencies creates the NATS client, metrics registry, and
// platform identity
func createCoreDependencies(
	cfg *config.Config,
	withMetrics bool,
) (*natsclient.Client, *metric.MetricsRegistry, types.PlatformMeta, error) {
	var metricsRegistry *metric.MetricsRegistry
	opts := cfg.NATS.ClientOptions()
	opts = append(opts, natsclient.WithName(appName))
	if withMetrics {
		metricsRegistry = metric.NewMetricsRegistry()
		opts = append(opts, natsclient.WithMetrics(metricsRegistry))
	}

	natsClient, err := natsclient.NewClient(cfg.NATS.URL(), opts...)
	if err != nil {
		return nil, nil, types.PlatformMeta{}, fmt.Errorf("create NATS client: %w", err)
	}

	platform := platformMeta(cfg)
	slog.Info("Platform identity configured",
		"org", platform.Org,
		"platform", platform.Platform,
		"environment", cfg.Platform.Environment)

	return natsClient, metricsRegistry, platform, nil
}

func metricsEnabled(cliCfg *CLIConfig) bool {
	return cliCfg.MetricsPort > 0
}

// platformMeta extracts the platform identity from config
func platformMeta(cfg *config.Config) types.PlatformMeta {
	return types.PlatformMeta{
		Org:      cfg.Platform.Org,
		Platform: cfg.GetPlatform(),
	}
}

// connectToNATS establishes the NATS connection and waits for it to be ready
func connectToNATS(ctx context.Context, natsClient *natsclient.Client) error {
	slog.Info("Connecting to NATS", "url", natsClient.URL())
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := natsClient.WaitForConnection(connCtx); err != nil {
		return fmt.Errorf("NATS connection timeout: %w", err)
	}

	return nil
}

// setupEngine registers the component factories and initializes the
// pipeline from config
func setupEngine(
	cfg *config.Config,
	natsClient *natsclient.Client,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
	platform types.PlatformMeta,
) (*engine.Engine, error) {
	componentRegistry := component.NewRegistry()
	if err := componentregistry.Register(componentRegistry); err != nil {
		return nil, fmt.Errorf("register components: %w", err)
	}
	slog.Debug("Component factories registered",
		"count", len(componentRegistry.ListFactories()))

	deps := component.Dependencies{
		NATSClient:      natsClient,
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
		Platform:        platform,
	}

	eng, err := engine.New(componentRegistry, deps, metricsRegistry)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	if err := eng.Initialize(cfg.Components); err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}

	// Wiring problems are logged by the engine; a broken subject chain
	// stops the run before any component starts.
	report, err := eng.ValidateWiring()
	if err != nil {
		return nil, fmt.Errorf("validate wiring: %w", err)
	}
	if report.Status == "errors" {
		return nil, fmt.Errorf("pipeline wiring has %d errors", len(report.Errors))
	}

	return eng, nil
}

// startMetricsServer serves Prometheus metrics and pipeline health in the
// background when a metrics port is configured
func startMetricsServer(cliCfg *CLIConfig, registry *metric.MetricsRegistry, cfg *config.Config, eng *engine.Engine) *metric.Server {
	if !metricsEnabled(cliCfg) || registry == nil {
		return nil
	}

	server := metric.NewServer(cliCfg.MetricsPort, "/metrics", registry, cfg.Security)
	server.SetHealthFunc(func() (bool, any) {
		status := eng.SystemHealth()
		return status.Healthy, status
	})
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()
	slog.Info("Metrics server listening", "port", cliCfg.MetricsPort, "path", "/metrics")
	return server
}

// runPipeline starts the engine and blocks until a signal arrives or the
// termination timeout elapses
func runPipeline(ctx context.Context, eng *engine.Engine, cliCfg *CLIConfig) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := eng.Start(signalCtx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	slog.Info("Pipeline started",
		"termination_timeout", cliCfg.TerminationTimeout,
		"shutdown_timeout", cliCfg.ShutdownTimeout)

	if err := eng.AwaitTermination(signalCtx, cliCfg.TerminationTimeout); err != nil {
		return fmt.Errorf("await termination: %w", err)
	}

	if err := eng.Stop(cliCfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("wordstream shutdown complete")
	return nil
}
