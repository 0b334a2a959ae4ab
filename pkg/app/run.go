// Package app provides the shared entry point for the hostjob binary:
// it turns a configuration file into a running core.App.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flemzord/hostjob/internal/config"
	"github.com/flemzord/hostjob/internal/core"
	"github.com/flemzord/hostjob/internal/job"
	"github.com/flemzord/hostjob/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Built-in job kinds.
	_ "github.com/flemzord/hostjob/modules/job/httpcheck"
	_ "github.com/flemzord/hostjob/modules/job/sqlite"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolvePath is called automatically.
	ConfigPath string

	// DataDir overrides both the config file and the default data directory.
	DataDir string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// LoadConfig resolves, loads and validates the configuration file.
// It returns the absolute path that was used.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := config.ResolvePath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.JSON() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Build assembles the App: one guarded job per enabled entry, each with
// its own lock, Prometheus metrics and tracing, plus the admin server when
// telemetry.listen is set. reg receives the collectors.
func Build(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry, dataDir string) (*core.App, error) {
	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("app: registering metrics: %w", err)
	}

	appCtx := core.NewAppContext(logger, dataDir)
	application := core.NewApp(appCtx,
		core.WithShutdownTimeout(cfg.ShutdownTimeout),
		core.WithJobOptions(job.WithObserver(metrics)),
	)

	// The admin server is registered first so it is up while jobs run
	// their initial pass.
	if cfg.Telemetry.Listen != "" {
		srv := telemetry.NewServer(telemetry.ServerConfig{
			Addr:     cfg.Telemetry.Listen,
			Gatherer: reg,
			Logger:   logger,
		}, application)
		if err := application.AddService("admin", srv); err != nil {
			return nil, err
		}
	}

	traced := func(name string, exec job.Executor) job.Executor {
		return telemetry.Trace(name, exec, nil)
	}
	for _, jc := range config.Enabled(cfg.Jobs) {
		if _, err := application.LoadJob(jc.Name, jc.Kind, jc.ConfigNode(), traced); err != nil {
			return nil, err
		}
	}

	return application, nil
}

// Run loads configuration, starts all jobs, and blocks until ctx is
// cancelled. Signal handling is the caller's concern.
func Run(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log, params.LogOutput)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.OTLPInsecure)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	application, err := Build(cfg, logger, reg, dataDir)
	if err != nil {
		return err
	}

	logger.Info("configuration loaded", "path", cfgPath, "jobs", len(config.Enabled(cfg.Jobs)))
	return application.Run(ctx)
}
