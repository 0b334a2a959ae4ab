// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for hostjob.
package config

import (
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Log controls the process logger.
	Log LogConfig `yaml:"log"`

	// ShutdownTimeout bounds how long services get to stop. Defaults to 30s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`

	// DataDir overrides the default directory for persistent job data.
	DataDir string `yaml:"data_dir,omitempty"`

	// Telemetry configures the admin HTTP server and tracing export.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Jobs lists the guarded jobs to host, started in order.
	Jobs []JobConfig `yaml:"jobs"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format"`
}

// SlogLevel returns the configured level. Unknown values map to info;
// Validate reports them.
func (c LogConfig) SlogLevel() slog.Level {
	level, ok := parseLevel(c.Level)
	if !ok {
		return slog.LevelInfo
	}
	return level
}

// JSON reports whether the JSON handler was requested.
func (c LogConfig) JSON() bool {
	return strings.EqualFold(c.Format, "json")
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// TelemetryConfig holds the admin server and tracing settings.
type TelemetryConfig struct {
	// Listen is the admin server address (health, metrics, manual runs).
	// Empty disables the server.
	Listen string `yaml:"listen,omitempty"`

	// OTLPEndpoint is the host:port of an OTLP/HTTP trace collector.
	// Empty disables trace export.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`

	// OTLPInsecure disables TLS towards the collector.
	OTLPInsecure bool `yaml:"otlp_insecure,omitempty"`
}

// JobConfig declares one guarded job.
type JobConfig struct {
	// Name identifies the job in logs, metrics and the admin API. Unique.
	Name string `yaml:"name"`

	// Kind selects a registered job kind (e.g. "sqlite.optimize").
	Kind string `yaml:"kind"`

	// Disabled keeps the entry in the file without hosting it.
	Disabled bool `yaml:"disabled,omitempty"`

	// Config is the raw kind-specific configuration.
	Config yaml.Node `yaml:"config"`
}

// ConfigNode returns the kind configuration, or nil when absent.
func (j *JobConfig) ConfigNode() *yaml.Node {
	if j.Config.Kind == 0 {
		return nil
	}
	return &j.Config
}
