package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
version: "1"
log:
  level: ${HOSTJOB_TEST_LEVEL:-debug}
  format: json
shutdown_timeout: 10s
telemetry:
  listen: "127.0.0.1:9464"
jobs:
  - name: db-optimize
    kind: sqlite.optimize
    config:
      path: ${HOSTJOB_TEST_DB}
      vacuum: true
  - name: ping
    kind: http.check
    disabled: true
`

func TestParse(t *testing.T) {
	t.Setenv("HOSTJOB_TEST_DB", "/var/lib/app.db")

	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Version != "1" {
		t.Errorf("Version = %q, want %q", cfg.Version, "1")
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v, want debug (from default)", cfg.Log.SlogLevel())
	}
	if !cfg.Log.JSON() {
		t.Error("expected JSON format")
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.Telemetry.Listen != "127.0.0.1:9464" {
		t.Errorf("Listen = %q", cfg.Telemetry.Listen)
	}
	if len(cfg.Jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(cfg.Jobs))
	}

	var opts struct {
		Path   string `yaml:"path"`
		Vacuum bool   `yaml:"vacuum"`
	}
	node := cfg.Jobs[0].ConfigNode()
	if node == nil {
		t.Fatal("expected config node for first job")
	}
	if err := node.Decode(&opts); err != nil {
		t.Fatalf("decode job config: %v", err)
	}
	if opts.Path != "/var/lib/app.db" || !opts.Vacuum {
		t.Errorf("job config = %+v", opts)
	}

	if cfg.Jobs[1].ConfigNode() != nil {
		t.Error("expected nil config node when config is absent")
	}
	if !cfg.Jobs[1].Disabled {
		t.Error("expected second job to be disabled")
	}
}

func TestParse_UnresolvedVariable(t *testing.T) {
	_, err := Parse([]byte("version: ${HOSTJOB_TEST_SURELY_UNSET_VAR}"))
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "HOSTJOB_TEST_SURELY_UNSET_VAR") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("HOSTJOB_TEST_DB", "x.db")

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Jobs) != 2 {
		t.Errorf("jobs = %d, want 2", len(cfg.Jobs))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExpandEnv_DefaultWithEscapedBrace(t *testing.T) {
	got, err := expandEnv([]byte(`v: ${HOSTJOB_TEST_SURELY_UNSET_VAR:-a\}b}`))
	if err != nil {
		t.Fatalf("expandEnv: %v", err)
	}
	if string(got) != `v: a\}b` {
		t.Errorf("got %q", got)
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (LogConfig{Level: tt.in}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolvePath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "hostjob", FileName)
	if err := os.MkdirAll(filepath.Dir(want), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, []byte("version: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ResolvePath()
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if got != want {
		t.Errorf("ResolvePath() = %q, want %q", got, want)
	}
}

func TestDefaultDataDir_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	if got := DefaultDataDir(); got != filepath.Join("/xdg/data", "hostjob") {
		t.Errorf("DefaultDataDir() = %q", got)
	}
}
