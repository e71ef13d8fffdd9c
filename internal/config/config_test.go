package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "battlesim.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[simulation]
tick_rate = "33ms"
concurrent = false
workers = 3
max_ticks = 120

[radar]
enabled = true
scale = 500.0

[logging]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.TickRate != 33*time.Millisecond {
		t.Fatalf("tick_rate = %s", cfg.Simulation.TickRate)
	}
	if cfg.Simulation.Concurrent || cfg.Simulation.Workers != 3 || cfg.Simulation.MaxTicks != 120 {
		t.Fatalf("simulation = %+v", cfg.Simulation)
	}
	if !cfg.Radar.Enabled || cfg.Radar.Scale != 500 {
		t.Fatalf("radar = %+v", cfg.Radar)
	}
	// untouched sections keep their defaults
	if cfg.Simulation.WaitTimeout != 2*time.Millisecond || cfg.Simulation.MaxIterations != 1<<22 {
		t.Fatalf("scheduler defaults lost: %+v", cfg.Simulation)
	}
	if cfg.Database.Enabled || cfg.Database.FlushInterval != 60 {
		t.Fatalf("database defaults lost: %+v", cfg.Database)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Simulation.StartTime == 0 {
		t.Fatalf("StartTime not set")
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"syntax", "[simulation\n", "parse config"},
		{"zero tick", "[simulation]\ntick_rate = \"0s\"\n", "tick_rate"},
		{"bad scale", "[radar]\nscale = -1.0\n", "radar.scale"},
		{"bad flush", "[database]\nflush_interval = 0\n", "flush_interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestPath_Env(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/other.toml")
	if Path() != "/tmp/other.toml" {
		t.Fatalf("Path() = %q", Path())
	}
	t.Setenv(EnvPath, "")
	if Path() != DefaultPath {
		t.Fatalf("Path() = %q", Path())
	}
}
