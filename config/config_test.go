package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("cfg=%+v want=%+v", cfg, want)
	}
	if cfg.Status.InvalidJSON != 200 || cfg.Status.NoHandler != 200 {
		t.Fatalf("status defaults=%+v want 200s", cfg.Status)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", `
listen: ":9000"
metrics_listen: "127.0.0.1:9100"
read_header_timeout: 2s
snake:
  color: "#754927"
  head: alligator
  tail: rocket
  seed: 42
status:
  invalid_json: 400
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9000" || cfg.MetricsListen != "127.0.0.1:9100" {
		t.Fatalf("listen=%q metrics=%q", cfg.Listen, cfg.MetricsListen)
	}
	if cfg.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("read_header_timeout=%s", cfg.ReadHeaderTimeout)
	}
	if cfg.Snake.Head != "alligator" || cfg.Snake.Seed != 42 {
		t.Fatalf("snake=%+v", cfg.Snake)
	}
	if cfg.Status.InvalidJSON != 400 || cfg.Status.NoHandler != 200 {
		t.Fatalf("status=%+v", cfg.Status)
	}
	// Untouched keys keep their defaults.
	if cfg.ServerHeader != "battlesnake/go" || cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, LocalFile, "server_header: snek/local\n")
	chdir(t, dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerHeader != "snek/local" {
		t.Fatalf("server_header=%q", cfg.ServerHeader)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SNEK_LISTEN", ":7000")
	t.Setenv("SNEK_LOG_FORMAT", "json")
	t.Setenv("SNEK_SEED", "9")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7000" || cfg.Log.Format != "json" || cfg.Snake.Seed != 9 {
		t.Fatalf("cfg=%+v", cfg)
	}

	t.Setenv("SNEK_SEED", "x")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "SNEK_SEED") {
		t.Fatalf("err=%v want SNEK_SEED error", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"zero body", func(c *Config) { c.MaxBodyBytes = 0 }},
		{"negative timeout", func(c *Config) { c.ReadHeaderTimeout = -time.Second }},
		{"bad status", func(c *Config) { c.Status.NoHandler = 99 }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
}
