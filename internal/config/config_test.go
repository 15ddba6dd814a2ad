package config

import (
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Fatalf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != DefaultLogLevel {
		t.Fatalf("LogLevel() = %q, want %q", cfg.LogLevel(), DefaultLogLevel)
	}
	if cfg.PrimaryEncoder() != DefaultPrimaryEncoder {
		t.Fatalf("PrimaryEncoder() = %q, want %q", cfg.PrimaryEncoder(), DefaultPrimaryEncoder)
	}
	if cfg.FallbackEncoder() != DefaultFallbackEncoder {
		t.Fatalf("FallbackEncoder() = %q, want %q", cfg.FallbackEncoder(), DefaultFallbackEncoder)
	}
	if cfg.RenderWorkers() < 1 {
		t.Fatalf("RenderWorkers() = %d, want >= 1", cfg.RenderWorkers())
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDataDir, "/tmp/reelcut-test")
	t.Setenv(EnvPrimaryEncoder, "h264_nvenc")
	t.Setenv(EnvRenderWorkers, "2")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if cfg.Port() != 9100 {
		t.Fatalf("Port() = %d, want 9100", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("LogLevel() = %q, want debug", cfg.LogLevel())
	}
	if cfg.DBPath() != filepath.Join("/tmp/reelcut-test", DBFilename) {
		t.Fatalf("DBPath() = %q", cfg.DBPath())
	}
	if cfg.PrimaryEncoder() != "h264_nvenc" {
		t.Fatalf("PrimaryEncoder() = %q, want h264_nvenc", cfg.PrimaryEncoder())
	}
	if cfg.RenderWorkers() != 2 {
		t.Fatalf("RenderWorkers() = %d, want 2", cfg.RenderWorkers())
	}
}

func TestNew_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port string
	}{
		{name: "not a number", port: "nope"},
		{name: "zero", port: "0"},
		{name: "too large", port: "70000"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvPort, tc.port)
			if _, err := New(); err == nil {
				t.Fatalf("New() with port %q: expected error", tc.port)
			}
		})
	}
}
