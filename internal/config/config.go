// Package config provides configuration management for the Reelcut agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8790
	DefaultLogLevel = "info"
	DefaultDataDir  = ".reelcut"

	// Environment variable names
	EnvPort     = "REELCUT_PORT"
	EnvLogLevel = "REELCUT_LOG_LEVEL"
	EnvDataDir  = "REELCUT_DATA_DIR"

	// Media tool environment variable names
	EnvFFmpeg          = "REELCUT_FFMPEG"
	EnvFFprobe         = "REELCUT_FFPROBE"
	EnvPrimaryEncoder  = "REELCUT_PRIMARY_ENCODER"
	EnvFallbackEncoder = "REELCUT_FALLBACK_ENCODER"
	EnvRenderWorkers   = "REELCUT_RENDER_WORKERS"

	// Database filename
	DBFilename = "reelcut.db"

	// Media tool defaults
	DefaultFFmpeg          = "ffmpeg"
	DefaultFFprobe         = "ffprobe"
	DefaultPrimaryEncoder  = "h264_videotoolbox"
	DefaultFallbackEncoder = "libx264"

	// Stage timeouts (seconds)
	DefaultTimeoutProbe   = 20
	DefaultTimeoutSegment = 120
	DefaultTimeoutConcat  = 600
	DefaultTimeoutCompose = 600
	DefaultTimeoutMix     = 300
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	RendersDir() string
	FFmpegPath() string
	FFprobePath() string
	PrimaryEncoder() string
	FallbackEncoder() string
	RenderWorkers() int
	TimeoutProbe() time.Duration
	TimeoutSegment() time.Duration
	TimeoutConcat() time.Duration
	TimeoutCompose() time.Duration
	TimeoutMix() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string

	ffmpegPath      string
	ffprobePath     string
	primaryEncoder  string
	fallbackEncoder string
	renderWorkers   int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		dataDir:         defaultDataDir(),
		ffmpegPath:      DefaultFFmpeg,
		ffprobePath:     DefaultFFprobe,
		primaryEncoder:  DefaultPrimaryEncoder,
		fallbackEncoder: DefaultFallbackEncoder,
		renderWorkers:   defaultWorkers(),
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if f := os.Getenv(EnvFFmpeg); f != "" {
		cfg.ffmpegPath = f
	}
	if f := os.Getenv(EnvFFprobe); f != "" {
		cfg.ffprobePath = f
	}
	if e := os.Getenv(EnvPrimaryEncoder); e != "" {
		cfg.primaryEncoder = e
	}
	if e := os.Getenv(EnvFallbackEncoder); e != "" {
		cfg.fallbackEncoder = e
	}

	if w := os.Getenv(EnvRenderWorkers); w != "" {
		workers, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvRenderWorkers, err)
		}
		if workers < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvRenderWorkers)
		}
		cfg.renderWorkers = workers
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// RendersDir returns the directory finished renders are written to
func (c *EnvConfig) RendersDir() string {
	return filepath.Join(c.dataDir, "renders")
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) PrimaryEncoder() string {
	return c.primaryEncoder
}

func (c *EnvConfig) FallbackEncoder() string {
	return c.fallbackEncoder
}

// RenderWorkers returns the bound on concurrent per-scene extractions
func (c *EnvConfig) RenderWorkers() int {
	return c.renderWorkers
}

func (c *EnvConfig) TimeoutProbe() time.Duration {
	return DefaultTimeoutProbe * time.Second
}

func (c *EnvConfig) TimeoutSegment() time.Duration {
	return DefaultTimeoutSegment * time.Second
}

func (c *EnvConfig) TimeoutConcat() time.Duration {
	return DefaultTimeoutConcat * time.Second
}

func (c *EnvConfig) TimeoutCompose() time.Duration {
	return DefaultTimeoutCompose * time.Second
}

func (c *EnvConfig) TimeoutMix() time.Duration {
	return DefaultTimeoutMix * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func defaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	return n
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
