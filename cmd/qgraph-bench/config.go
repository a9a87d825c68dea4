package main

import (
	"errors"
	"time"
)

// Config holds the demo binary's runtime settings, populated from
// QGRAPH_* environment variables (or a .env file) via envconfig.
type Config struct {
	ArrowPath        string        `envconfig:"ARROW_PATH" default:""`
	SnapshotPath     string        `envconfig:"SNAPSHOT_PATH" default:"./qgraph.snapshot"`
	EdgeLogDir       string        `envconfig:"EDGE_LOG_DIR" default:"./qgraph-edges"`
	MetricsAddr      string        `envconfig:"METRICS_ADDR" default:"0.0.0.0:9091"`
	LogFormat        string        `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	CompactOnStartup bool          `envconfig:"COMPACT_ON_STARTUP" default:"false"`
	TraverseMaxDepth uint32        `envconfig:"TRAVERSE_MAX_DEPTH" default:"4"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

var (
	ErrInvalidSnapshotPath     = errors.New("snapshot_path cannot be empty")
	ErrInvalidEdgeLogDir       = errors.New("edge_log_dir cannot be empty")
	ErrInvalidMetricsAddr      = errors.New("metrics_addr cannot be empty")
	ErrInvalidLogFormat        = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel         = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidTraverseMaxDepth = errors.New("traverse_max_depth must be positive")
	ErrInvalidShutdownTimeout  = errors.New("shutdown_timeout must be positive")
)

// ValidateConfig validates the configuration and returns an error if invalid.
func ValidateConfig(cfg *Config) error {
	if cfg.SnapshotPath == "" {
		return ErrInvalidSnapshotPath
	}
	if cfg.EdgeLogDir == "" {
		return ErrInvalidEdgeLogDir
	}
	if cfg.MetricsAddr == "" {
		return ErrInvalidMetricsAddr
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	if cfg.TraverseMaxDepth == 0 {
		return ErrInvalidTraverseMaxDepth
	}
	if cfg.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}
	return nil
}

// DefaultConfig returns a Config with default values, matching the
// envconfig tags above.
func DefaultConfig() Config {
	return Config{
		SnapshotPath:     "./qgraph.snapshot",
		EdgeLogDir:       "./qgraph-edges",
		MetricsAddr:      "0.0.0.0:9091",
		LogFormat:        "json",
		LogLevel:         "info",
		CompactOnStartup: false,
		TraverseMaxDepth: 4,
		ShutdownTimeout:  10 * time.Second,
	}
}
