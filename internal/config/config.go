// Package config defines the rtc configuration surface and validation
// rules. Values are populated by Load (see loader.go); this file only
// describes the shape.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration object, unmarshaled from TOML plus
// environment overrides.
type Config struct {
	GraphEngine GraphEngineConfig `koanf:"graph_engine"`
	LogEngine   LogEngineConfig   `koanf:"log_engine"`
	HTTP        HTTPConfig        `koanf:"http"`
	Log         LogConfig         `koanf:"log"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Tracing     TracingConfig     `koanf:"tracing"`
}

// GraphEngineConfig selects and configures the GraphStore back-end.
// Falkor is the only back-end today; the nested struct mirrors the
// teacher's back-end-selection pattern (services.<name> in pkg/config)
// generalized to a single active engine.
type GraphEngineConfig struct {
	Falkor FalkorConfig `koanf:"falkor"`
}

type FalkorConfig struct {
	DatabaseURL string `koanf:"database_url"`
	GraphName   string `koanf:"graph_name"`
	MaxPool     int    `koanf:"max_pool"`
}

// LogEngineConfig selects and configures the LogSource back-end.
type LogEngineConfig struct {
	Active      string            `koanf:"active"`
	GCP         GCPConfig         `koanf:"gcp"`
	EventStream EventStreamConfig `koanf:"event-stream"`
}

type GCPConfig struct {
	ProjectID       string `koanf:"project_id"`
	PageSize        int32  `koanf:"page_size"`
	CustomLogFilter string `koanf:"custom_log_filter"`
	MaxPages        int    `koanf:"max_pages"`
}

type EventStreamConfig struct {
	APIURL string `koanf:"api_url"`
	APIKey string `koanf:"api_key"`
	AppKey string `koanf:"app_key"`
	Query  string `koanf:"query"`
}

// HTTPConfig carries the path-normalization extension point; it is not
// an HTTP server configuration (rtc exposes no network-facing API).
type HTTPConfig struct {
	RequestPaths RequestPathsConfig `koanf:"request_paths"`
}

type RequestPathsConfig struct {
	CustomNormalizePatterns []string `koanf:"custom_normalize_patterns"`
}

type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Output     string `koanf:"output"`
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Validate checks the fields that Load cannot default away.
func (c *Config) Validate() error {
	var errs []string

	switch c.LogEngine.Active {
	case "gcp", "event-stream", "fake":
	default:
		errs = append(errs, fmt.Sprintf("log_engine.active must be one of: gcp, event-stream, fake, got %q", c.LogEngine.Active))
	}

	if c.LogEngine.Active == "gcp" && c.LogEngine.GCP.ProjectID == "" {
		errs = append(errs, "log_engine.gcp.project_id is required when log_engine.active is gcp")
	}

	if c.GraphEngine.Falkor.DatabaseURL == "" {
		errs = append(errs, "graph_engine.falkor.database_url is required")
	}

	if c.GraphEngine.Falkor.MaxPool < 1 || c.GraphEngine.Falkor.MaxPool > 255 {
		errs = append(errs, fmt.Sprintf("graph_engine.falkor.max_pool must be between 1 and 255, got %d", c.GraphEngine.Falkor.MaxPool))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
