package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RTC_"

// Loader loads configuration from defaults, an optional TOML file, and
// environment overrides, in that precedence order.
type Loader struct {
	k          *koanf.Koanf
	configPath string
	envPrefix  string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvPrefix overrides the environment variable prefix (default RTC_).
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

// NewLoader builds a Loader for the TOML file at path. An empty path
// skips the file tier; defaults and env overrides still apply.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		k:          koanf.New("."),
		configPath: path,
		envPrefix:  envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves defaults -> config file -> environment, unmarshals into
// a Config, and validates it.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err == nil {
			if err := l.k.Load(file.Provider(l.configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("config: failed to load %s: %w", l.configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to stat %s: %w", l.configPath, err)
		}
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("config: failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"graph_engine.falkor.graph_name": "rtc",
		"graph_engine.falkor.max_pool":   1,

		"log_engine.active":       "gcp",
		"log_engine.gcp.page_size": int32(100),

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"metrics.enabled":   true,
		"metrics.namespace": "rtc",

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "rtc",
		"tracing.sample_rate":  0.1,
	}
	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadEnv maps RTC_GRAPH_ENGINE__FALKOR__DATABASE_URL to
// graph_engine.falkor.database_url: a double underscore is the nesting
// delimiter, a single underscore stays part of the key name, since
// several of this config's keys (graph_engine, max_pool, ...) contain
// underscores themselves and a single-underscore delimiter would be
// ambiguous.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, l.envPrefix)),
			"__", ".",
		)
	}), nil)
}

// Load is a convenience wrapper over NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// LoadDemo loads path (typically ./rtc.demo.toml) and forces the fake
// log engine, per the `rtc demo` CLI contract.
func LoadDemo(path string) (*Config, error) {
	cfg, err := NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	cfg.LogEngine.Active = "fake"
	return cfg, nil
}
