// Package config loads the swrcache service configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/goforj/swrcache"
)

const (
	defaultListen          = ":8080"
	defaultLogLevel        = "info"
	defaultSourceTimeout   = 10 * time.Second
	defaultMaxOutputBytes  = 1 << 20
	defaultShutdownTimeout = 15 * time.Second
)

// Environment overrides applied after the file is decoded.
const (
	EnvListen            = "SWRCACHE_LISTEN"
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
)

var (
	ErrNoSources     = errors.New("config: at least one source is required")
	ErrDuplicateKey  = errors.New("config: duplicate source key")
	ErrInvalidSource = errors.New("config: invalid source")
)

// Config is the service configuration.
type Config struct {
	Listen               string        `yaml:"listen"`
	LogLevel             string        `yaml:"log_level"`
	DefaultTTL           time.Duration `yaml:"default_ttl"`
	SweepSchedule        string        `yaml:"sweep_schedule"`
	ColdMissSingleflight bool          `yaml:"cold_miss_singleflight"`
	WarmupConcurrency    int           `yaml:"warmup_concurrency"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
	Sentry               Sentry        `yaml:"sentry"`
	Sources              []Source      `yaml:"sources"`
}

// Sentry configures error reporting. An empty DSN disables it.
type Sentry struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// Source is one cached key whose value is the stdout of a command.
type Source struct {
	Key            string        `yaml:"key"`
	TTL            time.Duration `yaml:"ttl"`
	Command        []string      `yaml:"command"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxOutputBytes int64         `yaml:"max_output_bytes"`
	Warm           bool          `yaml:"warm"`
}

// Load reads, decodes and validates the file at path, then applies environment overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	return Parse(data, os.LookupEnv)
}

// Parse decodes YAML data. lookup resolves environment overrides and may be nil.
func Parse(data []byte, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if lookup != nil {
		cfg.applyEnv(lookup)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvListen); ok && v != "" {
		c.Listen = v
	}
	if v, ok := lookup(EnvSentryDSN); ok && v != "" {
		c.Sentry.DSN = v
	}
	if v, ok := lookup(EnvSentryEnvironment); ok && v != "" {
		c.Sentry.Environment = v
	}
}

func (c Config) withDefaults() Config {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = swrcache.DefaultSweepSchedule
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Sentry.Environment == "" {
		c.Sentry.Environment = "production"
	}
	for i := range c.Sources {
		if c.Sources[i].Timeout <= 0 {
			c.Sources[i].Timeout = defaultSourceTimeout
		}
		if c.Sources[i].MaxOutputBytes <= 0 {
			c.Sources[i].MaxOutputBytes = defaultMaxOutputBytes
		}
	}
	return c
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("config: sweep_schedule %q: %w", c.SweepSchedule, err)
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("config: default_ttl must not be negative")
	}
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.Key == "" {
			return fmt.Errorf("%w: sources[%d] has no key", ErrInvalidSource, i)
		}
		if _, dup := seen[src.Key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, src.Key)
		}
		seen[src.Key] = struct{}{}
		if len(src.Command) == 0 || src.Command[0] == "" {
			return fmt.Errorf("%w: %q has no command", ErrInvalidSource, src.Key)
		}
		if src.TTL < 0 {
			return fmt.Errorf("%w: %q has a negative ttl", ErrInvalidSource, src.Key)
		}
	}
	return nil
}

// Source returns the source configured for key.
func (c Config) Source(key string) (Source, bool) {
	for _, src := range c.Sources {
		if src.Key == key {
			return src, true
		}
	}
	return Source{}, false
}
