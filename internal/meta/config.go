package meta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"ftlbridge/internal/log"
)

// EnvPrefix prefixes every environment variable that overrides a configuration file value, e.g.
// FTLBRIDGE_ENGINE_ADDR overrides engine.addr.
const EnvPrefix = "FTLBRIDGE_"

// ApplicationConfig is a top-level block for application-level meta configuration.
type ApplicationConfig struct {
	SentryDSN string `yaml:"sentry_dsn" toml:"sentry_dsn" env:"SENTRY_DSN"`
	LogLevel  string `yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
}

// StatsdConfig describes the statsd sink for engine metrics.
type StatsdConfig struct {
	Address    string  `yaml:"addr" toml:"addr" env:"ADDR"`
	SampleRate float64 `yaml:"sample_rate" toml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig is a top-level block for metrics configuration.
type MetricsConfig struct {
	Statsd *StatsdConfig `yaml:"statsd" toml:"statsd"`
}

// HTTPListenerConfig describes the HTTP API listener.
type HTTPListenerConfig struct {
	Address        string        `yaml:"addr" toml:"addr" env:"ADDR"`
	ReadTimeout    time.Duration `yaml:"read_timeout" toml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" toml:"write_timeout" env:"WRITE_TIMEOUT"`
	StreamInterval time.Duration `yaml:"stream_interval" toml:"stream_interval" env:"STREAM_INTERVAL"`
	AllowedOrigins []string      `yaml:"allowed_origins" toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// ListenerConfig is a top-level block for server listener configuration.
type ListenerConfig struct {
	HTTP *HTTPListenerConfig `yaml:"http" toml:"http"`
}

// EngineConfig describes how the engine is reached.
type EngineConfig struct {
	Network            string        `yaml:"network" toml:"network" env:"NETWORK"`
	Address            string        `yaml:"addr" toml:"addr" env:"ADDR"`
	ConnectionPoolSize int           `yaml:"connection_pool_size" toml:"connection_pool_size" env:"CONNECTION_POOL_SIZE"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout" toml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	ReadTimeout        time.Duration `yaml:"read_timeout" toml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout       time.Duration `yaml:"write_timeout" toml:"write_timeout" env:"WRITE_TIMEOUT"`
	StaleTimeout       time.Duration `yaml:"stale_timeout" toml:"stale_timeout" env:"STALE_TIMEOUT"`
	MaxReplyLines      int           `yaml:"max_reply_lines" toml:"max_reply_lines" env:"MAX_REPLY_LINES"`
}

// StatsConfig is a top-level block for statistics defaults and limits.
type StatsConfig struct {
	DefaultTopCount     int           `yaml:"default_top_count" toml:"default_top_count" env:"DEFAULT_TOP_COUNT"`
	MaxTopCount         int           `yaml:"max_top_count" toml:"max_top_count" env:"MAX_TOP_COUNT"`
	DefaultHistoryCount int           `yaml:"default_history_count" toml:"default_history_count" env:"DEFAULT_HISTORY_COUNT"`
	MaxHistoryCount     int           `yaml:"max_history_count" toml:"max_history_count" env:"MAX_HISTORY_COUNT"`
	OverTimeStep        time.Duration `yaml:"over_time_step" toml:"over_time_step" env:"OVER_TIME_STEP"`
}

// Config describes all application configuration options.
type Config struct {
	Application *ApplicationConfig `yaml:"application" toml:"application"`
	Metrics     *MetricsConfig     `yaml:"metrics" toml:"metrics"`
	Listener    *ListenerConfig    `yaml:"listener" toml:"listener"`
	Engine      *EngineConfig      `yaml:"engine" toml:"engine"`
	Stats       *StatsConfig       `yaml:"stats" toml:"stats"`
}

// ParseConfig parses a Config struct instance from a file specified as a path on disk. Files with
// a .toml extension are parsed as TOML and anything else as YAML. Environment variables then
// override the values of every block present after defaults are applied.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: error reading config: err=%v", err)
	}

	cfg := &Config{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: error parsing config: format=toml err=%v", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: error parsing config: format=yaml err=%v", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults populates omitted optional blocks and values.
func (c *Config) applyDefaults() {
	if c.Application == nil {
		c.Application = &ApplicationConfig{}
	}
	if c.Application.LogLevel == "" {
		c.Application.LogLevel = "info"
	}

	if c.Listener != nil && c.Listener.HTTP != nil {
		if c.Listener.HTTP.StreamInterval == 0 {
			c.Listener.HTTP.StreamInterval = 5 * time.Second
		}
	}

	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Engine.Network == "" {
		c.Engine.Network = "unix"
	}
	if c.Engine.Address == "" && c.Engine.Network == "unix" {
		c.Engine.Address = "/run/pihole-ftl/ftl.sock"
	}
	if c.Engine.ConnectionPoolSize == 0 {
		c.Engine.ConnectionPoolSize = 2
	}
	if c.Engine.ConnectTimeout == 0 {
		c.Engine.ConnectTimeout = time.Second
	}
	if c.Engine.ReadTimeout == 0 {
		c.Engine.ReadTimeout = 2 * time.Second
	}
	if c.Engine.WriteTimeout == 0 {
		c.Engine.WriteTimeout = time.Second
	}
	if c.Engine.MaxReplyLines == 0 {
		c.Engine.MaxReplyLines = 100000
	}

	if c.Stats == nil {
		c.Stats = &StatsConfig{}
	}
	if c.Stats.DefaultTopCount == 0 {
		c.Stats.DefaultTopCount = 10
	}
	if c.Stats.MaxTopCount == 0 {
		c.Stats.MaxTopCount = 100
	}
	if c.Stats.DefaultHistoryCount == 0 {
		c.Stats.DefaultHistoryCount = 100
	}
	if c.Stats.MaxHistoryCount == 0 {
		c.Stats.MaxHistoryCount = 10000
	}
	if c.Stats.OverTimeStep == 0 {
		c.Stats.OverTimeStep = 10 * time.Minute
	}
}

// applyEnv overrides values of present blocks from prefixed environment variables.
func (c *Config) applyEnv() error {
	blocks := map[string]interface{}{
		"APPLICATION_": c.Application,
		"ENGINE_":      c.Engine,
		"STATS_":       c.Stats,
	}

	if c.Metrics != nil && c.Metrics.Statsd != nil {
		blocks["METRICS_STATSD_"] = c.Metrics.Statsd
	}

	if c.Listener != nil && c.Listener.HTTP != nil {
		blocks["LISTENER_HTTP_"] = c.Listener.HTTP
	}

	for prefix, block := range blocks {
		if err := env.ParseWithOptions(block, env.Options{Prefix: EnvPrefix + prefix}); err != nil {
			return fmt.Errorf("config: error applying environment overrides: block=%s err=%v", strings.ToLower(strings.TrimSuffix(prefix, "_")), err)
		}
	}

	return nil
}

// validate the contents of the configuration. Returns an error if validation failed; nil otherwise.
func (c *Config) validate() error {
	/* Application */

	if _, ok := log.ParseLevel(c.Application.LogLevel); !ok {
		return fmt.Errorf("config: unknown log level: level=%s", c.Application.LogLevel)
	}

	/* Metrics */

	// Users can omit the metrics block entirely to disable metrics reporting.
	if c.Metrics != nil && c.Metrics.Statsd != nil {
		if c.Metrics.Statsd.Address == "" {
			return fmt.Errorf("config: missing metrics statsd address")
		}

		if c.Metrics.Statsd.SampleRate < 0 || c.Metrics.Statsd.SampleRate > 1 {
			return fmt.Errorf("config: statsd sample rate must be in range [0.0, 1.0]")
		}
	}

	/* Listener */

	if c.Listener == nil {
		return fmt.Errorf("config: missing top-level listener config key")
	}

	if c.Listener.HTTP == nil {
		return fmt.Errorf("config: an HTTP listener must be specified")
	}

	if c.Listener.HTTP.Address == "" {
		return fmt.Errorf("config: missing HTTP server listening address")
	}

	if c.Listener.HTTP.StreamInterval < 0 {
		return fmt.Errorf("config: HTTP stream interval must not be negative")
	}

	/* Engine */

	switch c.Engine.Network {
	case "unix", "tcp":
	default:
		return fmt.Errorf("config: unsupported engine network: network=%s", c.Engine.Network)
	}

	if c.Engine.Address == "" {
		return fmt.Errorf("config: missing engine address")
	}

	if c.Engine.ConnectionPoolSize < 0 {
		return fmt.Errorf("config: engine connection pool size must not be negative")
	}

	if c.Engine.ConnectTimeout < 0 || c.Engine.ReadTimeout < 0 || c.Engine.WriteTimeout < 0 || c.Engine.StaleTimeout < 0 {
		return fmt.Errorf("config: engine timeouts must not be negative")
	}

	/* Stats */

	if c.Stats.DefaultTopCount < 0 || c.Stats.MaxTopCount < 0 || c.Stats.DefaultHistoryCount < 0 || c.Stats.MaxHistoryCount < 0 {
		return fmt.Errorf("config: stats counts must not be negative")
	}

	if c.Stats.DefaultTopCount > c.Stats.MaxTopCount {
		return fmt.Errorf(
			"config: default top count exceeds maximum: default=%d max=%d",
			c.Stats.DefaultTopCount,
			c.Stats.MaxTopCount,
		)
	}

	if c.Stats.OverTimeStep < time.Second {
		return fmt.Errorf("config: over time step must be at least one second: step=%v", c.Stats.OverTimeStep)
	}

	return nil
}
