// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Fetch    FetchConfig       `mapstructure:"fetch"`
	Adaptive AdaptiveConfig    `mapstructure:"adaptive"`
	Refresh  RefreshConfig     `mapstructure:"refresh"`
	Logging  LoggingConfig     `mapstructure:"logging"`
	Sources  []feed.Descriptor `mapstructure:"sources"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FetchConfig governs the orchestrator and the shared HTTP client.
type FetchConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	Retries        int     `mapstructure:"retries"`
	BackoffMs      int     `mapstructure:"backoff_ms"`
	UserAgent      string  `mapstructure:"user_agent"`
	HostRPS        float64 `mapstructure:"host_rps"`
	HostBurst      int     `mapstructure:"host_burst"`
}

// AdaptiveConfig bounds the adaptive concurrency controller.
type AdaptiveConfig struct {
	MinConcurrency   int `mapstructure:"min_concurrency"`
	MaxConcurrency   int `mapstructure:"max_concurrency"`
	Step             int `mapstructure:"step"`
	StartConcurrency int `mapstructure:"start_concurrency"`
	// MemoryBudgetBytes of zero derives the budget from total system memory.
	MemoryBudgetBytes uint64  `mapstructure:"memory_budget_bytes"`
	HighWater         float64 `mapstructure:"high_water"`
	LowWater          float64 `mapstructure:"low_water"`
}

// RefreshConfig controls the scheduler cadence.
type RefreshConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	BatchSize       int `mapstructure:"batch_size"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. When the file defines no
// sources the built-in set is used.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FEEDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.retries", 2)
	v.SetDefault("fetch.backoff_ms", 750)
	v.SetDefault("fetch.user_agent", "feedwatch/1.0 (+https://github.com/feedwatch/feedwatch)")
	v.SetDefault("fetch.host_rps", 2.0)
	v.SetDefault("fetch.host_burst", 4)
	v.SetDefault("adaptive.min_concurrency", 5)
	v.SetDefault("adaptive.max_concurrency", 50)
	v.SetDefault("adaptive.step", 5)
	v.SetDefault("adaptive.start_concurrency", 20)
	v.SetDefault("adaptive.memory_budget_bytes", 0)
	v.SetDefault("adaptive.high_water", 0.85)
	v.SetDefault("adaptive.low_water", 0.50)
	v.SetDefault("refresh.interval_seconds", 60)
	v.SetDefault("refresh.batch_size", 10)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits; configuration
// problems fail fast before any round runs.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return &feed.ConfigError{Field: "server.port", Err: fmt.Errorf("must be > 0")}
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return &feed.ConfigError{Field: "fetch.timeout_seconds", Err: fmt.Errorf("must be > 0")}
	}
	if c.Fetch.Retries < 0 {
		return &feed.ConfigError{Field: "fetch.retries", Err: fmt.Errorf("must be >= 0")}
	}
	if c.Adaptive.MinConcurrency < 1 {
		return &feed.ConfigError{Field: "adaptive.min_concurrency", Err: fmt.Errorf("must be >= 1")}
	}
	if c.Adaptive.MaxConcurrency < c.Adaptive.MinConcurrency {
		return &feed.ConfigError{Field: "adaptive.max_concurrency", Err: fmt.Errorf("must be >= min_concurrency")}
	}
	if c.Adaptive.LowWater <= 0 || c.Adaptive.HighWater <= c.Adaptive.LowWater || c.Adaptive.HighWater >= 1 {
		return &feed.ConfigError{Field: "adaptive.high_water", Err: fmt.Errorf("need 0 < low_water < high_water < 1")}
	}
	if c.Refresh.IntervalSeconds <= 0 {
		return &feed.ConfigError{Field: "refresh.interval_seconds", Err: fmt.Errorf("must be > 0")}
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, desc := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if desc.Key == "" {
			return &feed.ConfigError{Field: field + ".key", Err: fmt.Errorf("missing key")}
		}
		if _, dup := seen[desc.Key]; dup {
			return &feed.ConfigError{Field: field + ".key", Err: fmt.Errorf("duplicate key %q", desc.Key)}
		}
		seen[desc.Key] = struct{}{}
		if !desc.Kind.Valid() {
			return &feed.ConfigError{Field: field + ".kind", Err: fmt.Errorf("unknown kind %q", desc.Kind)}
		}
		if desc.Type == "" {
			return &feed.ConfigError{Field: field + ".type", Err: fmt.Errorf("missing adapter type")}
		}
		if desc.URL == "" && len(desc.URLs) == 0 {
			return &feed.ConfigError{Field: field + ".url", Err: fmt.Errorf("neither url nor urls set")}
		}
	}
	return nil
}

// Timeout converts the fetch timeout to a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// Backoff converts the retry backoff base to a duration.
func (c Config) Backoff() time.Duration {
	return time.Duration(c.Fetch.BackoffMs) * time.Millisecond
}

// RefreshInterval converts the scheduler interval to a duration.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// SourceMap indexes the descriptors by key.
func (c Config) SourceMap() map[string]feed.Descriptor {
	out := make(map[string]feed.Descriptor, len(c.Sources))
	for _, desc := range c.Sources {
		out[desc.Key] = desc
	}
	return out
}
