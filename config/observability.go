package config

import (
	"strings"
	"time"
)

const defaultMetricsPrefix = "alert_router"

// ObservabilityConfig groups configuration that controls metrics emission.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to StatsD and the
// shared Redis plugin counters.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"alert_router"`

	RedisEnabled       bool          `env:"OBSERVABILITY_METRICS_REDIS_ENABLED"        envDefault:"false"`
	RedisKeyPrefix     string        `env:"OBSERVABILITY_METRICS_REDIS_KEY_PREFIX"     envDefault:"metrics:plugins:"`
	RedisFlushInterval time.Duration `env:"OBSERVABILITY_METRICS_REDIS_FLUSH_INTERVAL" envDefault:"10s"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
	if c.Prefix == "" {
		c.Prefix = defaultMetricsPrefix
	}
	if c.RedisKeyPrefix = strings.TrimSpace(c.RedisKeyPrefix); c.RedisKeyPrefix == "" {
		c.RedisKeyPrefix = "metrics:plugins:"
	}
	if c.RedisFlushInterval < time.Second {
		c.RedisFlushInterval = time.Second
	}
}

// IsEnabled returns true when StatsD emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}
