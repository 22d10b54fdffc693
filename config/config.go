package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - dispatch.go: Fan-out concurrency and request deadlines
//   - http.go: HTTP server configuration
//   - observability.go: StatsD and Redis counter metrics
//   - plugins.go: Plugin declaration file location and startup policy
//   - redis.go: Shared Redis connection
//   - services.go: Service mode and health monitor configuration
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, .env loading).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP     HTTPConfig
	Dispatch DispatchConfig
	Plugins  PluginsConfig

	// Redis backs the shared plugin counters when enabled.
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Service mode configuration
	Services      string `env:"SERVICES" envDefault:"http"`
	HealthMonitor HealthMonitorConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Dispatch.Sanitize()
	c.Plugins.Sanitize()
	c.HealthMonitor.Sanitize()
	c.Observability.Sanitize()
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsHealthMonitorEnabled returns true if the periodic plugin health probe is enabled.
func (c *AppConfig) IsHealthMonitorEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHealthMonitor]
}
