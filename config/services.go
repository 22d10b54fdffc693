package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeHealthMonitor periodically probes plugin health.
	ServiceModeHealthMonitor ServiceMode = "health-monitor"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeHealthMonitor,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeHealthMonitor:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, health-monitor)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// HealthMonitorConfig controls the background health probe.
type HealthMonitorConfig struct {
	// Interval is the time between probes.
	Interval time.Duration `env:"HEALTH_MONITOR_INTERVAL" envDefault:"1m"`

	// Filter selects which plugins are probed. Empty probes every plugin.
	Filter string `env:"HEALTH_MONITOR_FILTER" envDefault:""`
}

// Sanitize applies guardrails to health monitor configuration values.
func (h *HealthMonitorConfig) Sanitize() {
	if h.Interval < 5*time.Second {
		h.Interval = 5 * time.Second
	}
	h.Filter = strings.TrimSpace(h.Filter)
}
