package config

import "time"

// DispatchConfig controls how one request fans out to plugins.
type DispatchConfig struct {
	// MaxConcurrency bounds concurrent plugin operations per request. 0 is unbounded.
	MaxConcurrency int `env:"DISPATCH_MAX_CONCURRENCY" envDefault:"0"`

	// Timeout is the deadline applied to every health or push request.
	// Plugins still running at the deadline see a canceled context.
	Timeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to dispatch configuration values.
func (d *DispatchConfig) Sanitize() {
	if d.MaxConcurrency < 0 {
		d.MaxConcurrency = 0
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
}
