package bootstrap

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-alert-router/config"
	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/observability/metrics"
	"github.com/target/mmk-alert-router/internal/observability/statsd"
)

// ObservabilityContainer groups the metric sinks shared by the dispatch path.
type ObservabilityContainer struct {
	// Stats receives dispatch-level metrics. Nil when StatsD is disabled.
	Stats *statsd.Client
	// PluginMetrics fans per-outcome counts out to every enabled sink.
	PluginMetrics core.PluginMetrics
	// Counters is the Redis-backed tally, nil unless enabled.
	Counters *metrics.RedisCounters
}

// ObservabilityDeps groups dependencies for BuildObservability.
type ObservabilityDeps struct {
	Config config.ObservabilityMetricsConfig
	Redis  redis.UniversalClient // Optional: required for Redis counters
	Logger *slog.Logger
}

// BuildObservability configures StatsD and Redis counter sinks. Sinks that
// fail to initialise are logged and skipped.
func BuildObservability(ctx context.Context, deps ObservabilityDeps) ObservabilityContainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	var out ObservabilityContainer
	var sinks []core.PluginMetrics

	if cfg.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.StatsdAddress,
			Prefix:  cfg.Prefix,
			Logger:  logger,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to initialise statsd client", "error", err)
		} else {
			out.Stats = client
			sinks = append(sinks, metrics.NewStatsdPluginMetrics(client))
		}
	}

	if cfg.RedisEnabled {
		if deps.Redis == nil {
			logger.WarnContext(ctx, "redis plugin counters enabled but no redis client is configured")
		} else {
			out.Counters = metrics.NewRedisCounters(metrics.RedisCountersOptions{
				Client: deps.Redis,
				Logger: logger,
				Config: metrics.RedisCountersConfig{
					KeyPrefix:     cfg.RedisKeyPrefix,
					FlushInterval: cfg.RedisFlushInterval,
				},
			})
			out.Counters.Start(ctx)
			sinks = append(sinks, out.Counters)
		}
	}

	out.PluginMetrics = metrics.NewMulti(sinks...)
	return out
}

// Close flushes and releases the sinks.
func (o ObservabilityContainer) Close() error {
	if o.Counters != nil {
		o.Counters.Stop()
	}
	if o.Stats != nil {
		return o.Stats.Close()
	}
	return nil
}
