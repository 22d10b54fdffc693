package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-alert-router/config"
	"github.com/target/mmk-alert-router/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err = bootstrap.SetLogLevel(cfg.LogLevel); err != nil {
		logger.WarnContext(ctx, "ignoring log level", "level", cfg.LogLevel, "error", err)
	}

	logStartupInfo(ctx, logger, &cfg)

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	redisClient, err := initRedis(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	obs := bootstrap.BuildObservability(ctx, bootstrap.ObservabilityDeps{
		Config: cfg.Observability.Metrics,
		Redis:  redisClient,
		Logger: logger,
	})

	registry, err := bootstrap.BuildRegistry(ctx, bootstrap.RegistryDeps{
		Config: cfg.Plugins,
		Logger: logger,
	})
	if err != nil {
		if cerr := obs.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close observability after registry failure", "error", cerr)
		}
		return err
	}

	dispatch := bootstrap.NewDispatchService(bootstrap.DispatchDeps{
		Registry:      registry,
		Config:        cfg.Dispatch,
		Observability: obs,
		Logger:        logger,
	})

	return bootstrap.RunServicesWithShutdown(ctx, &bootstrap.ServiceOrchestrationConfig{
		Config:        &cfg,
		Registry:      registry,
		Dispatch:      dispatch,
		Observability: obs,
		Logger:        logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting alert router",
		"plugins_config", cfg.Plugins.Path,
		"http_addr", cfg.HTTP.Addr,
		"max_concurrency", cfg.Dispatch.MaxConcurrency,
		"enabled_services", bootstrap.GetEnabledServices(cfg))
}

// initRedis connects Redis only when a component needs it.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initRedis(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if !cfg.Observability.Metrics.RedisEnabled {
		return nil, nil
	}
	client, err := bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
