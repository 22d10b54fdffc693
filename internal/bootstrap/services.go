package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/mmk-alert-router/config"
	httpx "github.com/target/mmk-alert-router/internal/http"
	"github.com/target/mmk-alert-router/internal/service"
)

const shutdownWaitTimeout = 10 * time.Second

// ServiceOrchestrationConfig carries everything RunServicesWithShutdown starts and stops.
type ServiceOrchestrationConfig struct {
	Config        *config.AppConfig
	Registry      *service.PluginRegistry
	Dispatch      *service.DispatchService
	Observability ObservabilityContainer
	Logger        *slog.Logger
	// Signals overrides the shutdown signal source in tests.
	Signals <-chan os.Signal
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// RunServicesWithShutdown starts every enabled service and blocks until a
// shutdown signal arrives or a service fails. Shutdown stops the HTTP server
// first, then background services, then closes plugins in reverse order.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Registry == nil || cfg.Dispatch == nil {
		return errors.New("service orchestration requires a registry and dispatch service")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, len(enabled)+1)

	var (
		monitor     *service.HealthMonitor
		backgrounds []backgroundServiceHandle
	)
	if enabled[config.ServiceModeHealthMonitor] {
		monitor, err = service.NewHealthMonitor(service.HealthMonitorOptions{
			Prober:   cfg.Dispatch,
			Interval: cfg.Config.HealthMonitor.Interval,
			Filter:   cfg.Config.HealthMonitor.Filter,
			Timeout:  cfg.Config.Dispatch.Timeout,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("configure health monitor: %w", err)
		}
		backgrounds = append(backgrounds, launchBackground(serviceCtx, "health monitor", monitor.Run, errCh, logger))
	}

	var server *http.Server
	if enabled[config.ServiceModeHTTP] {
		services := httpx.RouterServices{Dispatch: cfg.Dispatch}
		if cfg.Observability.Counters != nil {
			services.Counters = cfg.Observability.Counters
		}
		if monitor != nil {
			services.Monitor = monitor
		}
		server, err = StartHTTPServer(serviceCtx, HTTPServerConfig{
			Config:   cfg.Config.HTTP,
			Timeout:  cfg.Config.Dispatch.Timeout,
			Services: services,
			Logger:   logger,
		}, errCh)
		if err != nil {
			cancel()
			waitForBackgrounds(backgrounds, logger)
			return errors.Join(fmt.Errorf("start http server: %w", err), closeRuntime(cfg, logger))
		}
	}

	signals := cfg.Signals
	if signals == nil {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		signals = quit
	}

	var runErr error
	select {
	case sig := <-signals:
		logger.Info("shutting down services...", "signal", fmt.Sprint(sig))
	case <-ctx.Done():
		logger.Info("shutting down services...", "reason", ctx.Err())
	case runErr = <-errCh:
		logger.Error("service error", "error", runErr)
	}

	return errors.Join(runErr, gracefulStop(gracefulStopConfig{
		cancel:      cancel,
		server:      server,
		timeout:     cfg.Config.HTTP.ShutdownTimeout,
		backgrounds: backgrounds,
		runtime:     cfg,
		logger:      logger,
	}))
}

func launchBackground(
	ctx context.Context,
	name string,
	run func(context.Context) error,
	errCh chan<- error,
	logger *slog.Logger,
) backgroundServiceHandle {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := run(ctx); err != nil {
			select {
			case errCh <- fmt.Errorf("%s failed: %w", name, err):
			default:
				logger.WarnContext(ctx, "dropping background service error", "service", name, "error", err)
			}
		}
	}()
	logger.InfoContext(ctx, "background service started", "service", name)
	return backgroundServiceHandle{name: name, done: done}
}

type gracefulStopConfig struct {
	cancel      context.CancelFunc
	server      *http.Server
	timeout     time.Duration
	backgrounds []backgroundServiceHandle
	runtime     *ServiceOrchestrationConfig
	logger      *slog.Logger
}

// gracefulStop drains HTTP, stops background services, then releases plugins and sinks.
func gracefulStop(cfg gracefulStopConfig) error {
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = shutdownWaitTimeout
	}

	var errs []error
	if err := ShutdownHTTPServer(cfg.server, timeout, cfg.logger); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	cfg.cancel()
	waitForBackgrounds(cfg.backgrounds, cfg.logger)
	errs = append(errs, closeRuntime(cfg.runtime, cfg.logger))
	return errors.Join(errs...)
}

func closeRuntime(cfg *ServiceOrchestrationConfig, logger *slog.Logger) error {
	var errs []error
	if err := cfg.Registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Observability.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close metrics: %w", err))
	}
	if len(errs) == 0 {
		logger.Info("plugins closed")
	}
	return errors.Join(errs...)
}

func waitForBackgrounds(handles []backgroundServiceHandle, logger *slog.Logger) {
	for _, h := range handles {
		waitForService(h.done, h.name, logger)
	}
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	t := time.NewTimer(shutdownWaitTimeout)
	defer t.Stop()
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-t.C:
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
